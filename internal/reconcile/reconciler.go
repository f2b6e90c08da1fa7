// Package reconcile decides how an incoming submission maps onto the
// existing records for an identity: reject it, amend a pending record, or
// create a new one.
//
// The lookup-then-write sequence is not transactional. Two concurrent
// submissions for the same identity can both observe "no pending record"
// and both create; the record service offers no conditional write to close
// that window.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"image-studio-backend/internal/airtable"
	"image-studio-backend/internal/models"
)

// pendingWindow bounds how many recent records are scanned for a pending
// one.
const pendingWindow = 10

const anonymousUser = "Anonymous"

type Action string

const (
	ActionCreate Action = "create"
	ActionAmend  Action = "amend"
)

// RecordService is the slice of the record client the reconciler uses.
type RecordService interface {
	ListRecords(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error)
	CreateRecord(ctx context.Context, fields airtable.SubmissionFields) (map[string]any, error)
	UpdateRecord(ctx context.Context, recordID string, fields airtable.SubmissionFields) (map[string]any, error)
}

// Submission is one parsed request's worth of record input.
type Submission struct {
	Name     string
	Email    string
	Prompt   string
	ImageURL string // generation result, when the request carries one
	Tier     models.Tier
	Assets   []models.AssetRef
}

// Outcome reports the single write that was performed.
type Outcome struct {
	Action   Action
	RecordID string
	Response map[string]any
}

type Reconciler struct {
	records RecordService
}

func New(records RecordService) *Reconciler {
	return &Reconciler{records: records}
}

// Reconcile resolves the submission against the identity's records and
// performs exactly one external write.
func (r *Reconciler) Reconcile(ctx context.Context, sub Submission) (*Outcome, error) {
	pending := r.findPending(ctx, sub.Email)

	if pending != nil && sub.Tier == models.TierTrial {
		return nil, &models.PolicyError{Message: "trial already pending — complete it before starting another"}
	}

	if pending != nil && sub.Tier == models.TierPaid {
		response, err := r.records.UpdateRecord(ctx, pending.ID, amendFields(sub))
		if err != nil {
			return nil, err
		}
		return &Outcome{Action: ActionAmend, RecordID: pending.ID, Response: response}, nil
	}

	response, err := r.records.CreateRecord(ctx, createFields(sub))
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{Action: ActionCreate, Response: response}
	if id, ok := response["id"].(string); ok {
		outcome.RecordID = id
	}
	return outcome, nil
}

// findPending scans the identity's most recent records for one with trial
// images and no final images. A lookup failure only disables the
// pending-record path; it never blocks the submission.
func (r *Reconciler) findPending(ctx context.Context, email string) *airtable.Record {
	if email == "" {
		return nil
	}

	records, err := r.records.ListRecords(ctx, airtable.ListOptions{
		FilterByFormula: fmt.Sprintf("{Email} = '%s'", airtable.EscapeFormulaString(email)),
		SortField:       "Timestamp",
		SortDesc:        true,
		MaxRecords:      pendingWindow,
	})
	if err != nil {
		log.Printf("record lookup failed for submission reconciliation, treating as no pending record: %v", err)
		return nil
	}

	for i := range records {
		rec := &records[i]
		// The service's formula comparison is case-insensitive; the
		// reconciliation key is not.
		if rec.Fields.Email != email {
			continue
		}
		if rec.Fields.Pending() {
			return rec
		}
	}
	return nil
}

// createFields builds the full payload for a new record.
func createFields(sub Submission) airtable.SubmissionFields {
	fields := airtable.SubmissionFields{
		Prompt:    sub.Prompt,
		User:      sub.Name,
		Email:     sub.Email,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if fields.User == "" {
		fields.User = anonymousUser
	}
	if sub.ImageURL != "" {
		fields.Image = []models.AssetRef{{URL: sub.ImageURL}}
	}
	setTierImages(&fields, sub.Tier, sub.Assets)
	return fields
}

// amendFields builds the partial payload for an existing pending record:
// the resolved tier's image list plus whatever scalar fields this request
// actually supplied. Everything else is left to the service's
// partial-update semantics.
func amendFields(sub Submission) airtable.SubmissionFields {
	fields := airtable.SubmissionFields{
		Prompt: sub.Prompt,
		User:   sub.Name,
	}
	if sub.ImageURL != "" {
		fields.Image = []models.AssetRef{{URL: sub.ImageURL}}
	}
	setTierImages(&fields, sub.Tier, sub.Assets)
	return fields
}

func setTierImages(fields *airtable.SubmissionFields, tier models.Tier, assets []models.AssetRef) {
	if len(assets) == 0 {
		return
	}
	if tier == models.TierTrial {
		fields.TrialImages = assets
	} else {
		fields.FinalImages = assets
	}
}
