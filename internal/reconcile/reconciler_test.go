package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-studio-backend/internal/airtable"
	"image-studio-backend/internal/models"
	"image-studio-backend/internal/reconcile"
)

type fakeRecords struct {
	listCalls   int
	gotOptions  airtable.ListOptions
	listResult  []airtable.Record
	listErr     error
	createCalls int
	created     airtable.SubmissionFields
	updateCalls int
	updatedID   string
	updated     airtable.SubmissionFields
}

func (f *fakeRecords) ListRecords(_ context.Context, opts airtable.ListOptions) ([]airtable.Record, error) {
	f.listCalls++
	f.gotOptions = opts
	return f.listResult, f.listErr
}

func (f *fakeRecords) CreateRecord(_ context.Context, fields airtable.SubmissionFields) (map[string]any, error) {
	f.createCalls++
	f.created = fields
	return map[string]any{"id": "recNew"}, nil
}

func (f *fakeRecords) UpdateRecord(_ context.Context, recordID string, fields airtable.SubmissionFields) (map[string]any, error) {
	f.updateCalls++
	f.updatedID = recordID
	f.updated = fields
	return map[string]any{"id": recordID}, nil
}

func pendingRecord(id, email string) airtable.Record {
	return airtable.Record{
		ID: id,
		Fields: airtable.SubmissionFields{
			Email:       email,
			TrialImages: []models.AssetRef{{URL: "https://cdn/trial.jpg"}},
		},
	}
}

func completedRecord(id, email string) airtable.Record {
	rec := pendingRecord(id, email)
	rec.Fields.FinalImages = []models.AssetRef{{URL: "https://cdn/final.jpg"}}
	return rec
}

func TestReconcile_TrialGateRejectsWhilePending(t *testing.T) {
	records := &fakeRecords{listResult: []airtable.Record{pendingRecord("rec1", "alice@example.com")}}
	r := reconcile.New(records)

	_, err := r.Reconcile(context.Background(), reconcile.Submission{
		Email:  "alice@example.com",
		Tier:   models.TierTrial,
		Assets: []models.AssetRef{{URL: "https://cdn/new.jpg"}},
	})

	var policyErr *models.PolicyError
	require.ErrorAs(t, err, &policyErr)
	assert.Contains(t, policyErr.Error(), "trial already pending")

	// The gate rejects before any write happens.
	assert.Equal(t, 0, records.createCalls)
	assert.Equal(t, 0, records.updateCalls)
}

func TestReconcile_PaidAmendsPendingRecord(t *testing.T) {
	records := &fakeRecords{listResult: []airtable.Record{pendingRecord("rec1", "alice@example.com")}}
	r := reconcile.New(records)

	outcome, err := r.Reconcile(context.Background(), reconcile.Submission{
		Name:   "Alice",
		Email:  "alice@example.com",
		Tier:   models.TierPaid,
		Assets: []models.AssetRef{{URL: "https://cdn/final1.jpg"}, {URL: "https://cdn/final2.jpg"}},
	})
	require.NoError(t, err)

	assert.Equal(t, reconcile.ActionAmend, outcome.Action)
	assert.Equal(t, "rec1", outcome.RecordID)
	assert.Equal(t, 1, records.updateCalls)
	assert.Equal(t, 0, records.createCalls)

	assert.Len(t, records.updated.FinalImages, 2)
	assert.Empty(t, records.updated.TrialImages)
	assert.Equal(t, "Alice", records.updated.User)
	// Amends never rewrite the creation timestamp.
	assert.Empty(t, records.updated.Timestamp)
}

func TestReconcile_AmendOmitsUnsuppliedScalars(t *testing.T) {
	records := &fakeRecords{listResult: []airtable.Record{pendingRecord("rec1", "alice@example.com")}}
	r := reconcile.New(records)

	_, err := r.Reconcile(context.Background(), reconcile.Submission{
		Email:  "alice@example.com",
		Tier:   models.TierPaid,
		Assets: []models.AssetRef{{URL: "https://cdn/final.jpg"}},
	})
	require.NoError(t, err)

	assert.Empty(t, records.updated.User)
	assert.Empty(t, records.updated.Prompt)
	assert.Empty(t, records.updated.Image)
}

func TestReconcile_NoPendingRecordCreates(t *testing.T) {
	records := &fakeRecords{listResult: []airtable.Record{completedRecord("rec1", "alice@example.com")}}
	r := reconcile.New(records)

	outcome, err := r.Reconcile(context.Background(), reconcile.Submission{
		Name:   "Alice",
		Email:  "alice@example.com",
		Tier:   models.TierTrial,
		Assets: []models.AssetRef{{URL: "https://cdn/a.jpg"}},
	})
	require.NoError(t, err)

	assert.Equal(t, reconcile.ActionCreate, outcome.Action)
	assert.Equal(t, "recNew", outcome.RecordID)
	assert.Equal(t, 1, records.createCalls)
	assert.Equal(t, 0, records.updateCalls)

	assert.Equal(t, "Alice", records.created.User)
	assert.Equal(t, "alice@example.com", records.created.Email)
	assert.Len(t, records.created.TrialImages, 1)
	assert.Empty(t, records.created.FinalImages)

	_, parseErr := time.Parse(time.RFC3339, records.created.Timestamp)
	assert.NoError(t, parseErr)
}

func TestReconcile_LookupWindow(t *testing.T) {
	records := &fakeRecords{}
	r := reconcile.New(records)

	_, err := r.Reconcile(context.Background(), reconcile.Submission{
		Email: "alice@example.com",
		Tier:  models.TierPaid,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, records.listCalls)
	assert.Equal(t, "{Email} = 'alice@example.com'", records.gotOptions.FilterByFormula)
	assert.Equal(t, "Timestamp", records.gotOptions.SortField)
	assert.True(t, records.gotOptions.SortDesc)
	assert.Equal(t, 10, records.gotOptions.MaxRecords)
}

func TestReconcile_NoIdentitySkipsLookup(t *testing.T) {
	records := &fakeRecords{}
	r := reconcile.New(records)

	outcome, err := r.Reconcile(context.Background(), reconcile.Submission{
		Name: "Alice",
		Tier: models.TierTrial,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, records.listCalls)
	assert.Equal(t, reconcile.ActionCreate, outcome.Action)
	// No email means no Email field at all, not an empty string.
	assert.Empty(t, records.created.Email)
}

func TestReconcile_AnonymousFallback(t *testing.T) {
	records := &fakeRecords{}
	r := reconcile.New(records)

	_, err := r.Reconcile(context.Background(), reconcile.Submission{Tier: models.TierPaid})
	require.NoError(t, err)

	assert.Equal(t, "Anonymous", records.created.User)
}

func TestReconcile_LookupFailureFailsOpen(t *testing.T) {
	records := &fakeRecords{listErr: &models.UpstreamError{Provider: "airtable", Message: "rate limited"}}
	r := reconcile.New(records)

	outcome, err := r.Reconcile(context.Background(), reconcile.Submission{
		Email:  "alice@example.com",
		Tier:   models.TierTrial,
		Assets: []models.AssetRef{{URL: "https://cdn/a.jpg"}},
	})
	require.NoError(t, err)

	assert.Equal(t, reconcile.ActionCreate, outcome.Action)
	assert.Equal(t, 1, records.createCalls)
}

func TestReconcile_EmailMatchIsCaseSensitive(t *testing.T) {
	records := &fakeRecords{listResult: []airtable.Record{pendingRecord("rec1", "Alice@Example.com")}}
	r := reconcile.New(records)

	outcome, err := r.Reconcile(context.Background(), reconcile.Submission{
		Email: "alice@example.com",
		Tier:  models.TierTrial,
	})
	require.NoError(t, err)

	// The differently-cased record is not this identity's, so no gate.
	assert.Equal(t, reconcile.ActionCreate, outcome.Action)
}

func TestReconcile_ScansWindowForFirstPending(t *testing.T) {
	records := &fakeRecords{listResult: []airtable.Record{
		completedRecord("rec3", "alice@example.com"),
		pendingRecord("rec2", "alice@example.com"),
		pendingRecord("rec1", "alice@example.com"),
	}}
	r := reconcile.New(records)

	outcome, err := r.Reconcile(context.Background(), reconcile.Submission{
		Email:  "alice@example.com",
		Tier:   models.TierPaid,
		Assets: []models.AssetRef{{URL: "https://cdn/final.jpg"}},
	})
	require.NoError(t, err)

	assert.Equal(t, reconcile.ActionAmend, outcome.Action)
	assert.Equal(t, "rec2", outcome.RecordID)
}

func TestReconcile_ImageURLBecomesAttachment(t *testing.T) {
	records := &fakeRecords{}
	r := reconcile.New(records)

	_, err := r.Reconcile(context.Background(), reconcile.Submission{
		Name:     "Alice",
		ImageURL: "https://img.example.com/out.png",
		Tier:     models.TierPaid,
	})
	require.NoError(t, err)

	require.Len(t, records.created.Image, 1)
	assert.Equal(t, "https://img.example.com/out.png", records.created.Image[0].URL)
}
