package models

import "fmt"

// Tier is the submission category. Trial submissions write to the trial
// image field and are limited in count; paid submissions write to the final
// image field.
type Tier int

const (
	TierPaid Tier = iota
	TierTrial
)

const (
	trialImageField = "Image_Upload"
	paidImageField  = "Image_Upload2"
)

// ParseUploadColumn resolves the caller-supplied uploadColumn selector into
// a Tier. An absent selector means the default (paid) tier; anything other
// than the two known column names is rejected at the boundary.
func ParseUploadColumn(column string) (Tier, error) {
	switch column {
	case "", paidImageField:
		return TierPaid, nil
	case trialImageField:
		return TierTrial, nil
	default:
		return TierPaid, &ValidationError{Field: "uploadColumn", Message: fmt.Sprintf("unknown upload column %q", column)}
	}
}

// ImageField is the record field this tier's assets are written to.
func (t Tier) ImageField() string {
	if t == TierTrial {
		return trialImageField
	}
	return paidImageField
}

// MaxImages is the per-request image cap for the tier.
func (t Tier) MaxImages() int {
	if t == TierTrial {
		return 2
	}
	return 10
}

func (t Tier) String() string {
	if t == TierTrial {
		return "trial"
	}
	return "paid"
}
