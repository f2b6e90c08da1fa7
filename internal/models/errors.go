package models

import "fmt"

// ValidationError is a missing or malformed required input. Terminal; maps
// to 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("missing required field %q", e.Field)
}

// PolicyError is a submission rejected by the tier rules. Terminal; maps
// to 403.
type PolicyError struct {
	Message string
}

func (e *PolicyError) Error() string {
	return e.Message
}

// UpstreamError is an error payload (or an unusable success payload) from
// the generation provider or the record service. Surfaced with the upstream
// status when one is known, otherwise 500. Never retried.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
