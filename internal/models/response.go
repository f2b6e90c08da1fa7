package models

type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    string         `json:"type,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
