// Package airtable is a typed client for the tabular-record service holding
// submission records. It covers the three operations the reconciler needs:
// filtered list, create, and partial update.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"image-studio-backend/internal/models"
)

const providerName = "airtable"

type Client struct {
	baseURL    string
	baseID     string
	tableName  string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, baseID, tableName, apiKey string) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		baseID:    baseID,
		tableName: tableName,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SubmissionFields is a record's field set. Empty values are omitted on
// write, which is what makes partial updates partial: the service leaves
// absent fields untouched.
type SubmissionFields struct {
	Prompt      string            `json:"Prompt,omitempty"`
	User        string            `json:"User,omitempty"`
	Email       string            `json:"Email,omitempty"`
	Image       []models.AssetRef `json:"Image,omitempty"`
	TrialImages []models.AssetRef `json:"Image_Upload,omitempty"`
	FinalImages []models.AssetRef `json:"Image_Upload2,omitempty"`
	Timestamp   string            `json:"Timestamp,omitempty"`
}

// Pending reports whether the record has trial images but no final images.
func (f SubmissionFields) Pending() bool {
	return len(f.TrialImages) > 0 && len(f.FinalImages) == 0
}

type Record struct {
	ID          string           `json:"id"`
	CreatedTime time.Time        `json:"createdTime"`
	Fields      SubmissionFields `json:"fields"`
}

type ListOptions struct {
	FilterByFormula string
	SortField       string
	SortDesc        bool
	MaxRecords      int
}

type listResponse struct {
	Records []Record  `json:"records"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type recordRequest struct {
	Fields SubmissionFields `json:"fields"`
}

// ListRecords queries the table with the given filter and sort.
func (c *Client) ListRecords(ctx context.Context, opts ListOptions) ([]Record, error) {
	query := url.Values{}
	if opts.FilterByFormula != "" {
		query.Set("filterByFormula", opts.FilterByFormula)
	}
	if opts.SortField != "" {
		query.Set("sort[0][field]", opts.SortField)
		direction := "asc"
		if opts.SortDesc {
			direction = "desc"
		}
		query.Set("sort[0][direction]", direction)
	}
	if opts.MaxRecords > 0 {
		query.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
	}

	reqURL := c.tableURL()
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result listResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &models.UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Message: fmt.Sprintf("unparseable response: %s", string(body))}
	}
	if result.Error != nil {
		return nil, &models.UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Message: result.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &models.UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Message: string(body)}
	}
	return result.Records, nil
}

// CreateRecord writes a new record and returns the service's response as a
// structured map.
func (c *Client) CreateRecord(ctx context.Context, fields SubmissionFields) (map[string]any, error) {
	return c.write(ctx, http.MethodPost, c.tableURL(), fields)
}

// UpdateRecord sends a partial update: only the supplied fields change.
func (c *Client) UpdateRecord(ctx context.Context, recordID string, fields SubmissionFields) (map[string]any, error) {
	return c.write(ctx, http.MethodPatch, c.tableURL()+"/"+recordID, fields)
}

func (c *Client) write(ctx context.Context, method, reqURL string, fields SubmissionFields) (map[string]any, error) {
	jsonData, err := json.Marshal(recordRequest{Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		// The caller always gets a structured result, even when the service
		// answers with something that is not JSON.
		return map[string]any{
			"error": "unparseable upstream response",
			"body":  string(body),
		}, nil
	}

	if errObj, ok := result["error"]; ok {
		return nil, &models.UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Message: errorMessage(errObj)}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &models.UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Message: string(body)}
	}
	return result, nil
}

func (c *Client) tableURL() string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(c.tableName))
}

func errorMessage(errObj any) string {
	if m, ok := errObj.(map[string]any); ok {
		if msg, ok := m["message"].(string); ok {
			return msg
		}
	}
	if s, ok := errObj.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", errObj)
}

// EscapeFormulaString quotes a value for use inside a single-quoted
// filterByFormula string literal.
func EscapeFormulaString(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}
