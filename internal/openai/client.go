// Package openai is a minimal typed client for the two OpenAI endpoints the
// generation pipeline needs: chat completions with image input (vision
// description) and image generations.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"image-studio-backend/internal/models"
)

const (
	visionModel     = "gpt-4o"
	generationModel = "dall-e-3"
	generationSize  = "1024x1024"

	describeMaxTokens = 300

	providerName = "openai"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError mirrors the provider's error envelope. It may arrive with any
// status code, so it is checked on every response.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type imageGenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

// ImageGenerationResponse is the provider's image generation payload. It is
// returned to callers as-is so handler responses mirror the upstream shape.
type ImageGenerationResponse struct {
	Created int64            `json:"created,omitempty"`
	Data    []GeneratedImage `json:"data"`
	Error   *apiError        `json:"error,omitempty"`
}

type GeneratedImage struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// FirstURL returns the first usable image URL, or "" when the response
// carries none.
func (r *ImageGenerationResponse) FirstURL() string {
	for _, img := range r.Data {
		if img.URL != "" {
			return img.URL
		}
	}
	return ""
}

// DescribeImage asks the vision model for a textual description of the
// supplied image. The instruction is fixed; callers compose the description
// into generation prompts themselves.
func (c *Client) DescribeImage(ctx context.Context, instruction string, data []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	reqBody := chatCompletionRequest{
		Model:     visionModel,
		MaxTokens: describeMaxTokens,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: instruction},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				},
			},
		},
	}

	var result chatCompletionResponse
	if err := c.post(ctx, "/chat/completions", reqBody, &result, func() *apiError { return result.Error }); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", &models.UpstreamError{Provider: providerName, Message: "no description in vision response"}
	}
	return result.Choices[0].Message.Content, nil
}

// GenerateImage requests exactly one image at the fixed resolution.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*ImageGenerationResponse, error) {
	reqBody := imageGenerationRequest{
		Model:  generationModel,
		Prompt: prompt,
		N:      1,
		Size:   generationSize,
	}

	var result ImageGenerationResponse
	if err := c.post(ctx, "/images/generations", reqBody, &result, func() *apiError { return result.Error }); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, out any, errOf func() *apiError) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &models.UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Message: fmt.Sprintf("unparseable response: %s", string(body))}
	}

	// The provider reports failures in an error envelope; a non-2xx status
	// without one still counts as a failure.
	if apiErr := errOf(); apiErr != nil {
		return &models.UpstreamError{Provider: providerName, StatusCode: statusIfError(resp.StatusCode), Message: apiErr.Message}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &models.UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Message: string(body)}
	}
	return nil
}

func statusIfError(code int) int {
	if code >= http.StatusBadRequest {
		return code
	}
	return 0
}
