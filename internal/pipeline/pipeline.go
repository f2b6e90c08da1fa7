// Package pipeline orchestrates the two-stage generation flow: an optional
// vision description of a supplied image, then a single text-to-image call
// with the composed prompt.
package pipeline

import (
	"context"
	"fmt"

	"image-studio-backend/internal/models"
	"image-studio-backend/internal/openai"
)

// describeInstruction is the fixed instruction for the description stage.
const describeInstruction = "Describe this image in detail, focusing on the main subject, setting, lighting, and style. Be concise but descriptive."

// VisionGenerator is the provider surface the pipeline drives.
type VisionGenerator interface {
	DescribeImage(ctx context.Context, instruction string, data []byte, mimeType string) (string, error)
	GenerateImage(ctx context.Context, prompt string) (*openai.ImageGenerationResponse, error)
}

// SourceImage is an image supplied for modification, already read out of
// the request.
type SourceImage struct {
	Data     []byte
	MimeType string
}

type Request struct {
	Prompt string
	Image  *SourceImage
}

type Pipeline struct {
	provider VisionGenerator
}

func New(provider VisionGenerator) *Pipeline {
	return &Pipeline{provider: provider}
}

// Generate runs the pipeline once. Each call is independent: descriptions
// are never cached across requests, and nothing is retried.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*openai.ImageGenerationResponse, error) {
	if req.Prompt == "" && req.Image == nil {
		return nil, &models.ValidationError{Field: "prompt", Message: "missing 'prompt' or 'image'"}
	}

	finalPrompt := req.Prompt
	if req.Image != nil {
		description, err := p.provider.DescribeImage(ctx, describeInstruction, req.Image.Data, req.Image.MimeType)
		if err != nil {
			return nil, err
		}
		finalPrompt = ComposePrompt(description, req.Prompt)
	}

	result, err := p.provider.GenerateImage(ctx, finalPrompt)
	if err != nil {
		return nil, err
	}
	if result.FirstURL() == "" {
		// An empty result is a failure, not a partial success.
		return nil, &models.UpstreamError{Provider: "openai", Message: "no image url in generation response"}
	}
	return result, nil
}

// ComposePrompt merges a derived description with the user's modification
// request while asking the model to keep the original's character.
func ComposePrompt(description, modification string) string {
	return fmt.Sprintf("Create an image based on this description: \"%s\". \n\nModification request: %s. \n\nEnsure the modification is applied while keeping the original vibe.", description, modification)
}
