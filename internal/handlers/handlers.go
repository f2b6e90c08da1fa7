package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"image-studio-backend/internal/models"
	"image-studio-backend/internal/openai"
	"image-studio-backend/internal/pipeline"
	"image-studio-backend/internal/reconcile"
)

// Generator runs the two-stage generation pipeline.
type Generator interface {
	Generate(ctx context.Context, req pipeline.Request) (*openai.ImageGenerationResponse, error)
}

// AssetStore stages one uploaded file and returns its public reference.
type AssetStore interface {
	Store(identity, filename string, data []byte, contentType string) (models.AssetRef, error)
}

// SubmissionReconciler maps a submission onto the identity's records.
type SubmissionReconciler interface {
	Reconcile(ctx context.Context, sub reconcile.Submission) (*reconcile.Outcome, error)
}

// submissionInput is a request's form fields resolved once at the boundary:
// text fields as strings, file parts as headers, tier as a validated enum.
type submissionInput struct {
	Name     string
	Email    string
	Prompt   string
	ImageURL string
	Tier     models.Tier
	Files    []*multipart.FileHeader
}

// parseSubmissionForm reads the multipart form shared by the submission
// endpoints. nameField differs between them ("user" vs "name").
func parseSubmissionForm(c *gin.Context, nameField string) (*submissionInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, &models.ValidationError{Field: "form", Message: "invalid multipart form: " + err.Error()}
	}

	tier, err := models.ParseUploadColumn(c.PostForm("uploadColumn"))
	if err != nil {
		return nil, err
	}

	input := &submissionInput{
		Name:     c.PostForm(nameField),
		Email:    c.PostForm("email"),
		Prompt:   c.PostForm("prompt"),
		ImageURL: c.PostForm("imageUrl"),
		Tier:     tier,
		Files:    form.File["images"],
	}

	if len(input.Files) > tier.MaxImages() {
		return nil, &models.ValidationError{
			Field:   "images",
			Message: fmt.Sprintf("at most %d images allowed for the %s tier", tier.MaxImages(), tier),
		}
	}
	return input, nil
}

// storeAssets stages every file concurrently and joins. The first error
// wins; files already stored are not rolled back.
func storeAssets(ctx context.Context, store AssetStore, identity string, files []*multipart.FileHeader) ([]models.AssetRef, error) {
	refs := make([]models.AssetRef, len(files))
	g, _ := errgroup.WithContext(ctx)

	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			src, err := fh.Open()
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", fh.Filename, err)
			}
			data, err := io.ReadAll(src)
			src.Close()
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", fh.Filename, err)
			}

			ref, err := store.Store(identity, fh.Filename, data, fh.Header.Get("Content-Type"))
			if err != nil {
				return err
			}
			refs[i] = ref
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

// writeError converts any failure into the structured error response shape.
// Nothing escapes the handler boundary unconverted.
func writeError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: validationErr.Error(), Type: "validation_error"})
		return
	}

	var policyErr *models.PolicyError
	if errors.As(err, &policyErr) {
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: policyErr.Error(), Type: "policy_error"})
		return
	}

	var upstreamErr *models.UpstreamError
	if errors.As(err, &upstreamErr) {
		status := http.StatusInternalServerError
		if upstreamErr.StatusCode >= http.StatusBadRequest {
			status = upstreamErr.StatusCode
		}
		c.JSON(status, models.ErrorResponse{
			Error:   upstreamErr.Message,
			Type:    "upstream_error",
			Details: map[string]any{"provider": upstreamErr.Provider},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error(), Type: "unexpected_error"})
}

// MethodNotAllowed is the router's fallback for known paths hit with the
// wrong method.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, models.ErrorResponse{Error: "method not allowed", Type: "method_error"})
}
