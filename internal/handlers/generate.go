package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"image-studio-backend/internal/pipeline"
)

type GenerateHandler struct {
	pipeline Generator
}

func NewGenerateHandler(p Generator) *GenerateHandler {
	return &GenerateHandler{pipeline: p}
}

// Generate godoc
// @Summary     Generate or modify an image
// @Description Generates an image from a prompt. When an image file is
// @Description supplied, a description of it is derived first and merged
// @Description with the prompt, so the result modifies the original.
// @Accept      json
// @Accept      multipart/form-data
// @Produce     json
// @Param       prompt formData string false "Generation prompt"
// @Param       image formData file false "Image to modify"
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /ai [post]
func (h *GenerateHandler) Generate(c *gin.Context) {
	req, err := parseGenerateRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.pipeline.Generate(c.Request.Context(), *req)
	if err != nil {
		writeError(c, err)
		return
	}

	// The success shape mirrors the provider's response.
	c.JSON(http.StatusOK, result)
}

func parseGenerateRequest(c *gin.Context) (*pipeline.Request, error) {
	var req pipeline.Request

	switch {
	case c.ContentType() == "application/json":
		var body struct {
			Prompt string `json:"prompt"`
		}
		// Body errors fall through to the prompt/image presence check.
		_ = c.ShouldBindJSON(&body)
		req.Prompt = body.Prompt

	case strings.HasPrefix(c.ContentType(), "multipart/"):
		req.Prompt = c.PostForm("prompt")

		file, header, err := c.Request.FormFile("image")
		if err == nil {
			data, readErr := io.ReadAll(file)
			file.Close()
			if readErr != nil {
				return nil, readErr
			}
			req.Image = &pipeline.SourceImage{
				Data:     data,
				MimeType: header.Header.Get("Content-Type"),
			}
		}
	}

	return &req, nil
}
