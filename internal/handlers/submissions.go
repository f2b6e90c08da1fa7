package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"image-studio-backend/internal/models"
	"image-studio-backend/internal/reconcile"
)

type SubmissionsHandler struct {
	store      AssetStore
	reconciler SubmissionReconciler
}

func NewSubmissionsHandler(store AssetStore, reconciler SubmissionReconciler) *SubmissionsHandler {
	return &SubmissionsHandler{store: store, reconciler: reconciler}
}

// SaveSubmission godoc
// @Summary     Record a generation result
// @Description Stores any attached images in the bucket and writes the
// @Description generation result to the identity's submission record,
// @Description creating or amending per the tier rules.
// @Accept      multipart/form-data
// @Produce     json
// @Param       imageUrl formData string true "Generated image URL"
// @Param       user formData string true "Display name"
// @Param       prompt formData string false "Generation prompt"
// @Param       email formData string false "Identity email"
// @Param       uploadColumn formData string false "Tier column selector"
// @Param       images formData file false "Uploaded images"
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /airtable [post]
func (h *SubmissionsHandler) SaveSubmission(c *gin.Context) {
	input, err := parseSubmissionForm(c, "user")
	if err != nil {
		writeError(c, err)
		return
	}
	if input.ImageURL == "" {
		writeError(c, &models.ValidationError{Field: "imageUrl"})
		return
	}
	if input.Name == "" {
		writeError(c, &models.ValidationError{Field: "user"})
		return
	}

	assets, err := storeAssets(c.Request.Context(), h.store, input.Email, input.Files)
	if err != nil {
		writeError(c, err)
		return
	}

	outcome, err := h.reconciler.Reconcile(c.Request.Context(), reconcile.Submission{
		Name:     input.Name,
		Email:    input.Email,
		Prompt:   input.Prompt,
		ImageURL: input.ImageURL,
		Tier:     input.Tier,
		Assets:   assets,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome.Response)
}
