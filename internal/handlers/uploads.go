package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"image-studio-backend/internal/reconcile"
)

type UploadsHandler struct {
	store      AssetStore
	reconciler SubmissionReconciler
}

func NewUploadsHandler(store AssetStore, reconciler SubmissionReconciler) *UploadsHandler {
	return &UploadsHandler{store: store, reconciler: reconciler}
}

// Upload godoc
// @Summary     Upload submission images
// @Description Stages the uploaded files in the bucket and reconciles them
// @Description against the identity's submission records. A pending trial
// @Description record rejects further trial submissions.
// @Accept      multipart/form-data
// @Produce     json
// @Param       name formData string false "Display name"
// @Param       email formData string false "Identity email"
// @Param       uploadColumn formData string false "Tier column selector"
// @Param       images formData file false "Uploaded images"
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /upload_images [post]
func (h *UploadsHandler) Upload(c *gin.Context) {
	input, err := parseSubmissionForm(c, "name")
	if err != nil {
		writeError(c, err)
		return
	}

	assets, err := storeAssets(c.Request.Context(), h.store, input.Email, input.Files)
	if err != nil {
		writeError(c, err)
		return
	}

	outcome, err := h.reconciler.Reconcile(c.Request.Context(), reconcile.Submission{
		Name:   input.Name,
		Email:  input.Email,
		Prompt: input.Prompt,
		Tier:   input.Tier,
		Assets: assets,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome.Response)
}
