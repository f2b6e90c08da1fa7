package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"image-studio-backend/internal/models"
)

func TestParseUploadColumn(t *testing.T) {
	tier, err := models.ParseUploadColumn("")
	assert.NoError(t, err)
	assert.Equal(t, models.TierPaid, tier)

	tier, err = models.ParseUploadColumn("Image_Upload2")
	assert.NoError(t, err)
	assert.Equal(t, models.TierPaid, tier)

	tier, err = models.ParseUploadColumn("Image_Upload")
	assert.NoError(t, err)
	assert.Equal(t, models.TierTrial, tier)
}

func TestParseUploadColumn_Unknown(t *testing.T) {
	_, err := models.ParseUploadColumn("Secret_Column")

	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "Secret_Column")
}

func TestTier_ImageField(t *testing.T) {
	assert.Equal(t, "Image_Upload", models.TierTrial.ImageField())
	assert.Equal(t, "Image_Upload2", models.TierPaid.ImageField())
}

func TestTier_MaxImages(t *testing.T) {
	assert.Equal(t, 2, models.TierTrial.MaxImages())
	assert.Equal(t, 10, models.TierPaid.MaxImages())
}
