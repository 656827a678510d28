package validation

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/pkg/models"
)

func TestValidateCropArea(t *testing.T) {
	tests := []struct {
		name    string
		area    models.CropArea
		wantErr bool
	}{
		{"full frame", models.FullFrame, false},
		{"inner", models.CropArea{X: 10, Y: 20, Width: 50, Height: 60}, false},
		{"edge touching", models.CropArea{X: 40, Y: 0, Width: 60, Height: 100}, false},
		{"negative x", models.CropArea{X: -1, Y: 0, Width: 50, Height: 50}, true},
		{"overflow width", models.CropArea{X: 60, Y: 0, Width: 50, Height: 50}, true},
		{"overflow height", models.CropArea{X: 0, Y: 51, Width: 50, Height: 50}, true},
		{"empty", models.CropArea{X: 0, Y: 0, Width: 0, Height: 50}, true},
		{"nan", models.CropArea{X: math.NaN(), Y: 0, Width: 50, Height: 50}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCropArea(tt.area)
			if tt.wantErr {
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEnhancement(t *testing.T) {
	assert.NoError(t, ValidateEnhancement(models.NeutralEnhancement()))
	assert.NoError(t, ValidateEnhancement(models.RecognitionEnhancement()))
	assert.NoError(t, ValidateEnhancement(models.EnhancementParams{Brightness: 300, Contrast: 0, Saturation: 0}))

	bad := models.RecognitionEnhancement()
	bad.Sharpness = -0.5
	assert.Error(t, ValidateEnhancement(bad))

	bad = models.NeutralEnhancement()
	bad.Contrast = math.Inf(1)
	assert.Error(t, ValidateEnhancement(bad))
}

func TestValidateRecord(t *testing.T) {
	valid := func() *models.QueuedInvoiceRecord {
		return &models.QueuedInvoiceRecord{
			ID:         uuid.NewString(),
			Image:      []byte{0xff, 0xd8},
			Extraction: models.ExtractionResult{Confidence: 94},
			CreatedAt:  time.Now(),
		}
	}

	assert.NoError(t, ValidateRecord(valid()))
	assert.Error(t, ValidateRecord(nil))

	rec := valid()
	rec.ID = "inv-1"
	assert.Error(t, ValidateRecord(rec))

	rec = valid()
	rec.Image = nil
	assert.Error(t, ValidateRecord(rec))

	rec = valid()
	rec.Extraction.Confidence = 101
	assert.Error(t, ValidateRecord(rec))

	rec = valid()
	rec.CreatedAt = time.Time{}
	assert.Error(t, ValidateRecord(rec))
}

func TestValidatePayload(t *testing.T) {
	id := uuid.NewString()
	assert.NoError(t, ValidatePayload(models.UploadPayload{ID: id, ImageBytes: []byte{1}, Confidence: 50}))
	assert.NoError(t, ValidatePayload(models.UploadPayload{ID: id, ImageRef: "https://blob/x", Confidence: 50}))
	assert.Error(t, ValidatePayload(models.UploadPayload{ID: id, Confidence: 50}))
	assert.Error(t, ValidatePayload(models.UploadPayload{ID: id, ImageBytes: []byte{1}, ImageRef: "x"}))
	assert.Error(t, ValidatePayload(models.UploadPayload{ID: "nope", ImageBytes: []byte{1}}))
	assert.Error(t, ValidatePayload(models.UploadPayload{ID: id, ImageBytes: []byte{1}, Confidence: -3}))
}
