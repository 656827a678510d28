package validation

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/pkg/models"
)

func inPercentRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

// ValidateCropArea checks that a crop rectangle lies within the frame
func ValidateCropArea(area models.CropArea) error {
	for name, v := range map[string]float64{
		"x": area.X, "y": area.Y, "width": area.Width, "height": area.Height,
	} {
		if !inPercentRange(v) {
			return apperrors.NewValidationError(fmt.Sprintf("crop %s must be within [0,100], got %v", name, v), nil)
		}
	}
	// tolerate float noise from percentage arithmetic
	const eps = 1e-9
	if area.X+area.Width > 100+eps {
		return apperrors.NewValidationError("crop x + width exceeds 100", nil)
	}
	if area.Y+area.Height > 100+eps {
		return apperrors.NewValidationError("crop y + height exceeds 100", nil)
	}
	if area.Width == 0 || area.Height == 0 {
		return apperrors.NewValidationError("crop area is empty", nil)
	}
	return nil
}

// ValidateEnhancement rejects negative or non-finite params
func ValidateEnhancement(p models.EnhancementParams) error {
	for name, v := range map[string]float64{
		"brightness": p.Brightness, "contrast": p.Contrast,
		"saturation": p.Saturation, "sharpness": p.Sharpness,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return apperrors.NewValidationError(fmt.Sprintf("%s must be a non-negative number, got %v", name, v), nil)
		}
	}
	return nil
}

// ValidateAngle rejects rotations that are not finite
func ValidateAngle(deg float64) error {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return apperrors.NewValidationError(fmt.Sprintf("rotation must be finite, got %v", deg), nil)
	}
	return nil
}

// ValidateExtraction checks the range of an extraction result's confidence
func ValidateExtraction(res models.ExtractionResult) error {
	if !inPercentRange(res.Confidence) {
		return apperrors.NewValidationError(fmt.Sprintf("confidence must be within [0,100], got %v", res.Confidence), nil)
	}
	return nil
}

// ValidateRecord checks a record before it is queued or accepted by the endpoint
func ValidateRecord(rec *models.QueuedInvoiceRecord) error {
	if rec == nil {
		return apperrors.NewValidationError("record is nil", nil)
	}
	if _, err := uuid.Parse(rec.ID); err != nil {
		return apperrors.NewValidationError("record id must be a uuid", err)
	}
	if len(rec.Image) == 0 {
		return apperrors.NewValidationError("record has no image", nil)
	}
	if rec.CreatedAt.IsZero() {
		return apperrors.NewValidationError("record has no creation time", nil)
	}
	return ValidateExtraction(rec.Extraction)
}

// ValidatePayload checks an upload body received by the endpoint
func ValidatePayload(p models.UploadPayload) error {
	if _, err := uuid.Parse(p.ID); err != nil {
		return apperrors.NewValidationError("id must be a uuid", err)
	}
	if len(p.ImageBytes) == 0 && p.ImageRef == "" {
		return apperrors.NewValidationError("one of imageBytes or imageRef is required", nil)
	}
	if len(p.ImageBytes) > 0 && p.ImageRef != "" {
		return apperrors.NewValidationError("imageBytes and imageRef are mutually exclusive", nil)
	}
	return ValidateExtraction(models.ExtractionResult{Confidence: p.Confidence})
}
