package enhance

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/internal/frame"
	"go-invoice-capture/pkg/models"
	"go-invoice-capture/pkg/validation"
)

// CropRect converts a percentage area to a pixel rectangle inside a w x h frame
func CropRect(w, h int, area models.CropArea) image.Rectangle {
	x0, cw := spanPixels(w, area.X, area.Width)
	y0, ch := spanPixels(h, area.Y, area.Height)
	return image.Rect(x0, y0, x0+cw, y0+ch)
}

func spanPixels(size int, startPct, lenPct float64) (int, int) {
	start := int(math.Round(startPct * float64(size) / 100))
	length := int(math.Round(lenPct * float64(size) / 100))
	if length > size {
		length = size
	}
	if start+length > size {
		start = size - length
	}
	if start < 0 {
		start = 0
	}
	return start, length
}

// Crop extracts the sub-rectangle described by area
func Crop(f frame.Frame, area models.CropArea) (frame.Frame, error) {
	if err := f.Validate(); err != nil {
		return frame.Frame{}, err
	}
	if err := validation.ValidateCropArea(area); err != nil {
		return frame.Frame{}, err
	}

	rect := CropRect(f.Width, f.Height, area)
	if rect.Empty() {
		return frame.Frame{}, apperrors.NewValidationError("crop area rounds to zero pixels", nil)
	}
	if rect.Min.X == 0 && rect.Min.Y == 0 && rect.Dx() == f.Width && rect.Dy() == f.Height {
		return f.Clone(), nil
	}

	out := imaging.Crop(f.NRGBA(), rect)
	return f.WithPixels(out.Rect.Dx(), out.Rect.Dy(), out.Pix), nil
}
