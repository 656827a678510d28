// Package enhance implements the pure image transforms applied while a
// capture is edited: color adjustment, sharpening, rotation, cropping and
// document bound detection.
package enhance

import (
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"go-invoice-capture/internal/frame"
	"go-invoice-capture/pkg/models"
	"go-invoice-capture/pkg/validation"
)

// Rec.709 luminance weights used by the saturate filter
const (
	lumR = 0.213
	lumG = 0.715
	lumB = 0.072
)

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func toByte(v float64) uint8 {
	return uint8(math.RoundToEven(clamp255(v)))
}

// colorAdjuster applies brightness, contrast and saturation in that order
type colorAdjuster struct {
	brightness float64
	contrast   float64
	saturation float64
}

func newColorAdjuster(p models.EnhancementParams) colorAdjuster {
	return colorAdjuster{
		brightness: p.Brightness / 100,
		contrast:   p.Contrast / 100,
		saturation: p.Saturation / 100,
	}
}

func (a colorAdjuster) apply(c color.NRGBA) color.NRGBA {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)

	// a stage at 100% is skipped so neutral settings stay exact
	if a.brightness != 1 {
		r = clamp255(r * a.brightness)
		g = clamp255(g * a.brightness)
		b = clamp255(b * a.brightness)
	}

	if a.contrast != 1 {
		r = clamp255((r-127.5)*a.contrast + 127.5)
		g = clamp255((g-127.5)*a.contrast + 127.5)
		b = clamp255((b-127.5)*a.contrast + 127.5)
	}

	if s := a.saturation; s != 1 {
		r, g, b = (lumR+(1-lumR)*s)*r+(lumG-lumG*s)*g+(lumB-lumB*s)*b,
			(lumR-lumR*s)*r+(lumG+(1-lumG)*s)*g+(lumB-lumB*s)*b,
			(lumR-lumR*s)*r+(lumG-lumG*s)*g+(lumB+(1-lumB)*s)*b
	}

	return color.NRGBA{R: toByte(r), G: toByte(g), B: toByte(b), A: c.A}
}

// AdjustForRecognition applies brightness, contrast and saturation per pixel.
// Sharpness is ignored; see Enhance.
func AdjustForRecognition(f frame.Frame, p models.EnhancementParams) (frame.Frame, error) {
	if err := f.Validate(); err != nil {
		return frame.Frame{}, err
	}
	if err := validation.ValidateEnhancement(p); err != nil {
		return frame.Frame{}, err
	}
	if p.Brightness == 100 && p.Contrast == 100 && p.Saturation == 100 {
		return f.Clone(), nil
	}

	adj := newColorAdjuster(p)
	out := imaging.AdjustFunc(f.NRGBA(), adj.apply)
	return f.WithPixels(f.Width, f.Height, out.Pix), nil
}

// Enhance applies the color adjustment followed by sharpening
func Enhance(f frame.Frame, p models.EnhancementParams) (frame.Frame, error) {
	adjusted, err := AdjustForRecognition(f, p)
	if err != nil {
		return frame.Frame{}, err
	}
	if p.Sharpness == 0 {
		return adjusted, nil
	}
	return Sharpen(adjusted, p.Sharpness)
}
