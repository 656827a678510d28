package enhance

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/internal/frame"
)

// NormalizeDegrees maps any angle into [0, 360)
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	// -0 and values that round up to 360
	if d == 0 || d >= 360 {
		return 0
	}
	return d
}

// RotatedSize returns the canvas size needed to hold a w x h frame
// rotated by deg degrees
func RotatedSize(w, h int, deg float64) (int, int) {
	theta := NormalizeDegrees(deg) * math.Pi / 180
	cos, sin := math.Abs(math.Cos(theta)), math.Abs(math.Sin(theta))
	newW := int(math.Round(float64(w)*cos + float64(h)*sin))
	newH := int(math.Round(float64(w)*sin + float64(h)*cos))
	return newW, newH
}

// Rotate turns the frame clockwise about its centre. The canvas grows to fit
// the rotated frame and uncovered pixels are transparent.
func Rotate(f frame.Frame, deg float64) (frame.Frame, error) {
	if err := f.Validate(); err != nil {
		return frame.Frame{}, err
	}
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return frame.Frame{}, apperrors.NewValidationError(fmt.Sprintf("rotation must be finite, got %v", deg), nil)
	}

	d := NormalizeDegrees(deg)
	var out *image.NRGBA
	switch d {
	case 0:
		return f.Clone(), nil
	case 90:
		out = imaging.Rotate270(f.NRGBA())
	case 180:
		out = imaging.Rotate180(f.NRGBA())
	case 270:
		out = imaging.Rotate90(f.NRGBA())
	default:
		return rotateArbitrary(f, d), nil
	}
	return f.WithPixels(out.Rect.Dx(), out.Rect.Dy(), out.Pix), nil
}

// rotateArbitrary samples each destination pixel centre from the source by
// inverse mapping with nearest-neighbour lookup
func rotateArbitrary(f frame.Frame, deg float64) frame.Frame {
	newW, newH := RotatedSize(f.Width, f.Height, deg)
	out := f.WithPixels(newW, newH, make([]byte, newW*newH*4))

	theta := deg * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)
	srcCX, srcCY := float64(f.Width)/2, float64(f.Height)/2
	dstCX, dstCY := float64(newW)/2, float64(newH)/2

	for y := 0; y < newH; y++ {
		dy := float64(y) + 0.5 - dstCY
		for x := 0; x < newW; x++ {
			dx := float64(x) + 0.5 - dstCX
			sx := int(math.Floor(dx*cos + dy*sin + srcCX))
			sy := int(math.Floor(-dx*sin + dy*cos + srcCY))
			if sx < 0 || sy < 0 || sx >= f.Width || sy >= f.Height {
				continue
			}
			si := f.Offset(sx, sy)
			di := out.Offset(x, y)
			copy(out.Pix[di:di+4], f.Pix[si:si+4])
		}
	}
	return out
}
