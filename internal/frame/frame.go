package frame

import (
	"fmt"
	"image"
	"image/draw"
	"time"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/pkg/models"
)

// Frame is a decoded raster image in memory: RGBA, non-premultiplied,
// row-major with a stride of 4*Width bytes.
type Frame struct {
	Width      int
	Height     int
	Pix        []byte
	CapturedAt time.Time
	Facing     models.FacingMode
}

// New allocates a zeroed (fully transparent) frame
func New(width, height int) Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return Frame{Width: width, Height: height, Pix: make([]byte, width*height*4)}
}

// Validate checks that the dimensions and the pixel buffer agree
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return apperrors.NewMalformedFrameError(
			fmt.Sprintf("frame dimensions must be positive, got %dx%d", f.Width, f.Height), nil)
	}
	if want := f.Width * f.Height * 4; len(f.Pix) != want {
		return apperrors.NewMalformedFrameError(
			fmt.Sprintf("pixel buffer has %d bytes, want %d for %dx%d", len(f.Pix), want, f.Width, f.Height), nil)
	}
	return nil
}

// IsZero reports whether f carries no pixels
func (f Frame) IsZero() bool {
	return f.Width == 0 && f.Height == 0 && len(f.Pix) == 0
}

// Clone returns a deep copy of f
func (f Frame) Clone() Frame {
	c := f
	c.Pix = append([]byte(nil), f.Pix...)
	return c
}

// WithPixels returns a frame carrying f's metadata over new pixels
func (f Frame) WithPixels(width, height int, pix []byte) Frame {
	return Frame{Width: width, Height: height, Pix: pix, CapturedAt: f.CapturedAt, Facing: f.Facing}
}

// Offset returns the index of the first byte of pixel (x, y)
func (f Frame) Offset(x, y int) int {
	return (y*f.Width + x) * 4
}

// Equal reports whether two frames have the same dimensions and pixels
func (f Frame) Equal(o Frame) bool {
	if f.Width != o.Width || f.Height != o.Height || len(f.Pix) != len(o.Pix) {
		return false
	}
	for i := range f.Pix {
		if f.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// NRGBA wraps a copy of the frame's pixels as an image for library use
func (f Frame) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    append([]byte(nil), f.Pix...),
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// FromImage converts any image into a frame, copying the pixels.
// The result always starts at the origin with a tight stride.
func FromImage(img image.Image) Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var src *image.NRGBA
	if n, ok := img.(*image.NRGBA); ok {
		src = n
	} else {
		src = image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(src, src.Rect, img, b.Min, draw.Src)
		b = src.Rect
	}

	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		start := src.PixOffset(b.Min.X, b.Min.Y+y)
		copy(pix[y*w*4:(y+1)*w*4], src.Pix[start:start+w*4])
	}
	return Frame{Width: w, Height: h, Pix: pix}
}
