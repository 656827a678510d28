package frame

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "go-invoice-capture/internal/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantErr bool
	}{
		{"valid", New(3, 2), false},
		{"zero width", Frame{Width: 0, Height: 2, Pix: []byte{}}, true},
		{"negative height", Frame{Width: 2, Height: -1, Pix: []byte{}}, true},
		{"short buffer", Frame{Width: 2, Height: 2, Pix: make([]byte, 15)}, true},
		{"long buffer", Frame{Width: 2, Height: 2, Pix: make([]byte, 17)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMalformedFrame))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFromImageRoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	img.SetNRGBA(1, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	f := FromImage(img)
	require.NoError(t, f.Validate())
	assert.Equal(t, 4, f.Width)
	assert.Equal(t, 3, f.Height)

	off := f.Offset(1, 2)
	assert.Equal(t, []byte{10, 20, 30, 255}, f.Pix[off:off+4])

	back := f.NRGBA()
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, back.NRGBAAt(1, 2))

	// the image must not alias the frame
	back.Pix[0] = 99
	assert.Equal(t, byte(0), f.Pix[0])
}

func TestFromImageSubImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	img.SetNRGBA(5, 5, color.NRGBA{R: 200, A: 255})
	sub := img.SubImage(image.Rect(4, 4, 7, 7))

	f := FromImage(sub)
	assert.Equal(t, 3, f.Width)
	assert.Equal(t, 3, f.Height)
	off := f.Offset(1, 1)
	assert.Equal(t, byte(200), f.Pix[off])
}

func TestJPEGCodec(t *testing.T) {
	codec := NewJPEGCodec(0)
	assert.Equal(t, DefaultJPEGQuality, codec.Quality)
	assert.Equal(t, "image/jpeg", codec.ContentType())

	f := New(16, 8)
	for i := range f.Pix {
		f.Pix[i] = 128
	}
	data, err := codec.Encode(f)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 16, decoded.Width)
	assert.Equal(t, 8, decoded.Height)

	_, err = codec.Encode(Frame{Width: 1, Height: 1})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMalformedFrame))

	_, err = codec.Decode([]byte("not an image"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMalformedFrame))
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.png")
	f := New(5, 4)
	for i := range f.Pix {
		f.Pix[i] = 255
	}
	require.NoError(t, Save(f, path, DefaultJPEGQuality))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, f.Equal(loaded))

	_, err = Load(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}
