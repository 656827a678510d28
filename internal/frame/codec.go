package frame

import (
	"bytes"
	"os"

	"github.com/disintegration/imaging"

	apperrors "go-invoice-capture/internal/errors"
)

// DefaultJPEGQuality is the capture encoding quality
const DefaultJPEGQuality = 90

// Codec converts frames to and from a transferable image payload
type Codec interface {
	Encode(f Frame) ([]byte, error)
	Decode(data []byte) (Frame, error)
	ContentType() string
}

// JPEGCodec encodes frames as JPEG. Alpha is flattened by the encoder.
type JPEGCodec struct {
	Quality int
}

// NewJPEGCodec creates a JPEG codec; out-of-range qualities fall back to the default
func NewJPEGCodec(quality int) *JPEGCodec {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &JPEGCodec{Quality: quality}
}

// Encode serialises the frame
func (c *JPEGCodec) Encode(f Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, f.NRGBA(), imaging.JPEG, imaging.JPEGQuality(c.Quality)); err != nil {
		return nil, apperrors.NewInternalError("failed to encode frame", err)
	}
	return buf.Bytes(), nil
}

// Decode parses any format imaging understands, honouring EXIF orientation
func (c *JPEGCodec) Decode(data []byte) (Frame, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Frame{}, apperrors.NewMalformedFrameError("failed to decode image", err)
	}
	return FromImage(img), nil
}

// ContentType is the MIME type of encoded payloads
func (c *JPEGCodec) ContentType() string {
	return "image/jpeg"
}

// Load reads an image file from disk into a frame
func Load(path string) (Frame, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		if os.IsPermission(err) {
			return Frame{}, apperrors.NewPermissionDeniedError("image file is not readable", err)
		}
		return Frame{}, apperrors.NewMalformedFrameError("failed to open image", err)
	}
	return FromImage(img), nil
}

// Save writes a frame to disk; the format follows the file extension
func Save(f Frame, path string, quality int) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := imaging.Save(f.NRGBA(), path, imaging.JPEGQuality(quality)); err != nil {
		return apperrors.NewInternalError("failed to save image", err)
	}
	return nil
}
