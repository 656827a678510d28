// Package tesseract runs field extraction locally with the Tesseract OCR
// engine. It needs libtesseract at build and run time.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/internal/extraction"
	"go-invoice-capture/pkg/models"
)

// Extractor recognises text with Tesseract and parses invoice fields from it
type Extractor struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

var _ extraction.Extractor = (*Extractor)(nil)

// New creates a Tesseract extractor; languages default to English
func New(languages ...string) *Extractor {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Extractor{languages: languages, clientFactory: gosseract.NewClient}
}

// Extract implements extraction.Extractor. Recognition itself cannot be
// interrupted, so ctx is checked before and after it.
func (e *Extractor) Extract(ctx context.Context, image []byte) (models.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ExtractionResult{}, err
	}

	type outcome struct {
		lines []string
		conf  float64
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		lines, conf, err := e.recognize(image)
		done <- outcome{lines, conf, err}
	}()

	select {
	case <-ctx.Done():
		return models.ExtractionResult{}, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return models.ExtractionResult{}, apperrors.NewExtractionError("ocr failed", out.err)
		}
		return extraction.ParseFields(out.lines, out.conf), nil
	}
}

func (e *Extractor) recognize(image []byte) ([]string, float64, error) {
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return nil, 0, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return nil, 0, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return nil, 0, fmt.Errorf("recognize text: %w", err)
	}

	return strings.Split(text, "\n"), meanWordConfidence(c), nil
}

func meanWordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes))
}
