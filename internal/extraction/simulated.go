package extraction

import (
	"context"
	"time"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/pkg/models"
)

// DefaultSimulatedDelay mimics the latency of a remote extraction service
const DefaultSimulatedDelay = 2 * time.Second

// DemoResult is the fixed result returned by Simulated
var DemoResult = models.ExtractionResult{
	Supplier:      "Flour & Co. Suppliers",
	Amount:        "$1,245.50",
	Date:          "2024-01-15",
	InvoiceNumber: "INV-2024-0156",
	Confidence:    94,
}

// Simulated returns DemoResult after Delay. It is used for demos and when no
// extraction backend is configured.
type Simulated struct {
	Delay  time.Duration
	Result models.ExtractionResult
}

// NewSimulated creates a simulated extractor returning DemoResult
func NewSimulated(delay time.Duration) *Simulated {
	return &Simulated{Delay: delay, Result: DemoResult}
}

// Extract waits for the delay or ctx, whichever comes first
func (s *Simulated) Extract(ctx context.Context, image []byte) (models.ExtractionResult, error) {
	if len(image) == 0 {
		return models.ExtractionResult{}, apperrors.NewExtractionError("empty image", nil)
	}
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return models.ExtractionResult{}, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return models.ExtractionResult{}, err
	}
	return s.Result, nil
}
