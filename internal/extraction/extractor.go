// Package extraction holds the clients of the field extraction collaborator.
// How fields are extracted is opaque to the capture pipeline; it only relies
// on the Extractor contract.
package extraction

import (
	"context"

	"go-invoice-capture/pkg/models"
)

// Extractor turns an encoded invoice image into structured fields.
// Implementations must honour ctx cancellation.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (models.ExtractionResult, error)
}

// Func adapts a function to the Extractor interface
type Func func(ctx context.Context, image []byte) (models.ExtractionResult, error)

// Extract calls f
func (f Func) Extract(ctx context.Context, image []byte) (models.ExtractionResult, error) {
	return f(ctx, image)
}
