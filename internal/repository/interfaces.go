package repository

import (
	"context"

	"go-invoice-capture/pkg/models"
)

// InvoiceRepository stores invoices delivered to the upload endpoint.
// Saving is idempotent by id: the first delivery wins.
type InvoiceRepository interface {
	// Save stores the invoice and its image bytes (nil when offloaded).
	// created is false when the id was already stored.
	Save(ctx context.Context, invoice *models.ReceivedInvoice, image []byte) (created bool, err error)

	// Get retrieves a stored invoice
	Get(ctx context.Context, id string) (*models.ReceivedInvoice, error)

	// List returns the most recently received invoices first
	List(ctx context.Context, limit int) ([]*models.ReceivedInvoice, error)

	// Image returns the stored image bytes of an invoice, if any
	Image(ctx context.Context, id string) ([]byte, error)
}
