// Package queue is the durable store of approved invoices awaiting upload.
// Records survive process restarts; only the sync path marks them synced.
package queue

import (
	"context"
	"fmt"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/pkg/models"
)

// Store persists queued invoice records.
//
// Append must be durable before it returns. MarkSynced is idempotent and a
// no-op for unknown ids. ListUnsynced returns records in insertion order.
// PurgeSynced never removes an unsynced record.
type Store interface {
	Append(ctx context.Context, rec *models.QueuedInvoiceRecord) error
	MarkSynced(ctx context.Context, id string) error
	ListUnsynced(ctx context.Context) ([]*models.QueuedInvoiceRecord, error)
	PurgeSynced(ctx context.Context) (int, error)
	Discard(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.QueuedInvoiceRecord, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Stats counts queued records
type Stats struct {
	Total    int `json:"total"`
	Unsynced int `json:"unsynced"`
	Synced   int `json:"synced"`
}

// Drivers accepted by Open
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// Open creates the store for a configured driver
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLiteStore(path)
	case DriverFile:
		return NewFileStore(path)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown queue driver %q", driver), nil)
	}
}

func duplicateError(id string) error {
	return apperrors.NewValidationError(fmt.Sprintf("record %s is already queued", id), nil)
}

func notFoundError(id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("record %s is not queued", id), nil)
}
