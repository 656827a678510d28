package repository

import (
	"context"
	"sync"

	"go-invoice-capture/pkg/models"
)

type memoryEntry struct {
	invoice models.ReceivedInvoice
	image   []byte
}

// MemoryRepository keeps invoices in process memory
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	order   []string
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]*memoryEntry)}
}

// Save implements InvoiceRepository
func (r *MemoryRepository) Save(ctx context.Context, invoice *models.ReceivedInvoice, image []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[invoice.ID]; ok {
		return false, nil
	}
	r.entries[invoice.ID] = &memoryEntry{
		invoice: *invoice,
		image:   append([]byte(nil), image...),
	}
	r.order = append(r.order, invoice.ID)
	return true, nil
}

// Get implements InvoiceRepository
func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.ReceivedInvoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	inv := e.invoice
	return &inv, nil
}

// List implements InvoiceRepository
func (r *MemoryRepository) List(ctx context.Context, limit int) ([]*models.ReceivedInvoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.ReceivedInvoice, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		inv := r.entries[r.order[i]].invoice
		out = append(out, &inv)
	}
	return out, nil
}

// Image implements InvoiceRepository
func (r *MemoryRepository) Image(ctx context.Context, id string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	return append([]byte(nil), e.image...), nil
}
