package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/internal/logger"
	"go-invoice-capture/internal/repository"
	"go-invoice-capture/internal/storage"
	"go-invoice-capture/pkg/models"
	"go-invoice-capture/pkg/validation"
)

// InvoiceService receives invoices uploaded by capture clients
type InvoiceService interface {
	// Ingest stores an uploaded invoice. Re-delivery of a known id is not
	// an error; the result reports it as a duplicate.
	Ingest(ctx context.Context, payload models.UploadPayload) (*IngestResult, error)

	Get(ctx context.Context, id string) (*models.ReceivedInvoice, error)
	List(ctx context.Context, limit int) ([]*models.ReceivedInvoice, error)
}

// IngestResult is the outcome of one delivery
type IngestResult struct {
	Invoice   *models.ReceivedInvoice
	Duplicate bool
}

type invoiceService struct {
	repo   repository.InvoiceRepository
	images storage.ImageStore
	clock  func() time.Time
}

// NewInvoiceService creates the ingest service. images may be nil, in which
// case image references are accepted without being resolved.
func NewInvoiceService(repo repository.InvoiceRepository, images storage.ImageStore) InvoiceService {
	return &invoiceService{repo: repo, images: images, clock: time.Now}
}

func (s *invoiceService) Ingest(ctx context.Context, payload models.UploadPayload) (*IngestResult, error) {
	if err := validation.ValidatePayload(payload); err != nil {
		return nil, err
	}

	size := len(payload.ImageBytes)
	if size > 0 {
		if ct := http.DetectContentType(payload.ImageBytes); !strings.HasPrefix(ct, "image/") {
			return nil, apperrors.NewValidationError("imageBytes is not an image ("+ct+")", nil)
		}
	} else if s.images != nil {
		data, err := s.images.GetImage(ctx, payload.ImageRef)
		if err != nil {
			return nil, apperrors.NewNetworkError("image reference could not be resolved", err)
		}
		size = len(data)
	}

	invoice := &models.ReceivedInvoice{
		ID:            payload.ID,
		ImageRef:      payload.ImageRef,
		ImageSize:     size,
		Supplier:      payload.Supplier,
		Amount:        payload.Amount,
		Date:          payload.Date,
		InvoiceNumber: payload.InvoiceNumber,
		Confidence:    payload.Confidence,
		CapturedAt:    payload.Timestamp.UTC(),
		ReceivedAt:    s.clock().UTC(),
	}

	created, err := s.repo.Save(ctx, invoice, payload.ImageBytes)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to store invoice", err)
	}

	if !created {
		stored, err := s.repo.Get(ctx, invoice.ID)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to load stored invoice", err)
		}
		invoice = stored
	}

	logger.WithFields(logrus.Fields{
		"invoice_id": invoice.ID,
		"duplicate":  !created,
		"image_size": invoice.ImageSize,
		"offloaded":  invoice.ImageRef != "",
		"confidence": invoice.Confidence,
	}).Info("Invoice received")

	return &IngestResult{Invoice: invoice, Duplicate: !created}, nil
}

func (s *invoiceService) Get(ctx context.Context, id string) (*models.ReceivedInvoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrInvoiceNotFound) {
		return nil, apperrors.NewNotFoundError("invoice "+id+" not found", err)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to load invoice", err)
	}
	return inv, nil
}

func (s *invoiceService) List(ctx context.Context, limit int) ([]*models.ReceivedInvoice, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	invoices, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list invoices", err)
	}
	return invoices, nil
}
