package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/internal/repository"
	"go-invoice-capture/pkg/models"
)

var jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

type stubImages struct {
	data map[string][]byte
}

func (s *stubImages) PutImage(ctx context.Context, id string, data []byte, contentType string) (string, error) {
	return "", errors.New("read only")
}

func (s *stubImages) GetImage(ctx context.Context, ref string) ([]byte, error) {
	if d, ok := s.data[ref]; ok {
		return d, nil
	}
	return nil, errors.New("blob not found")
}

func payload() models.UploadPayload {
	return models.UploadPayload{
		ID:            uuid.NewString(),
		ImageBytes:    jpegHeader,
		Supplier:      "Flour & Co. Suppliers",
		Amount:        "$1,245.50",
		Date:          "2024-01-15",
		InvoiceNumber: "INV-2024-0156",
		Confidence:    94,
		Timestamp:     time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
	}
}

func TestIngest(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(p *models.UploadPayload)
		images     *stubImages
		expectErr  apperrors.ErrorType
		expectSize int
	}{
		{
			name:       "inline image",
			mutate:     func(p *models.UploadPayload) {},
			expectSize: len(jpegHeader),
		},
		{
			name:      "bad id",
			mutate:    func(p *models.UploadPayload) { p.ID = "42" },
			expectErr: apperrors.ErrorTypeValidation,
		},
		{
			name:      "no image",
			mutate:    func(p *models.UploadPayload) { p.ImageBytes = nil },
			expectErr: apperrors.ErrorTypeValidation,
		},
		{
			name:      "not an image",
			mutate:    func(p *models.UploadPayload) { p.ImageBytes = []byte("hello world") },
			expectErr: apperrors.ErrorTypeValidation,
		},
		{
			name:      "confidence out of range",
			mutate:    func(p *models.UploadPayload) { p.Confidence = 101 },
			expectErr: apperrors.ErrorTypeValidation,
		},
		{
			name: "resolved reference",
			mutate: func(p *models.UploadPayload) {
				p.ImageBytes = nil
				p.ImageRef = "https://acct.blob.core.windows.net/invoices/a.jpg"
			},
			images:     &stubImages{data: map[string][]byte{"https://acct.blob.core.windows.net/invoices/a.jpg": make([]byte, 7)}},
			expectSize: 7,
		},
		{
			name: "unresolvable reference",
			mutate: func(p *models.UploadPayload) {
				p.ImageBytes = nil
				p.ImageRef = "https://acct.blob.core.windows.net/invoices/missing.jpg"
			},
			images:    &stubImages{},
			expectErr: apperrors.ErrorTypeNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var svc InvoiceService
			if tt.images != nil {
				svc = NewInvoiceService(repository.NewMemoryRepository(), tt.images)
			} else {
				svc = NewInvoiceService(repository.NewMemoryRepository(), nil)
			}

			p := payload()
			tt.mutate(&p)
			res, err := svc.Ingest(context.Background(), p)

			if tt.expectErr != "" {
				if !apperrors.IsType(err, tt.expectErr) {
					t.Fatalf("Expected %s error, got %v", tt.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if res.Duplicate {
				t.Error("First delivery must not be a duplicate")
			}
			if res.Invoice.ImageSize != tt.expectSize {
				t.Errorf("Expected image size %d, got %d", tt.expectSize, res.Invoice.ImageSize)
			}
			if !res.Invoice.CapturedAt.Equal(p.Timestamp) {
				t.Errorf("Expected captured time %v, got %v", p.Timestamp, res.Invoice.CapturedAt)
			}
		})
	}
}

func TestIngest_Redelivery(t *testing.T) {
	svc := NewInvoiceService(repository.NewMemoryRepository(), nil)
	p := payload()

	first, err := svc.Ingest(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}

	p.Supplier = "Someone Else"
	second, err := svc.Ingest(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Duplicate {
		t.Error("Expected second delivery to be reported as duplicate")
	}
	if second.Invoice.Supplier != first.Invoice.Supplier {
		t.Errorf("Expected first delivery to win, got supplier %q", second.Invoice.Supplier)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := NewInvoiceService(repository.NewMemoryRepository(), nil)
	_, err := svc.Get(context.Background(), uuid.NewString())
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}
