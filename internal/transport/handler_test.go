package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-invoice-capture/internal/config"
	"go-invoice-capture/internal/repository"
	"go-invoice-capture/internal/service"
	"go-invoice-capture/internal/syncer"
	"go-invoice-capture/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestHandler(maxBody int64) (http.Handler, *repository.MemoryRepository) {
	cfg := config.Default()
	cfg.MaxRequestBodySize = maxBody
	repo := repository.NewMemoryRepository()
	return NewHandler(service.NewInvoiceService(repo, nil), cfg), repo
}

func uploadBody(t *testing.T, id string) []byte {
	t.Helper()
	body, err := json.Marshal(models.UploadPayload{
		ID:            id,
		ImageBytes:    []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'},
		Supplier:      "Flour & Co. Suppliers",
		Amount:        "$1,245.50",
		Date:          "2024-01-15",
		InvoiceNumber: "INV-2024-0156",
		Confidence:    94,
		Timestamp:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func do(h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestHandler(1 << 20)
	w := do(h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"available"`) {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}

func TestReceiveInvoice(t *testing.T) {
	id := uuid.NewString()

	tests := []struct {
		name           string
		body           []byte
		maxBody        int64
		expectedStatus int
	}{
		{"malformed json", []byte(`{"id":`), 1 << 20, http.StatusBadRequest},
		{"missing id", []byte(`{"imageBytes":"/9j/4A=="}`), 1 << 20, http.StatusBadRequest},
		{"id not a uuid", []byte(`{"id":"7","imageBytes":"/9j/4A=="}`), 1 << 20, http.StatusBadRequest},
		{"too large", uploadBody(t, id), 32, http.StatusRequestEntityTooLarge},
		{"valid", uploadBody(t, id), 1 << 20, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(tt.maxBody)
			w := do(h, http.MethodPost, "/invoices", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if w.Code >= 400 {
				var resp models.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Message == "" {
					t.Errorf("Expected error envelope, got %s", w.Body.String())
				}
			}
		})
	}
}

func TestReceiveInvoice_RedeliveryIsDuplicate(t *testing.T) {
	h, repo := newTestHandler(1 << 20)
	id := uuid.NewString()

	first := do(h, http.MethodPost, "/invoices", uploadBody(t, id))
	if first.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", first.Code)
	}

	second := do(h, http.MethodPost, "/invoices", uploadBody(t, id))
	if second.Code != http.StatusOK {
		t.Fatalf("Expected 200 on redelivery, got %d", second.Code)
	}
	var resp models.UploadResponse
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Duplicate || resp.ID != id {
		t.Errorf("Unexpected response %+v", resp)
	}

	all, _ := repo.List(context.Background(), 0)
	if len(all) != 1 {
		t.Errorf("Expected one stored invoice, got %d", len(all))
	}
}

func TestGetInvoice(t *testing.T) {
	h, _ := newTestHandler(1 << 20)
	id := uuid.NewString()
	do(h, http.MethodPost, "/invoices", uploadBody(t, id))

	w := do(h, http.MethodGet, "/invoices/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var inv models.ReceivedInvoice
	if err := json.Unmarshal(w.Body.Bytes(), &inv); err != nil {
		t.Fatal(err)
	}
	if inv.InvoiceNumber != "INV-2024-0156" || inv.ImageSize != 10 {
		t.Errorf("Unexpected invoice %+v", inv)
	}

	missing := do(h, http.MethodGet, "/invoices/"+uuid.NewString(), nil)
	if missing.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", missing.Code)
	}

	list := do(h, http.MethodGet, "/invoices?limit=10", nil)
	if list.Code != http.StatusOK || !strings.Contains(list.Body.String(), id) {
		t.Errorf("Expected list to contain %s, got %d %s", id, list.Code, list.Body.String())
	}
}

func TestHTTPUploaderAgainstEndpoint(t *testing.T) {
	h, repo := newTestHandler(1 << 20)
	server := httptest.NewServer(h)
	defer server.Close()

	uploader, err := syncer.NewHTTPUploader(server.URL, 5*time.Second, 1)
	if err != nil {
		t.Fatal(err)
	}

	rec := &models.QueuedInvoiceRecord{
		ID:          uuid.NewString(),
		Image:       []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'},
		ContentType: "image/jpeg",
		Extraction:  models.ExtractionResult{Supplier: "A", Confidence: 80},
		CreatedAt:   time.Now().UTC(),
	}

	// delivering twice is safe
	for i := 0; i < 2; i++ {
		if err := uploader.Upload(context.Background(), rec); err != nil {
			t.Fatalf("Upload %d failed: %v", i, err)
		}
	}

	got, err := repo.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Supplier != "A" || got.ImageSize != len(rec.Image) {
		t.Errorf("Unexpected stored invoice %+v", got)
	}
}
