package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/internal/storage"
	"go-invoice-capture/pkg/models"
)

type fakeImageStore struct {
	puts []string
	err  error
}

func (f *fakeImageStore) PutImage(ctx context.Context, id string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.puts = append(f.puts, id)
	return "https://acct.blob.core.windows.net/invoices/" + storage.BlobName(id, contentType), nil
}

func (f *fakeImageStore) GetImage(ctx context.Context, ref string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func fastUploader(t *testing.T, url string, attempts int) *HTTPUploader {
	t.Helper()
	u, err := NewHTTPUploader(url, 5*time.Second, attempts)
	require.NoError(t, err)
	return u.WithRetry(storage.RetryPolicy{Attempts: attempts, Backoff: time.Millisecond})
}

func TestHTTPUploader_PostsPayload(t *testing.T) {
	rec := newRecord("Flour & Co. Suppliers")

	var got models.UploadPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/invoices", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	u := fastUploader(t, server.URL+"/api/", 1)
	assert.Equal(t, server.URL+"/api/invoices", u.URL())
	require.NoError(t, u.Upload(context.Background(), rec))

	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Image, got.ImageBytes)
	assert.Empty(t, got.ImageRef)
	assert.Equal(t, "Flour & Co. Suppliers", got.Supplier)
	assert.Equal(t, "INV-2024-0156", got.InvoiceNumber)
	assert.Equal(t, 94.0, got.Confidence)
	assert.True(t, rec.CreatedAt.Equal(got.Timestamp))
}

func TestHTTPUploader_StatusHandling(t *testing.T) {
	tests := []struct {
		name          string
		statuses      []int
		expectError   bool
		expectedCalls int32
	}{
		{"ok", []int{http.StatusOK}, false, 1},
		{"no content", []int{http.StatusNoContent}, false, 1},
		{"server error then ok", []int{http.StatusBadGateway, http.StatusOK}, false, 2},
		{"server error exhausted", []int{500, 500, 500}, true, 3},
		{"client error not retried", []int{http.StatusUnprocessableEntity}, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.statuses[int(n)-1])
			}))
			defer server.Close()

			err := fastUploader(t, server.URL, 3).Upload(context.Background(), newRecord("A"))
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpload))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expectedCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestHTTPUploader_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := fastUploader(t, url, 2).Upload(context.Background(), newRecord("A"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpload))
}

func TestHTTPUploader_ImageOffload(t *testing.T) {
	rec := newRecord("A")
	images := &fakeImageStore{}

	var got models.UploadPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	u := fastUploader(t, server.URL, 1).WithImageStore(images)
	require.NoError(t, u.Upload(context.Background(), rec))

	assert.Equal(t, []string{rec.ID}, images.puts)
	assert.Nil(t, got.ImageBytes)
	assert.Contains(t, got.ImageRef, "invoices/"+rec.ID+".jpg")
	// the queued record keeps its bytes
	assert.NotEmpty(t, rec.Image)
}

func TestHTTPUploader_ImageOffloadFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	u := fastUploader(t, server.URL, 1).WithImageStore(&fakeImageStore{err: errors.New("blob down")})
	err := u.Upload(context.Background(), newRecord("A"))

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpload))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestNewHTTPUploader_InvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "ftp://example.com", "https://example.com/?x=1"} {
		_, err := NewHTTPUploader(endpoint, time.Second, 1)
		assert.Error(t, err, endpoint)
	}
}
