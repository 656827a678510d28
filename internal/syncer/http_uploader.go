package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/internal/logger"
	"go-invoice-capture/internal/storage"
	"go-invoice-capture/pkg/models"
	"go-invoice-capture/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Uploader delivers one queued record to the remote endpoint
type Uploader interface {
	Upload(ctx context.Context, rec *models.QueuedInvoiceRecord) error
}

// UploaderFunc adapts a function to Uploader
type UploaderFunc func(ctx context.Context, rec *models.QueuedInvoiceRecord) error

// Upload implements Uploader
func (f UploaderFunc) Upload(ctx context.Context, rec *models.QueuedInvoiceRecord) error {
	return f(ctx, rec)
}

// HTTPUploader posts records as JSON to {endpoint}/invoices
type HTTPUploader struct {
	url    string
	client *http.Client
	retry  storage.RetryPolicy
	images storage.ImageStore
}

// NewHTTPUploader creates an uploader for the endpoint base URL
func NewHTTPUploader(endpoint string, timeout time.Duration, attempts int) (*HTTPUploader, error) {
	if err := validation.NewURLValidator().ValidateEndpointURL(endpoint); err != nil {
		return nil, err
	}
	policy := storage.DefaultRetryPolicy()
	if attempts > 0 {
		policy.Attempts = attempts
	}
	return &HTTPUploader{
		url:    validation.JoinEndpoint(endpoint, "invoices"),
		client: storage.NewHTTPClient(timeout),
		retry:  policy,
	}, nil
}

// WithImageStore makes the uploader offload images and send a reference instead
func (u *HTTPUploader) WithImageStore(images storage.ImageStore) *HTTPUploader {
	u.images = images
	return u
}

// WithRetry overrides the retry policy
func (u *HTTPUploader) WithRetry(policy storage.RetryPolicy) *HTTPUploader {
	u.retry = policy
	return u
}

// URL returns the full invoices URL
func (u *HTTPUploader) URL() string {
	return u.url
}

// Upload implements Uploader. Only a 2xx answer counts as delivered.
func (u *HTTPUploader) Upload(ctx context.Context, rec *models.QueuedInvoiceRecord) error {
	payload := models.NewUploadPayload(rec)

	if u.images != nil {
		contentType := rec.ContentType
		if contentType == "" {
			contentType = "image/jpeg"
		}
		ref, err := u.images.PutImage(ctx, rec.ID, rec.Image, contentType)
		if err != nil {
			return apperrors.NewUploadError("image offload failed", err)
		}
		payload.ImageRef = ref
		payload.ImageBytes = nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewInternalError("failed to encode upload payload", err)
	}

	start := time.Now()
	resp, attempts, err := storage.DoWithRetry(ctx, u.client, u.retry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return apperrors.NewUploadError("upload of "+rec.ID+" failed", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	logger.WithFields(logrus.Fields{
		"record_id":   rec.ID,
		"status":      resp.StatusCode,
		"attempts":    attempts,
		"offloaded":   payload.ImageRef != "",
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Record uploaded")

	return nil
}
