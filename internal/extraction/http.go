package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

// maxResponseSize bounds the JSON body read from the extraction service
const maxResponseSize = 1 << 20

// HTTPExtractor posts the encoded image to a remote extraction service
// and decodes its JSON answer
type HTTPExtractor struct {
	url         string
	contentType string
	client      *http.Client
	retry       storage.RetryPolicy
}

// NewHTTPExtractor creates an extractor for the given service URL
func NewHTTPExtractor(url string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		url:         url,
		contentType: "image/jpeg",
		client:      storage.NewHTTPClient(timeout),
		retry:       storage.RetryPolicy{Attempts: 2, Backoff: 500 * time.Millisecond},
	}
}

// WithRetry overrides the retry policy
func (h *HTTPExtractor) WithRetry(policy storage.RetryPolicy) *HTTPExtractor {
	h.retry = policy
	return h
}

// Extract implements Extractor
func (h *HTTPExtractor) Extract(ctx context.Context, image []byte) (models.ExtractionResult, error) {
	start := time.Now()
	resp, attempts, err := storage.DoWithRetry(ctx, h.client, h.retry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(image))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", h.contentType)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return models.ExtractionResult{}, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return models.ExtractionResult{}, apperrors.NewTimeoutError("extraction timed out", err)
		}
		return models.ExtractionResult{}, apperrors.NewExtractionError("extraction request failed", err)
	}
	defer resp.Body.Close()

	var result models.ExtractionResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&result); err != nil {
		return models.ExtractionResult{}, apperrors.NewExtractionError("invalid extraction response", err)
	}
	if err := validation.ValidateExtraction(result); err != nil {
		return models.ExtractionResult{}, apperrors.NewExtractionError(fmt.Sprintf("extraction response rejected: %v", err), err)
	}

	logger.WithFields(logrus.Fields{
		"attempts":    attempts,
		"confidence":  result.Confidence,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Extraction completed")

	return result, nil
}
