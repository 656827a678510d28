package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusError is a non-2xx response from a remote collaborator
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.StatusCode >= 500 {
		return fmt.Sprintf("server error: status code %d", e.StatusCode)
	}
	return fmt.Sprintf("client error: status code %d", e.StatusCode)
}

// Retryable reports whether the request may succeed if sent again
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500
}

// NewHTTPClient builds the client shared by the uploader, extractor and prober
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		// one endpoint, a handful of requests in flight at most
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,

		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("too many redirects (limit: 3)")
			}
			return nil
		},
	}
}

// RetryPolicy controls DoWithRetry
type RetryPolicy struct {
	Attempts int
	// Backoff is multiplied by the attempt number before each retry
	Backoff time.Duration
}

// DefaultRetryPolicy is three attempts with a linear one second backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: time.Second}
}

// DoWithRetry sends the request built by newRequest until it gets a 2xx.
// Transport errors and 5xx responses are retried; 4xx responses are not.
// The caller owns the body of the returned response.
func DoWithRetry(ctx context.Context, client *http.Client, policy RetryPolicy, newRequest func(ctx context.Context) (*http.Request, error)) (*http.Response, int, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, time.Duration(attempt)*policy.Backoff); err != nil {
				return nil, attempt, err
			}
		}

		req, err := newRequest(ctx)
		if err != nil {
			return nil, attempt + 1, fmt.Errorf("invalid request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, attempt + 1, ctx.Err()
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, attempt + 1, nil
		}

		// drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()

		statusErr := &StatusError{StatusCode: resp.StatusCode}
		lastErr = statusErr
		if !statusErr.Retryable() {
			return nil, attempt + 1, statusErr
		}
	}

	return nil, attempts, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
