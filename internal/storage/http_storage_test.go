package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func postTo(url string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(`{"id":"x"}`))
	}
}

var fastRetry = RetryPolicy{Attempts: 3, Backoff: 10 * time.Millisecond}

func TestDoWithRetry_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int // Status codes to return in sequence
		expectRetries int   // Expected number of requests
		expectError   bool
		errorContains string
	}{
		{
			name:          "Success on first attempt",
			responses:     []int{200},
			expectRetries: 1,
		},
		{
			name:          "Any 2xx is success",
			responses:     []int{201},
			expectRetries: 1,
		},
		{
			name:          "Success on second attempt after 5xx",
			responses:     []int{500, 200},
			expectRetries: 2,
		},
		{
			name:          "4xx client error - no retry",
			responses:     []int{404},
			expectRetries: 1,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "4xx after 5xx - should retry until 4xx then stop",
			responses:     []int{500, 409},
			expectRetries: 2,
			expectError:   true,
			errorContains: "client error: status code 409",
		},
		{
			name:          "All 5xx errors - retry all attempts",
			responses:     []int{500, 502, 503},
			expectRetries: 3,
			expectError:   true,
			errorContains: "server error: status code 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestCount int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(atomic.AddInt32(&requestCount, 1)) - 1
				if n >= len(tt.responses) {
					w.WriteHeader(500)
					w.Write([]byte("Unexpected request"))
					return
				}
				w.WriteHeader(tt.responses[n])
				w.Write([]byte(fmt.Sprintf("status %d", tt.responses[n])))
			}))
			defer server.Close()

			resp, attempts, err := DoWithRetry(context.Background(), NewHTTPClient(5*time.Second), fastRetry, postTo(server.URL))
			if resp != nil {
				resp.Body.Close()
			}

			if got := int(atomic.LoadInt32(&requestCount)); got != tt.expectRetries {
				t.Errorf("Expected %d requests, got %d", tt.expectRetries, got)
			}
			if attempts != tt.expectRetries {
				t.Errorf("Expected %d reported attempts, got %d", tt.expectRetries, attempts)
			}

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error, but got none")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got: %s", tt.errorContains, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error, got: %s", err.Error())
			}
		})
	}
}

func TestDoWithRetry_StatusErrorIsInspectable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, _, err := DoWithRetry(context.Background(), NewHTTPClient(time.Second), fastRetry, postTo(server.URL))
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || statusErr.Retryable() {
		t.Errorf("Unexpected status error %+v", statusErr)
	}
}

func TestDoWithRetry_NetworkError_Retry(t *testing.T) {
	var requestCount int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requestCount, 1) < 3 {
			// Simulate network error by closing connection
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	start := time.Now()
	resp, _, err := DoWithRetry(context.Background(), NewHTTPClient(5*time.Second), RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}, postTo(server.URL))
	duration := time.Since(start)

	if err != nil {
		t.Fatalf("Expected success after retries, got error: %s", err.Error())
	}
	resp.Body.Close()

	if got := atomic.LoadInt32(&requestCount); got != 3 {
		t.Errorf("Expected 3 requests, got %d", got)
	}

	// linear backoff: 50ms + 100ms
	if duration < 150*time.Millisecond {
		t.Errorf("Expected at least 150ms due to backoff, took %v", duration)
	}
}

func TestDoWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := DoWithRetry(ctx, NewHTTPClient(5*time.Second), RetryPolicy{Attempts: 5, Backoff: time.Second}, postTo(server.URL))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Expected backoff to stop when the context ended")
	}
}
