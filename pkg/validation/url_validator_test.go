package validation

import (
	"testing"

	apperrors "go-invoice-capture/internal/errors"
)

func TestNewURLValidator(t *testing.T) {
	validator := NewURLValidator()
	if validator == nil {
		t.Fatal("Expected non-nil URL validator")
	}

	expectedSchemes := []string{"http", "https"}
	if len(validator.allowedSchemes) != len(expectedSchemes) {
		t.Errorf("Expected %d schemes, got %d", len(expectedSchemes), len(validator.allowedSchemes))
	}
	for i, scheme := range expectedSchemes {
		if validator.allowedSchemes[i] != scheme {
			t.Errorf("Expected scheme %s, got %s", scheme, validator.allowedSchemes[i])
		}
	}
}

func TestValidateEndpointURL(t *testing.T) {
	validator := NewURLValidator()

	tests := []struct {
		name    string
		url     string
		wantMsg string
	}{
		{"https endpoint", "https://api.example.com", ""},
		{"endpoint with path", "http://192.168.1.1:8080/v1/", ""},
		{"empty", "   ", "URL cannot be empty"},
		{"no scheme", "not-a-url", "URL scheme not allowed"},
		{"ftp", "ftp://example.com", "URL scheme not allowed"},
		{"no host", "http://", "URL must have a valid host"},
		{"no host with path", "https:///invoices", "URL must have a valid host"},
		{"query", "https://example.com/?token=1", "Base URL must not carry a query or fragment"},
		{"fragment", "https://example.com/#top", "Base URL must not carry a query or fragment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateEndpointURL(tt.url)
			if tt.wantMsg == "" {
				if err != nil {
					t.Errorf("Expected %q to pass validation, got error: %v", tt.url, err)
				}
				return
			}
			appErr, ok := err.(*apperrors.AppError)
			if !ok {
				t.Fatalf("Expected AppError, got: %T", err)
			}
			if appErr.Type != apperrors.ErrorTypeValidation {
				t.Errorf("Expected validation error, got %s", appErr.Type)
			}
			if appErr.Message != tt.wantMsg {
				t.Errorf("Expected %q error, got: %s", tt.wantMsg, appErr.Message)
			}
		})
	}
}

func TestValidateEndpointURL_MalformedURL(t *testing.T) {
	validator := NewURLValidator()
	if err := validator.ValidateEndpointURL("://missing-scheme"); err == nil {
		t.Error("Expected malformed URL to fail validation")
	}
}

func TestValidateEndpointURL_RestrictedHosts(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"https"}, []string{"sync.example.com"})

	if err := validator.ValidateEndpointURL("https://sync.example.com:8443"); err != nil {
		t.Errorf("Expected allowed host to pass, got %v", err)
	}

	err := validator.ValidateEndpointURL("https://untrusted.com")
	appErr, ok := err.(*apperrors.AppError)
	if !ok || appErr.Message != "URL host not allowed" {
		t.Errorf("Expected 'URL host not allowed' error, got: %v", err)
	}
}

func TestJoinEndpoint(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"http://host", "invoices", "http://host/invoices"},
		{"http://host/", "/invoices", "http://host/invoices"},
		{"http://host/api/v1//", "invoices", "http://host/api/v1/invoices"},
	}
	for _, tt := range tests {
		if got := JoinEndpoint(tt.base, tt.path); got != tt.want {
			t.Errorf("JoinEndpoint(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestIsHostAllowed(t *testing.T) {
	validator := NewURLValidator()
	if !validator.isHostAllowed("example.com") {
		t.Error("Expected any host to be allowed when no restrictions")
	}

	restricted := NewURLValidatorWithOptions([]string{"http", "https"}, []string{"example.com", "trusted.com"})
	if !restricted.isHostAllowed("trusted.com") {
		t.Error("Expected trusted.com to be allowed")
	}
	if restricted.isHostAllowed("malicious.com") {
		t.Error("Expected malicious.com to be disallowed")
	}
}
