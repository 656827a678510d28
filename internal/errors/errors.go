package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypePermissionDenied ErrorType = "permission_denied"
	ErrorTypeMalformedFrame   ErrorType = "malformed_frame"
	ErrorTypeExtraction       ErrorType = "extraction"
	ErrorTypeStorage          ErrorType = "storage"
	ErrorTypeUpload           ErrorType = "upload"
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeInvalidState     ErrorType = "invalid_state"
	ErrorTypeCancelled        ErrorType = "cancelled"
	ErrorTypeNetwork          ErrorType = "network"
	ErrorTypeTimeout          ErrorType = "timeout"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeInternal         ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewPermissionDeniedError reports that the camera could not be acquired
func NewPermissionDeniedError(message string, cause error) *AppError {
	return newError(ErrorTypePermissionDenied, http.StatusForbidden, message, cause)
}

// NewMalformedFrameError reports a frame whose dimensions and buffer disagree
func NewMalformedFrameError(message string, cause error) *AppError {
	return newError(ErrorTypeMalformedFrame, http.StatusUnprocessableEntity, message, cause)
}

// NewExtractionError reports a failed or timed out extraction call
func NewExtractionError(message string, cause error) *AppError {
	return newError(ErrorTypeExtraction, http.StatusBadGateway, message, cause)
}

// NewStorageError reports a failure of the durable queue medium
func NewStorageError(message string, cause error) *AppError {
	return newError(ErrorTypeStorage, http.StatusInsufficientStorage, message, cause)
}

// NewUploadError reports a retryable upload failure
func NewUploadError(message string, cause error) *AppError {
	return newError(ErrorTypeUpload, http.StatusBadGateway, message, cause)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewInvalidStateError reports an operation issued in the wrong capture state
func NewInvalidStateError(message string, cause error) *AppError {
	return newError(ErrorTypeInvalidState, http.StatusConflict, message, cause)
}

// NewCancelledError reports work abandoned because the session moved on
func NewCancelledError(message string, cause error) *AppError {
	return newError(ErrorTypeCancelled, 499, message, cause)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newError(ErrorTypeNetwork, http.StatusBadGateway, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// IsType checks if the error, or any error it wraps, is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
