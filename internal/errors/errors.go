package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeUpstream   ErrorType = "upstream"
	ErrorTypeAmbiguous  ErrorType = "classification_ambiguous"
	ErrorTypeEnrichment ErrorType = "enrichment"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents a structured application error.
// Message is safe to show to the user; Details and Cause are for logs only.
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

// WithDetails attaches diagnostic details
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

func newError(t ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: StatusCodeFor(t),
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, message, cause)
}

// NewTransportError creates an error for an unreachable upstream
func NewTransportError(message string, cause error) *AppError {
	return newError(ErrorTypeTransport, message, cause)
}

// NewUpstreamError creates an error for a bad upstream status or body
func NewUpstreamError(message string, cause error) *AppError {
	return newError(ErrorTypeUpstream, message, cause)
}

// NewAmbiguousError creates an error for a classification without a winner
func NewAmbiguousError(message string) *AppError {
	return newError(ErrorTypeAmbiguous, message, nil)
}

// NewEnrichmentError creates an error for a failed text generation call
func NewEnrichmentError(message string, cause error) *AppError {
	return newError(ErrorTypeEnrichment, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newError(ErrorTypeNotFound, message, cause)
}

// StatusCodeFor maps an error type to the HTTP status reported for it
func StatusCodeFor(t ErrorType) int {
	switch t {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeTransport, ErrorTypeUpstream, ErrorTypeEnrichment:
		return http.StatusBadGateway
	case ErrorTypeAmbiguous:
		return http.StatusUnprocessableEntity
	case ErrorTypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an AppError from an error chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := As(err); ok {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
