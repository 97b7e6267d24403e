package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNoProvider       ErrorType = "no_provider_available"
	ErrorTypeTransport        ErrorType = "transport_error"
	ErrorTypeProviderRejected ErrorType = "provider_rejected"
	ErrorTypeDeadlineExceeded ErrorType = "deadline_exceeded"
	ErrorTypeAllFailed        ErrorType = "all_failed"
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeUnauthorized     ErrorType = "unauthorized"
	ErrorTypeInternal         ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// ErrNoProviderAvailable is returned when no candidate survives filtering:
	// every provider is disabled, circuit-open, or does not match the task type.
	ErrNoProviderAvailable = NewDomainError(ErrorTypeNoProvider, "no provider available for request", nil)

	// ErrDeadlineExceeded is returned when the call-level deadline expires
	// before the fallback chain is exhausted.
	ErrDeadlineExceeded = NewDomainError(ErrorTypeDeadlineExceeded, "call deadline exceeded", nil)

	// ErrAllProvidersFailed is returned when every ranked candidate failed.
	ErrAllProvidersFailed = NewDomainError(ErrorTypeAllFailed, "all providers failed", nil)

	// Validation errors
	ErrInvalidInput    = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrEmptyPrompt     = NewDomainError(ErrorTypeValidation, "prompt cannot be empty", nil)
	ErrInvalidTaskType = NewDomainError(ErrorTypeValidation, "invalid task type", nil)

	// Lookup errors
	ErrProviderNotFound = NewDomainError(ErrorTypeNotFound, "provider not found", nil)

	// Authorization errors
	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidToken = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)
)

// IsNoProviderError checks if an error is a no-provider-available error
func IsNoProviderError(err error) bool {
	return errors.Is(err, ErrNoProviderAvailable)
}

// IsDeadlineError checks if an error is a deadline-exceeded error
func IsDeadlineError(err error) bool {
	return errors.Is(err, ErrDeadlineExceeded)
}

// IsAllFailedError checks if an error is an all-providers-failed error
func IsAllFailedError(err error) bool {
	return errors.Is(err, ErrAllProvidersFailed)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// IsNotFoundError checks if an error is a not-found error
func IsNotFoundError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeUnauthorized
	}
	return false
}

// GetErrorType extracts the error type from an error, defaulting to internal
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal
}

// GetErrorDetails extracts structured details from a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}
