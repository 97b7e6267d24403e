package providers

import (
	"context"
	"errors"
)

// TransportAdapter is the capability every provider implementation satisfies.
// The orchestration core is agnostic to the adapter's wire protocol; new
// providers are added by registering a Descriptor + adapter pair.
type TransportAdapter interface {
	// Name returns the provider id this adapter serves (e.g. "openai", "ollama")
	Name() string

	// Call performs a single completion request against the provider.
	// Implementations must honor ctx cancellation and deadlines.
	Call(ctx context.Context, req *CallRequest) (*CallResult, error)
}

// CallRequest represents a single request to a provider adapter
type CallRequest struct {
	// Model identifier (e.g. "gpt-4o-mini", "codellama")
	Model string `json:"model"`

	// Prompt is the fully rendered prompt text
	Prompt string `json:"prompt"`

	// MaxTokens limits the response length, 0 means provider default
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness
	Temperature float64 `json:"temperature,omitempty"`
}

// CallResult represents a normalized response from a provider adapter
type CallResult struct {
	// Text is the completion text
	Text string `json:"text"`

	// TokensUsed is the total token count reported by the provider,
	// or an estimate when the provider does not report usage
	TokensUsed int `json:"tokens_used"`

	// Model that actually served the request
	Model string `json:"model"`
}

// ErrorKind classifies an attempt failure for health telemetry
type ErrorKind string

const (
	// ErrKindTransport covers network and connection failures
	ErrKindTransport ErrorKind = "transport"

	// ErrKindRejected covers quota, rate-limit, and auth rejections from a
	// reachable provider
	ErrKindRejected ErrorKind = "rejected"

	// ErrKindMalformed covers unparseable or empty provider responses
	ErrKindMalformed ErrorKind = "malformed"

	// ErrKindTimeout covers per-attempt timeouts
	ErrKindTimeout ErrorKind = "timeout"
)

// ProviderError represents an error from a provider adapter
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Kind classifies the failure
	Kind ErrorKind

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Retryable indicates if a fallback provider should be tried
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider string, kind ErrorKind, message string, statusCode int, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Kind:       kind,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable checks if an error allows falling back to another provider
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return false
}

// KindOf extracts the error kind from an attempt failure, defaulting to
// transport for errors that did not come from an adapter
func KindOf(err error) ErrorKind {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Kind
	}
	return ErrKindTransport
}
