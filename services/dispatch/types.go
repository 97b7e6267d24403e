package dispatch

import (
	"time"

	"github.com/MissyMedina/autodev-gateway/services/providers"
)

// Request is the immutable inbound generation request. No component retains
// a reference to it after the call returns.
type Request struct {
	// Prompt is the fully rendered prompt text
	Prompt string `json:"prompt"`

	// TaskType tags the kind of work (general, code-generation, analysis,
	// documentation); empty defaults to general
	TaskType providers.TaskType `json:"task_type,omitempty"`

	// Model optionally pins a model; empty uses each provider's default
	Model string `json:"model,omitempty"`

	// PreferredProvider optionally requests a specific provider first
	PreferredProvider string `json:"preferred_provider,omitempty"`

	// MaxAttempts caps the fallback depth; 0 means registry size
	MaxAttempts int `json:"max_attempts,omitempty"`

	// MaxTokens limits the response length
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness
	Temperature float64 `json:"temperature,omitempty"`

	// RequestID is volatile tracking metadata, never part of the cache key
	RequestID string `json:"request_id,omitempty"`

	// Metadata for tracking and logging, never part of the cache key
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Result is the normalized response returned to callers
type Result struct {
	// Text is the generated completion
	Text string `json:"text"`

	// ProviderUsed identifies the provider that produced the text
	ProviderUsed string `json:"provider_used"`

	// Model that served the request
	Model string `json:"model"`

	// AttemptsMade counts upstream attempts; 0 on a cache hit
	AttemptsMade int `json:"attempts_made"`

	// TotalLatencyMs is wall time across the whole call
	TotalLatencyMs int64 `json:"total_latency_ms"`

	// TokensUsed as reported by the serving provider
	TokensUsed int `json:"tokens_used"`

	// EstimatedCost of this call; 0 on a cache hit
	EstimatedCost float64 `json:"estimated_cost"`

	// CacheHit is true when the response was served from cache
	CacheHit bool `json:"cache_hit"`

	// RequestID echoes the inbound tracking id
	RequestID string `json:"request_id,omitempty"`

	// CreatedAt is when the result was produced
	CreatedAt time.Time `json:"created_at"`
}

// AttemptFailure records one failed attempt for the aggregated error
type AttemptFailure struct {
	ProviderID string              `json:"provider_id"`
	Kind       providers.ErrorKind `json:"kind"`
	Message    string              `json:"message"`
}
