package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MissyMedina/autodev-gateway/services/providers"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
)

// Config holds OpenAI adapter configuration
type Config struct {
	// Name overrides the provider id, for OpenAI-compatible endpoints
	// served by other vendors; defaults to "openai"
	Name string

	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Timeout is the HTTP client ceiling; per-attempt deadlines come from ctx
	Timeout time.Duration

	// OrgID for organization-specific endpoints
	OrgID string

	// Headers adds extra headers to every request
	Headers map[string]string
}

// Adapter implements the TransportAdapter interface for OpenAI-compatible
// chat completion APIs. It performs exactly one call per Call invocation;
// retry and fallback are the dispatcher's responsibility.
type Adapter struct {
	config     Config
	httpClient *http.Client
}

// New creates a new OpenAI adapter
func New(config Config) *Adapter {
	if config.Name == "" {
		config.Name = "openai"
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return a.config.Name
}

// Call performs a single chat completion request
func (a *Adapter) Call(ctx context.Context, req *providers.CallRequest) (*providers.CallResult, error) {
	openaiReq := a.buildRequest(req)

	reqBody, err := json.Marshal(openaiReq)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.ErrKindMalformed, "failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.ErrKindTransport, "failed to create request", 0, false, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	if a.config.OrgID != "" {
		httpReq.Header.Set("OpenAI-Organization", a.config.OrgID)
	}
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		// Let the dispatcher distinguish its own deadline from a network fault
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, providers.NewProviderError(a.Name(), providers.ErrKindTransport, "http request failed", 0, true, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.ErrKindTransport, "failed to read response", httpResp.StatusCode, true, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	var openaiResp chatResponse
	if err := json.Unmarshal(respBody, &openaiResp); err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.ErrKindMalformed, "failed to unmarshal response", httpResp.StatusCode, true, err)
	}

	if len(openaiResp.Choices) == 0 {
		return nil, providers.NewProviderError(a.Name(), providers.ErrKindMalformed, "response contained no choices", httpResp.StatusCode, true, nil)
	}

	return &providers.CallResult{
		Text:       openaiResp.Choices[0].Message.Content,
		TokensUsed: openaiResp.Usage.TotalTokens,
		Model:      openaiResp.Model,
	}, nil
}

// buildRequest converts the unified call request to OpenAI wire format
func (a *Adapter) buildRequest(req *providers.CallRequest) *chatRequest {
	openaiReq := &chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "user", Content: req.Prompt},
		},
	}

	if req.MaxTokens > 0 {
		openaiReq.MaxTokens = &req.MaxTokens
	}
	if req.Temperature > 0 {
		openaiReq.Temperature = &req.Temperature
	}

	return openaiReq
}

// handleErrorResponse classifies OpenAI error responses. 429 and quota
// signals are rejections; 5xx are transport faults. Both allow fallback.
func (a *Adapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return providers.NewProviderError(a.Name(), providers.ErrKindMalformed, string(body), statusCode, statusCode >= 500, err)
	}

	kind := providers.ErrKindTransport
	if statusCode == http.StatusTooManyRequests || statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized {
		kind = providers.ErrKindRejected
	}

	retryable := statusCode >= 500 || statusCode == http.StatusTooManyRequests

	return providers.NewProviderError(
		a.Name(),
		kind,
		errResp.Error.Message,
		statusCode,
		retryable,
		errors.New(errResp.Error.Type),
	)
}

// OpenAI-specific request/response types

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   usage        `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}
