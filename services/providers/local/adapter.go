package local

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MissyMedina/autodev-gateway/services/providers"
)

const (
	defaultBaseURL = "http://localhost:11434"
)

// Config holds local adapter configuration
type Config struct {
	// BaseURL of the local runtime (Ollama-compatible)
	BaseURL string

	// Timeout is the HTTP client ceiling; per-attempt deadlines come from ctx
	Timeout time.Duration
}

// Adapter implements TransportAdapter against an Ollama-compatible local
// runtime. Local providers carry zero cost and the "offline" capability tag.
type Adapter struct {
	config     Config
	httpClient *http.Client
}

// New creates a new local adapter
func New(config Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
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
	return "ollama"
}

// Call performs a single generation request against the local runtime
func (a *Adapter) Call(ctx context.Context, req *providers.CallRequest) (*providers.CallResult, error) {
	genReq := generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Stream: false,
	}
	if req.MaxTokens > 0 {
		genReq.Options = &generateOptions{NumPredict: req.MaxTokens}
	}

	reqBody, err := json.Marshal(genReq)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.ErrKindMalformed, "failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/api/generate", strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.ErrKindTransport, "failed to create request", 0, false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, providers.NewProviderError(a.Name(), providers.ErrKindTransport, "local runtime unreachable", 0, true, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.ErrKindTransport, "failed to read response", httpResp.StatusCode, true, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		kind := providers.ErrKindTransport
		if httpResp.StatusCode == http.StatusTooManyRequests {
			kind = providers.ErrKindRejected
		}
		return nil, providers.NewProviderError(a.Name(), kind, string(respBody), httpResp.StatusCode, httpResp.StatusCode >= 500, nil)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.ErrKindMalformed, "failed to unmarshal response", httpResp.StatusCode, true, err)
	}

	if genResp.Response == "" {
		return nil, providers.NewProviderError(a.Name(), providers.ErrKindMalformed, "empty completion from local runtime", httpResp.StatusCode, true, nil)
	}

	return &providers.CallResult{
		Text:       genResp.Response,
		TokensUsed: genResp.PromptEvalCount + genResp.EvalCount,
		Model:      genResp.Model,
	}, nil
}

// Ollama-specific request/response types

type generateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	Stream  bool             `json:"stream"`
	Options *generateOptions `json:"options,omitempty"`
}

type generateOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}
