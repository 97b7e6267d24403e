package local

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MissyMedina/autodev-gateway/services/providers"
)

func TestAdapter_Call_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "codellama", req.Model)
		assert.False(t, req.Stream)

		_ = json.NewEncoder(w).Encode(generateResponse{
			Model:           "codellama",
			Response:        "func main() {}",
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       8,
		})
	}))
	defer server.Close()

	adapter := New(Config{BaseURL: server.URL})
	assert.Equal(t, "ollama", adapter.Name())

	result, err := adapter.Call(context.Background(), &providers.CallRequest{
		Model:  "codellama",
		Prompt: "write main",
	})
	require.NoError(t, err)
	assert.Equal(t, "func main() {}", result.Text)
	assert.Equal(t, 20, result.TokensUsed)
}

func TestAdapter_Call_RuntimeUnreachable(t *testing.T) {
	// Point at a closed port
	adapter := New(Config{BaseURL: "http://127.0.0.1:1"})

	_, err := adapter.Call(context.Background(), &providers.CallRequest{Model: "codellama", Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, providers.ErrKindTransport, providers.KindOf(err))
	assert.True(t, providers.IsRetryable(err))
}

func TestAdapter_Call_EmptyCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{Model: "codellama", Done: true})
	}))
	defer server.Close()

	adapter := New(Config{BaseURL: server.URL})
	_, err := adapter.Call(context.Background(), &providers.CallRequest{Model: "codellama", Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, providers.ErrKindMalformed, providers.KindOf(err))
}

func TestAdapter_Call_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := New(Config{BaseURL: server.URL})
	_, err := adapter.Call(context.Background(), &providers.CallRequest{Model: "codellama", Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, providers.ErrKindTransport, providers.KindOf(err))
	assert.True(t, providers.IsRetryable(err))
}
