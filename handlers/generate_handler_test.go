package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MissyMedina/autodev-gateway/services"
	"github.com/MissyMedina/autodev-gateway/services/dispatch"
)

// mockDispatch returns a canned result or error
type mockDispatch struct {
	result  *dispatch.Result
	err     error
	lastReq *dispatch.Request
}

func (m *mockDispatch) Generate(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func postGenerate(t *testing.T, h *GenerateHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/generate", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleGenerate(rec, req)
	return rec
}

func TestHandleGenerate(t *testing.T) {
	logger := zap.NewNop()

	t.Run("successful generation", func(t *testing.T) {
		svc := &mockDispatch{result: &dispatch.Result{
			RequestID:      "req-1",
			Text:           "generated text",
			ProviderUsed:   "openai",
			Model:          "gpt-4o-mini",
			AttemptsMade:   1,
			TotalLatencyMs: 120,
			TokensUsed:     42,
			EstimatedCost:  0.0063,
		}}
		h := NewGenerateHandler(svc, logger)

		rec := postGenerate(t, h, map[string]interface{}{
			"prompt":    "write a haiku",
			"task_type": "general",
		})

		require.Equal(t, 200, rec.Code)
		var resp GenerateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "generated text", resp.Text)
		assert.Equal(t, "openai", resp.Provider)
		assert.Equal(t, 1, resp.AttemptsMade)
		assert.Equal(t, 42, resp.TokensUsed)
		assert.False(t, resp.CacheHit)
	})

	t.Run("request fields reach the service", func(t *testing.T) {
		svc := &mockDispatch{result: &dispatch.Result{}}
		h := NewGenerateHandler(svc, logger)

		temp := 0.7
		postGenerate(t, h, GenerateRequest{
			Prompt:            "refactor this function",
			TaskType:          "code-generation",
			PreferredProvider: "ollama",
			MaxAttempts:       2,
			MaxTokens:         512,
			Temperature:       &temp,
			Metadata:          map[string]string{"caller": "ci"},
		})

		require.NotNil(t, svc.lastReq)
		assert.Equal(t, "refactor this function", svc.lastReq.Prompt)
		assert.Equal(t, "code-generation", string(svc.lastReq.TaskType))
		assert.Equal(t, "ollama", svc.lastReq.PreferredProvider)
		assert.Equal(t, 2, svc.lastReq.MaxAttempts)
		assert.Equal(t, 512, svc.lastReq.MaxTokens)
		assert.InDelta(t, 0.7, svc.lastReq.Temperature, 1e-9)
		assert.Equal(t, "ci", svc.lastReq.Metadata["caller"])
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		h := NewGenerateHandler(&mockDispatch{}, logger)

		req := httptest.NewRequest("POST", "/api/v1/generate", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		h.HandleGenerate(rec, req)

		assert.Equal(t, 400, rec.Code)
	})

	t.Run("missing prompt returns 400", func(t *testing.T) {
		svc := &mockDispatch{}
		h := NewGenerateHandler(svc, logger)

		rec := postGenerate(t, h, map[string]interface{}{"task_type": "general"})
		assert.Equal(t, 400, rec.Code)
		assert.Nil(t, svc.lastReq)
	})

	t.Run("unknown task type returns 400", func(t *testing.T) {
		h := NewGenerateHandler(&mockDispatch{}, logger)

		rec := postGenerate(t, h, map[string]interface{}{
			"prompt":    "hello",
			"task_type": "juggling",
		})
		assert.Equal(t, 400, rec.Code)
	})

	t.Run("no provider available returns 503", func(t *testing.T) {
		svc := &mockDispatch{err: services.ErrNoProviderAvailable}
		h := NewGenerateHandler(svc, logger)

		rec := postGenerate(t, h, map[string]interface{}{"prompt": "hello"})
		assert.Equal(t, 503, rec.Code)
	})

	t.Run("deadline exceeded returns 504", func(t *testing.T) {
		svc := &mockDispatch{err: services.ErrDeadlineExceeded}
		h := NewGenerateHandler(svc, logger)

		rec := postGenerate(t, h, map[string]interface{}{"prompt": "hello"})
		assert.Equal(t, 504, rec.Code)
	})

	t.Run("all providers failed returns 502", func(t *testing.T) {
		svc := &mockDispatch{err: services.NewDomainError(
			services.ErrorTypeAllFailed, "all candidate providers failed", services.ErrAllProvidersFailed)}
		h := NewGenerateHandler(svc, logger)

		rec := postGenerate(t, h, map[string]interface{}{"prompt": "hello"})
		assert.Equal(t, 502, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "bad_gateway", body["error"])
	})

	t.Run("unexpected error returns 500", func(t *testing.T) {
		svc := &mockDispatch{err: assert.AnError}
		h := NewGenerateHandler(svc, logger)

		rec := postGenerate(t, h, map[string]interface{}{"prompt": "hello"})
		assert.Equal(t, 500, rec.Code)
	})
}
