package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MissyMedina/autodev-gateway/services/providers"
)

type stubAdapter struct{ name string }

func (s *stubAdapter) Name() string { return s.name }
func (s *stubAdapter) Call(ctx context.Context, req *providers.CallRequest) (*providers.CallResult, error) {
	return &providers.CallResult{Text: "ok"}, nil
}

func adminTestRegistry(t *testing.T) *providers.Registry {
	t.Helper()
	registry := providers.NewRegistry()
	err := registry.Register(&providers.Descriptor{
		ID:              "openai",
		Endpoint:        "https://api.openai.com/v1",
		SupportedModels: []string{"gpt-4o-mini"},
		CostPerKTokens:  0.15,
		CapabilityTags:  []string{"general"},
		Enabled:         true,
	}, &stubAdapter{name: "openai"})
	require.NoError(t, err)
	return registry
}

func patchProvider(t *testing.T, h *AdminHandler, providerID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Patch("/api/v1/admin/providers/{id}", h.HandleUpdateProvider)

	req := httptest.NewRequest("PATCH", "/api/v1/admin/providers/"+providerID, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleUpdateProvider(t *testing.T) {
	logger := zap.NewNop()

	t.Run("disable provider", func(t *testing.T) {
		registry := adminTestRegistry(t)
		h := NewAdminHandler(registry, logger)

		enabled := false
		rec := patchProvider(t, h, "openai", UpdateProviderRequest{Enabled: &enabled})
		require.Equal(t, 200, rec.Code)

		desc, err := registry.Get("openai")
		require.NoError(t, err)
		assert.False(t, desc.Enabled)
	})

	t.Run("update cost", func(t *testing.T) {
		registry := adminTestRegistry(t)
		h := NewAdminHandler(registry, logger)

		newCost := 0.25
		rec := patchProvider(t, h, "openai", UpdateProviderRequest{CostPerKTokens: &newCost})
		require.Equal(t, 200, rec.Code)

		desc, err := registry.Get("openai")
		require.NoError(t, err)
		assert.InDelta(t, 0.25, desc.CostPerKTokens, 1e-9)
	})

	t.Run("both fields at once", func(t *testing.T) {
		registry := adminTestRegistry(t)
		h := NewAdminHandler(registry, logger)

		enabled := false
		cost := 0.0
		rec := patchProvider(t, h, "openai", UpdateProviderRequest{Enabled: &enabled, CostPerKTokens: &cost})
		require.Equal(t, 200, rec.Code)

		desc, err := registry.Get("openai")
		require.NoError(t, err)
		assert.False(t, desc.Enabled)
		assert.Zero(t, desc.CostPerKTokens)
	})

	t.Run("unknown provider returns 404", func(t *testing.T) {
		h := NewAdminHandler(adminTestRegistry(t), logger)

		enabled := true
		rec := patchProvider(t, h, "nonexistent", UpdateProviderRequest{Enabled: &enabled})
		assert.Equal(t, 404, rec.Code)
	})

	t.Run("empty update returns 400", func(t *testing.T) {
		h := NewAdminHandler(adminTestRegistry(t), logger)

		rec := patchProvider(t, h, "openai", UpdateProviderRequest{})
		assert.Equal(t, 400, rec.Code)
	})

	t.Run("negative cost returns 400", func(t *testing.T) {
		registry := adminTestRegistry(t)
		h := NewAdminHandler(registry, logger)

		cost := -1.0
		rec := patchProvider(t, h, "openai", UpdateProviderRequest{CostPerKTokens: &cost})
		assert.Equal(t, 400, rec.Code)

		desc, err := registry.Get("openai")
		require.NoError(t, err)
		assert.InDelta(t, 0.15, desc.CostPerKTokens, 1e-9)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		h := NewAdminHandler(adminTestRegistry(t), logger)

		r := chi.NewRouter()
		r.Patch("/api/v1/admin/providers/{id}", h.HandleUpdateProvider)
		req := httptest.NewRequest("PATCH", "/api/v1/admin/providers/openai", bytes.NewBufferString("{oops"))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, 400, rec.Code)
	})
}
