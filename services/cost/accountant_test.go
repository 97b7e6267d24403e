package cost

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MissyMedina/autodev-gateway/services/providers"
)

type stubAdapter struct{ name string }

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Call(_ context.Context, req *providers.CallRequest) (*providers.CallResult, error) {
	return &providers.CallResult{Text: "ok", TokensUsed: 1, Model: req.Model}, nil
}

func testRegistry(t *testing.T) *providers.Registry {
	t.Helper()
	registry := providers.NewRegistry()
	require.NoError(t, registry.Register(&providers.Descriptor{
		ID:              "openai",
		Endpoint:        "https://api.openai.com/v1",
		SupportedModels: []string{"gpt-4o-mini"},
		CostPerKTokens:  0.1,
		CapabilityTags:  []string{providers.TagGeneral},
		Enabled:         true,
	}, &stubAdapter{name: "openai"}))
	require.NoError(t, registry.Register(&providers.Descriptor{
		ID:              "ollama",
		Endpoint:        "http://localhost:11434",
		SupportedModels: []string{"codellama"},
		CostPerKTokens:  0,
		CapabilityTags:  []string{providers.TagGeneral, "offline"},
		Enabled:         true,
	}, &stubAdapter{name: "ollama"}))
	return registry
}

func TestAccountant_Record(t *testing.T) {
	accountant := NewAccountant(testRegistry(t))

	cost := accountant.Record("openai", 500)
	assert.InDelta(t, 0.05, cost, 1e-9)

	cost = accountant.Record("openai", 1500)
	assert.InDelta(t, 0.15, cost, 1e-9)

	report := accountant.Report()
	u := report.Providers["openai"]
	assert.Equal(t, uint64(2), u.Requests)
	assert.Equal(t, uint64(2000), u.Tokens)
	assert.InDelta(t, 0.2, u.EstimatedCost, 1e-9)

	assert.Equal(t, uint64(2), report.Total.Requests)
	assert.Equal(t, uint64(2000), report.Total.Tokens)
	assert.InDelta(t, 0.2, report.Total.EstimatedCost, 1e-9)
}

func TestAccountant_ZeroCostProvider(t *testing.T) {
	accountant := NewAccountant(testRegistry(t))

	cost := accountant.Record("ollama", 10)
	assert.Zero(t, cost)

	report := accountant.Report()
	assert.Equal(t, uint64(10), report.Providers["ollama"].Tokens)
	assert.Zero(t, report.Providers["ollama"].EstimatedCost)
}

func TestAccountant_UnknownProviderCostsNothing(t *testing.T) {
	accountant := NewAccountant(testRegistry(t))

	cost := accountant.Record("mystery", 100)
	assert.Zero(t, cost)

	// Usage still counted even without pricing
	assert.Equal(t, uint64(100), accountant.Report().Providers["mystery"].Tokens)
}

func TestAccountant_PricingUpdatesApplyImmediately(t *testing.T) {
	registry := testRegistry(t)
	accountant := NewAccountant(registry)

	require.NoError(t, registry.SetCost("openai", 0.2))
	cost := accountant.Record("openai", 1000)
	assert.InDelta(t, 0.2, cost, 1e-9)
}

func TestAccountant_Saturation(t *testing.T) {
	t.Run("uint64 add saturates", func(t *testing.T) {
		assert.Equal(t, uint64(math.MaxUint64), satAddUint64(math.MaxUint64, 1))
		assert.Equal(t, uint64(math.MaxUint64), satAddUint64(math.MaxUint64-1, 5))
		assert.Equal(t, uint64(7), satAddUint64(3, 4))
	})

	t.Run("float64 add saturates", func(t *testing.T) {
		assert.Equal(t, math.MaxFloat64, satAddFloat64(math.MaxFloat64, math.MaxFloat64))
		assert.Equal(t, 7.0, satAddFloat64(3, 4))
	})
}

func TestAccountant_ConcurrentRecord(t *testing.T) {
	accountant := NewAccountant(testRegistry(t))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				accountant.Record("openai", 10)
				_ = accountant.Report()
			}
		}()
	}
	wg.Wait()

	report := accountant.Report()
	assert.Equal(t, uint64(1000), report.Total.Requests)
	assert.Equal(t, uint64(10000), report.Total.Tokens)
}
