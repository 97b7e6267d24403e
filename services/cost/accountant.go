package cost

import (
	"math"
	"sync"
	"time"

	"github.com/MissyMedina/autodev-gateway/services/providers"
)

// Usage holds accumulated counters for one provider or the global total.
// Counters saturate at their maximum rather than wrapping.
type Usage struct {
	Requests      uint64  `json:"requests"`
	Tokens        uint64  `json:"tokens"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// Report is a point-in-time snapshot for telemetry consumers
type Report struct {
	Providers   map[string]Usage `json:"providers"`
	Total       Usage            `json:"total"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Accountant accumulates running cost totals per provider and globally.
// Pricing comes from the provider registry at record time, so administrative
// cost updates take effect immediately.
type Accountant struct {
	mu          sync.RWMutex
	perProvider map[string]Usage
	total       Usage
	registry    *providers.Registry
}

// NewAccountant creates a new cost accountant over a provider registry
func NewAccountant(registry *providers.Registry) *Accountant {
	return &Accountant{
		perProvider: make(map[string]Usage),
		registry:    registry,
	}
}

// Record accumulates one request's token usage against a provider and
// returns the estimated cost of that request
func (a *Accountant) Record(providerID string, tokensUsed int) float64 {
	if tokensUsed < 0 {
		tokensUsed = 0
	}

	estimated := a.EstimateCost(providerID, tokensUsed)

	a.mu.Lock()
	defer a.mu.Unlock()

	u := a.perProvider[providerID]
	u.Requests = satAddUint64(u.Requests, 1)
	u.Tokens = satAddUint64(u.Tokens, uint64(tokensUsed))
	u.EstimatedCost = satAddFloat64(u.EstimatedCost, estimated)
	a.perProvider[providerID] = u

	a.total.Requests = satAddUint64(a.total.Requests, 1)
	a.total.Tokens = satAddUint64(a.total.Tokens, uint64(tokensUsed))
	a.total.EstimatedCost = satAddFloat64(a.total.EstimatedCost, estimated)

	return estimated
}

// EstimateCost derives the cost of a token count from provider pricing.
// Unknown providers cost zero.
func (a *Accountant) EstimateCost(providerID string, tokensUsed int) float64 {
	desc, err := a.registry.Get(providerID)
	if err != nil || tokensUsed <= 0 {
		return 0
	}
	return float64(tokensUsed) / 1000.0 * desc.CostPerKTokens
}

// Report returns a snapshot of accumulated usage
func (a *Accountant) Report() Report {
	a.mu.RLock()
	defer a.mu.RUnlock()

	perProvider := make(map[string]Usage, len(a.perProvider))
	for id, u := range a.perProvider {
		perProvider[id] = u
	}

	return Report{
		Providers:   perProvider,
		Total:       a.total,
		GeneratedAt: time.Now(),
	}
}

// satAddUint64 adds with saturation at MaxUint64
func satAddUint64(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// satAddFloat64 adds with saturation at MaxFloat64
func satAddFloat64(a, b float64) float64 {
	sum := a + b
	if math.IsInf(sum, 1) {
		return math.MaxFloat64
	}
	return sum
}
