package handlers

import (
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/MissyMedina/autodev-gateway/services/cache"
	"github.com/MissyMedina/autodev-gateway/services/cost"
	"github.com/MissyMedina/autodev-gateway/services/health"
	"github.com/MissyMedina/autodev-gateway/services/providers"
	"github.com/MissyMedina/autodev-gateway/utils"
)

// ProviderStatus combines a provider's registration with its health view
type ProviderStatus struct {
	ID             string                `json:"id"`
	Enabled        bool                  `json:"enabled"`
	Models         []string              `json:"models"`
	CostPerKTokens float64               `json:"cost_per_k_tokens"`
	CapabilityTags []string              `json:"capability_tags"`
	Health         health.ProviderHealth `json:"health"`
}

// HealthReport is the telemetry view of every registered provider
type HealthReport struct {
	Providers []ProviderStatus `json:"providers"`
	Cache     cache.Stats      `json:"cache"`
}

// TelemetryHandler serves provider health and cost reports
type TelemetryHandler struct {
	registry   *providers.Registry
	tracker    *health.Tracker
	cache      cache.ResponseCache
	accountant *cost.Accountant
	logger     *zap.Logger
}

// NewTelemetryHandler creates a new TelemetryHandler
func NewTelemetryHandler(registry *providers.Registry, tracker *health.Tracker, responseCache cache.ResponseCache, accountant *cost.Accountant, logger *zap.Logger) *TelemetryHandler {
	return &TelemetryHandler{
		registry:   registry,
		tracker:    tracker,
		cache:      responseCache,
		accountant: accountant,
		logger:     logger,
	}
}

// HandleHealth handles GET /api/v1/telemetry/health
func (h *TelemetryHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	descriptors := h.registry.List()
	statuses := make([]ProviderStatus, 0, len(descriptors))
	for _, desc := range descriptors {
		entry := snapshot.Health(desc.ID)
		entry.ProviderID = desc.ID
		statuses = append(statuses, ProviderStatus{
			ID:             desc.ID,
			Enabled:        desc.Enabled,
			Models:         desc.SupportedModels,
			CostPerKTokens: desc.CostPerKTokens,
			CapabilityTags: desc.CapabilityTags,
			Health:         entry,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })

	_ = utils.WriteJSON(w, http.StatusOK, HealthReport{
		Providers: statuses,
		Cache:     h.cache.Stats(),
	})
}

// HandleCosts handles GET /api/v1/telemetry/costs
func (h *TelemetryHandler) HandleCosts(w http.ResponseWriter, r *http.Request) {
	report := h.accountant.Report()
	_ = utils.WriteJSON(w, http.StatusOK, report)
}
