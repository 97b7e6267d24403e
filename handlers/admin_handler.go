package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MissyMedina/autodev-gateway/services"
	"github.com/MissyMedina/autodev-gateway/services/providers"
	"github.com/MissyMedina/autodev-gateway/utils"
)

// UpdateProviderRequest represents a runtime provider update.
// Omitted fields are left unchanged.
type UpdateProviderRequest struct {
	Enabled        *bool    `json:"enabled,omitempty"`
	CostPerKTokens *float64 `json:"cost_per_k_tokens,omitempty" validate:"omitempty,gte=0"`
}

// AdminHandler handles provider administration requests
type AdminHandler struct {
	registry *providers.Registry
	logger   *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(registry *providers.Registry, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		registry: registry,
		logger:   logger,
	}
}

// HandleUpdateProvider handles PATCH /api/v1/admin/providers/{id}
func (h *AdminHandler) HandleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "id")
	if providerID == "" {
		_ = utils.WriteBadRequest(w, "Provider id is required", nil)
		return
	}

	var updateReq UpdateProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		h.logger.Warn("failed to parse provider update body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&updateReq); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if updateReq.Enabled == nil && updateReq.CostPerKTokens == nil {
		_ = utils.WriteBadRequest(w, "At least one of enabled or cost_per_k_tokens is required", nil)
		return
	}

	if updateReq.Enabled != nil {
		if err := h.registry.SetEnabled(providerID, *updateReq.Enabled); err != nil {
			HandleServiceError(w, registryError(providerID, err), h.logger)
			return
		}
		h.logger.Info("provider enabled flag updated",
			zap.String("provider", providerID),
			zap.Bool("enabled", *updateReq.Enabled))
	}

	if updateReq.CostPerKTokens != nil {
		if err := h.registry.SetCost(providerID, *updateReq.CostPerKTokens); err != nil {
			HandleServiceError(w, registryError(providerID, err), h.logger)
			return
		}
		h.logger.Info("provider cost updated",
			zap.String("provider", providerID),
			zap.Float64("cost_per_k_tokens", *updateReq.CostPerKTokens))
	}

	desc, err := h.registry.Get(providerID)
	if err != nil {
		HandleServiceError(w, registryError(providerID, err), h.logger)
		return
	}

	_ = utils.WriteOK(w, desc)
}

// registryError lifts registry sentinels into domain errors so they map
// to the right HTTP status
func registryError(providerID string, err error) error {
	if errors.Is(err, providers.ErrProviderNotFound) {
		return services.NewDomainError(services.ErrorTypeNotFound, "provider not found", err).
			WithDetail("provider_id", providerID)
	}
	return err
}
