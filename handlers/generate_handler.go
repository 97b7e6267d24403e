package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MissyMedina/autodev-gateway/services/dispatch"
	"github.com/MissyMedina/autodev-gateway/services/providers"
	"github.com/MissyMedina/autodev-gateway/utils"
)

// GenerateRequest represents an AI generation request
type GenerateRequest struct {
	Prompt            string            `json:"prompt" validate:"required"`
	TaskType          string            `json:"task_type" validate:"omitempty,oneof=general code-generation analysis documentation"`
	Model             string            `json:"model,omitempty"`
	PreferredProvider string            `json:"preferred_provider,omitempty"`
	MaxAttempts       int               `json:"max_attempts,omitempty" validate:"omitempty,gt=0"`
	MaxTokens         int               `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	Temperature       *float64          `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// GenerateResponse represents a completed generation
type GenerateResponse struct {
	RequestID      string  `json:"request_id"`
	Text           string  `json:"text"`
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
	AttemptsMade   int     `json:"attempts_made"`
	TotalLatencyMs int64   `json:"total_latency_ms"`
	TokensUsed     int     `json:"tokens_used"`
	EstimatedCost  float64 `json:"estimated_cost"`
	CacheHit       bool    `json:"cache_hit"`
}

// DispatchService defines the interface for generation dispatch
type DispatchService interface {
	Generate(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error)
}

// GenerateHandler handles generation HTTP requests
type GenerateHandler struct {
	service DispatchService
	logger  *zap.Logger
}

// NewGenerateHandler creates a new GenerateHandler
func NewGenerateHandler(service DispatchService, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGenerate handles POST /api/v1/generate
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	var genReq GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&genReq); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&genReq); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	serviceReq := &dispatch.Request{
		Prompt:            genReq.Prompt,
		TaskType:          providers.TaskType(genReq.TaskType),
		Model:             genReq.Model,
		PreferredProvider: genReq.PreferredProvider,
		MaxAttempts:       genReq.MaxAttempts,
		MaxTokens:         genReq.MaxTokens,
		RequestID:         requestID,
		Metadata:          genReq.Metadata,
	}
	if genReq.Temperature != nil {
		serviceReq.Temperature = *genReq.Temperature
	}

	h.logger.Debug("dispatching generation",
		zap.String("request_id", requestID),
		zap.String("task_type", genReq.TaskType),
		zap.String("preferred_provider", genReq.PreferredProvider))

	result, err := h.service.Generate(ctx, serviceReq)
	if err != nil {
		h.logger.Error("generation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("generation successful",
		zap.String("request_id", result.RequestID),
		zap.String("provider", result.ProviderUsed),
		zap.String("model", result.Model),
		zap.Int("attempts", result.AttemptsMade),
		zap.Int64("latency_ms", result.TotalLatencyMs),
		zap.Int("tokens_used", result.TokensUsed),
		zap.Bool("cache_hit", result.CacheHit))

	_ = utils.WriteJSON(w, http.StatusOK, GenerateResponse{
		RequestID:      result.RequestID,
		Text:           result.Text,
		Provider:       result.ProviderUsed,
		Model:          result.Model,
		AttemptsMade:   result.AttemptsMade,
		TotalLatencyMs: result.TotalLatencyMs,
		TokensUsed:     result.TokensUsed,
		EstimatedCost:  result.EstimatedCost,
		CacheHit:       result.CacheHit,
	})
}
