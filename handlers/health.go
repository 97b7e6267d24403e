package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/MissyMedina/autodev-gateway/app"
)

// HealthCheck returns a simple liveness handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// ReadinessCheck performs a more thorough readiness check
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ready"
		checks := map[string]string{}

		if deps.Registry == nil || deps.Registry.Len() == 0 {
			status = "not_ready"
			checks["providers"] = "none_registered"
		} else {
			checks["providers"] = "registered"
		}

		// Ledger database is optional; only checked when configured
		if deps.DB != nil {
			if err := deps.DB.PingContext(ctx); err != nil {
				status = "not_ready"
				checks["database"] = "unhealthy"
				deps.Logger.Error("database readiness check failed", zap.Error(err))
			} else {
				checks["database"] = "healthy"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if status == "ready" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	}
}
