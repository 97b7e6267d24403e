package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MissyMedina/autodev-gateway/app"
	"github.com/MissyMedina/autodev-gateway/handlers"
	gwmiddleware "github.com/MissyMedina/autodev-gateway/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.Config.Server.WriteTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	generateHandler := handlers.NewGenerateHandler(deps.Dispatcher, deps.Logger)
	telemetryHandler := handlers.NewTelemetryHandler(deps.Registry, deps.Tracker, deps.Cache, deps.Accountant, deps.Logger)
	adminHandler := handlers.NewAdminHandler(deps.Registry, deps.Logger)
	authMiddleware := gwmiddleware.NewAuthMiddleware(deps.Config.Auth.AdminJWTSecret, deps.Logger)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/generate", generateHandler.HandleGenerate)

		r.Route("/telemetry", func(r chi.Router) {
			r.Get("/health", telemetryHandler.HandleHealth)
			r.Get("/costs", telemetryHandler.HandleCosts)
		})

		// Provider administration (requires admin JWT)
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware.RequireAdmin)
			r.Patch("/providers/{id}", adminHandler.HandleUpdateProvider)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
