package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/student-success/backend/app"
	"github.com/upb/student-success/backend/handlers"
	"github.com/upb/student-success/backend/middleware"
	"github.com/upb/student-success/backend/utils"
	"go.uber.org/zap"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)

	// CORS middleware answers preflight requests before they reach tracking
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Link", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Claims must be on the request before it is recorded
	r.Use(deps.AuthMiddleware.OptionalAuth)
	r.Use(deps.MetricsMiddleware.Track)
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

	health := handlers.NewHealthHandler(deps.DatabaseChecker(), deps.Logger)
	metrics := handlers.NewMetricsHandler(deps.Performance, deps.Logger)
	history := handlers.NewHistoryHandler(deps.HistorySource(), deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleLiveness)
	r.Get("/readyz", health.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", metrics.HandleAPIHealth)

		// Performance dashboard (require admin role)
		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireRole(cfg.Auth.AdminRoles...))
			r.Get("/metrics", metrics.HandleSummary)
			r.Get("/metrics/slow", metrics.HandleSlowRequests)
			r.Get("/metrics/history", history.HandleHistory)
		})
	})

	// Prometheus scrape endpoint
	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{
			ErrorLog: zap.NewStdLog(deps.Logger.Named("promhttp")),
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
