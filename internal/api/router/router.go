// Package router assembles the HTTP surface of the scheduling service.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/curatel/telecare-scheduling/internal/http/handlers"
	httpmiddleware "github.com/curatel/telecare-scheduling/internal/http/middleware"
	"github.com/curatel/telecare-scheduling/internal/providers"
	"github.com/curatel/telecare-scheduling/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Availability       *handlers.AvailabilityHandler
	Providers          *providers.Handler
	AdminSchedule      *handlers.AdminScheduleHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimitPerSecond caps per-IP request rates; zero disables limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Providers == nil && cfg.Availability == nil {
			return
		}
		public.Route("/providers", func(pr chi.Router) {
			if cfg.Providers != nil {
				pr.Get("/", cfg.Providers.List)
				pr.Post("/", cfg.Providers.Create)
				pr.Get("/{providerID}", cfg.Providers.Get)
				pr.Put("/{providerID}", cfg.Providers.Update)
			}
			if cfg.Availability != nil {
				pr.Mount("/{providerID}/availability", cfg.Availability.Routes())
			}
		})
	})

	// Operator endpoints, protected by the admin JWT.
	if cfg.AdminSchedule != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Mount("/schedule", cfg.AdminSchedule.Routes())
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
