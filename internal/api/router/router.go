// Package router assembles the HTTP surface of the booking API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinivo/booking-api/internal/http/handlers"
	httpmiddleware "github.com/clinivo/booking-api/internal/http/middleware"
	"github.com/clinivo/booking-api/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Bookings           *handlers.BookingsHandler
	OpsSummary         *handlers.OpsSummaryHandler
	MetricsHandler     http.Handler
	OperatorAuthSecret string
	CORSAllowedOrigins []string
	CreateRatePerSec   float64
	CreateBurst        int
}

// New creates the Chi router with all routes configured.
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

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		public.Route("/api/bookings", func(api chi.Router) {
			createLimit := func(next http.Handler) http.Handler { return next }
			if cfg.CreateRatePerSec > 0 {
				createLimit = httpmiddleware.RateLimit(cfg.CreateRatePerSec, cfg.CreateBurst)
			}
			api.With(createLimit).Post("/", cfg.Bookings.Create)
			api.Get("/slots", cfg.Bookings.Slots)
			api.Get("/decision", cfg.Bookings.DecisionLink)
			api.Get("/{id}", cfg.Bookings.Status)
		})

		public.Post("/webhooks/decision", cfg.Bookings.DecisionWebhook)
	})

	// Operator console, behind JWT.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.OperatorJWT(cfg.OperatorAuthSecret))
		admin.Get("/bookings/pending", cfg.Bookings.Pending)
		if cfg.OpsSummary != nil {
			admin.Get("/bookings/summary", cfg.OpsSummary.Summary)
		}
	})

	return r
}
