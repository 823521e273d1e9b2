// Package api wires the Chi router, middleware, and Swagger UI.
package api

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/memobox/training-push/internal/api/handler"
	"github.com/memobox/training-push/internal/config"
)

//go:embed doc.json
var openAPIDoc []byte

// NewRouter creates and configures the Chi router with all middleware and
// routes. Everything under /api/v1 requires the x-api-key shared secret.
func NewRouter(h *handler.Handler, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "x-api-key"},
		ExposedHeaders:   []string{"X-Process-Time"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	// Swagger UI over the embedded OpenAPI document.
	r.Get("/docs/doc.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(openAPIDoc)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes require the shared secret and reject before any store
	// access.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyMiddleware(cfg.APISecretKey))

		// Email notification records
		r.Post("/notifications", h.UpsertNotifications)
		r.Get("/notifications", h.ListNotifications)
		r.Delete("/notifications", h.DeleteNotifications)

		// Push notification records
		r.Post("/pushes", h.UpsertPushes)
		r.Delete("/pushes", h.DeletePushes)

		// Index administration
		r.Post("/indexes/email", h.CreateEmailIndexes)
		r.Post("/indexes/push", h.CreatePushIndexes)

		// Single transactional email
		r.Post("/send/email", h.SendEmail)

		// Scheduling tick triggers
		r.Post("/cycles/email", h.RunEmailCycle)
		r.Post("/cycles/push", h.RunPushCycle)
	})

	return r
}
