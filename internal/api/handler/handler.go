// Package handler provides HTTP handlers for all API endpoints. Handlers
// depend on narrow interfaces so the scheduling core and the store can be
// faked in tests.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sendgrid/rest"

	"github.com/memobox/training-push/internal/api/respond"
	"github.com/memobox/training-push/internal/config"
	"github.com/memobox/training-push/internal/notify"
	"github.com/memobox/training-push/internal/store"
)

// Store is the persistence surface the handlers use.
type Store interface {
	UpsertEmails(ctx context.Context, items []notify.EmailNotification) (*store.UpsertResult, error)
	UpsertPushes(ctx context.Context, items []notify.PushNotification) (*store.UpsertResult, error)
	DeleteEmails(ctx context.Context, ids []string) (int64, error)
	DeletePushes(ctx context.Context, ids []string) (int64, error)
	FindDueEmails(ctx context.Context, language string, horizon time.Duration) ([]notify.EmailNotification, error)
	EnsureEmailIndexes(ctx context.Context) error
	EnsurePushIndexes(ctx context.Context) error
	Ping(ctx context.Context) error
}

// CycleRunner runs one scheduling tick for a channel.
type CycleRunner interface {
	Run(ctx context.Context) ([]notify.DispatchResult, error)
}

// Mailer sends a single transactional email.
type Mailer interface {
	SendOne(ctx context.Context, language, emailType, to string, data map[string]any) (*rest.Response, error)
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store  Store
	email  CycleRunner
	push   CycleRunner
	mailer Mailer
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(st Store, email, push CycleRunner, mailer Mailer, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		store:  st,
		email:  email,
		push:   push,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
	}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "Training Push API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		respond.WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
