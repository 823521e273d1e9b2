// Command api is the Training Push notification server.
//
// Usage:
//
//	training-push-api
//	API_PORT=8080 training-push-api
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/sendgrid/sendgrid-go"

	"github.com/memobox/training-push/internal/api"
	"github.com/memobox/training-push/internal/api/handler"
	"github.com/memobox/training-push/internal/backend"
	"github.com/memobox/training-push/internal/config"
	"github.com/memobox/training-push/internal/notify"
	"github.com/memobox/training-push/internal/schedule"
	"github.com/memobox/training-push/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to Mongo
	logger.Info("Connecting to database...")
	st, err := store.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer st.Close(context.Background())
	logger.Info("Database connected", "database", cfg.MongoDatabase)

	// Delivery clients, constructed once and shared.
	sgClient := sendgrid.NewSendClient(cfg.SendGridAPIKey)
	backendClient := backend.New(cfg.BackendURL, cfg.APISecretKey, cfg.BackendTimeout)

	tracker := &notify.Tracker{}

	emailDispatcher := &notify.EmailDispatcher{
		Sender:  sgClient,
		Resolve: cfg.SendGridData,
		Logger:  logger,
	}
	emailCycle := &notify.Cycle[notify.EmailNotification]{
		Channel:    notify.ChannelEmail,
		Source:     notify.SourceFunc[notify.EmailNotification](st.FindDueEmails),
		Dispatcher: emailDispatcher,
		Advancer:   notify.AdvanceFunc(st.AdvanceEmails),
		Forwarder:  backendClient,
		Languages:  cfg.Languages,
		Horizon:    cfg.DueHorizon,
		Advance:    cfg.EmailAdvance,
		Tracker:    tracker,
		Logger:     logger,
	}
	pushCycle := &notify.Cycle[notify.PushNotification]{
		Channel:    notify.ChannelPush,
		Source:     notify.SourceFunc[notify.PushNotification](st.FindDuePushes),
		Dispatcher: &notify.PushDispatcher{Deliverer: backendClient, Logger: logger},
		Advancer:   notify.AdvanceFunc(st.AdvancePushes),
		Forwarder:  backendClient,
		Languages:  cfg.Languages,
		Horizon:    cfg.DueHorizon,
		Advance:    cfg.PushAdvance,
		Tracker:    tracker,
		Logger:     logger,
	}

	// Optional internal tick scheduler
	if cfg.TickInterval > 0 {
		go schedule.Start(ctx, cfg.TickInterval, emailCycle, pushCycle, logger)
	}

	// Create router
	h := handler.New(st, emailCycle, pushCycle, emailDispatcher, cfg, logger)
	router := api.NewRouter(h, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Training Push API",
			"addr", addr,
			"environment", cfg.Environment,
			"languages", cfg.Languages)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}

	// Drain detached fire-time corrections before teardown so an interrupt
	// never skips the loop-breaking advancement.
	tracker.Wait()
	logger.Info("Server stopped")
}
