// Package schedule drives scheduling ticks from an internal ticker for
// deployments without an external trigger. The HTTP trigger remains the
// primary contract; this runs the same cycles on a fixed interval.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/memobox/training-push/internal/notify"
)

// Runner runs one scheduling tick for a channel.
type Runner interface {
	Run(ctx context.Context) ([]notify.DispatchResult, error)
}

// Start runs both channel cycles every interval. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, interval time.Duration, email, push Runner, logger *slog.Logger) {
	logger.Info("Internal tick scheduler started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runTick(ctx, notify.ChannelEmail, email, logger)
			runTick(ctx, notify.ChannelPush, push, logger)
		case <-ctx.Done():
			logger.Info("Internal tick scheduler stopped")
			return
		}
	}
}

func runTick(ctx context.Context, channel string, r Runner, logger *slog.Logger) {
	results, err := r.Run(ctx)
	if err != nil {
		logger.Error("tick failed", "channel", channel, "error", err)
		return
	}
	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
	}
	if len(results) > 0 || failed > 0 {
		logger.Info("tick complete", "channel", channel, "results", len(results), "failed", failed)
	}
}
