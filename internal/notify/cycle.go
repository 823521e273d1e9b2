package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// --------------------------------------------------------------------------
// Seams implemented by internal/store and the dispatchers
// --------------------------------------------------------------------------

// Source selects the due records for one language within a lookahead horizon.
type Source[T Record] interface {
	FindDue(ctx context.Context, language string, horizon time.Duration) ([]T, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc[T Record] func(ctx context.Context, language string, horizon time.Duration) ([]T, error)

func (f SourceFunc[T]) FindDue(ctx context.Context, language string, horizon time.Duration) ([]T, error) {
	return f(ctx, language, horizon)
}

// Dispatcher delivers the per-language due sets for one tick and reports a
// result per language. Implementations decide their own fan-out: email is one
// provider call per non-empty language, push is one backend call carrying
// every language key.
type Dispatcher[T Record] interface {
	Dispatch(ctx context.Context, sets map[string][]T) []DispatchResult
}

// Advancer applies one bulk fire-time update for the given identities.
type Advancer interface {
	Advance(ctx context.Context, ids []string, to time.Time) (int64, error)
}

// AdvanceFunc adapts a function to the Advancer interface.
type AdvanceFunc func(ctx context.Context, ids []string, to time.Time) (int64, error)

func (f AdvanceFunc) Advance(ctx context.Context, ids []string, to time.Time) (int64, error) {
	return f(ctx, ids, to)
}

// Forwarder hands the tick's dispatch results to a downstream consumer.
type Forwarder interface {
	ForwardResults(ctx context.Context, results []DispatchResult) error
}

// --------------------------------------------------------------------------
// Cycle
// --------------------------------------------------------------------------

// Cycle drives one scheduling tick for a single channel across all configured
// languages.
type Cycle[T Record] struct {
	Channel    string
	Source     Source[T]
	Dispatcher Dispatcher[T]
	Advancer   Advancer
	Forwarder  Forwarder // optional; failures are logged, never fatal

	Languages []string
	Horizon   time.Duration
	Advance   time.Duration // fire-time offset applied after dispatch

	Tracker *Tracker
	Logger  *slog.Logger
	Now     func() time.Time // defaults to time.Now
}

func (c *Cycle[T]) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Run executes one tick and returns the per-language dispatch results.
// A store failure during selection aborts the tick. Dispatch failures do not:
// they are captured in the results, and the fire-time advancement still runs
// over every selected record. The advancement itself is handed to the Tracker
// as a detached task so the trigger caller is not held up by it; Tracker.Wait
// lets the host drain it before teardown.
func (c *Cycle[T]) Run(ctx context.Context) ([]DispatchResult, error) {
	sets, err := c.selectDue(ctx)
	if err != nil {
		return nil, err
	}

	results := c.Dispatcher.Dispatch(ctx, sets)
	sort.Slice(results, func(i, j int) bool { return results[i].Language < results[j].Language })

	for _, r := range results {
		c.Logger.Info("dispatch result",
			"channel", c.Channel,
			"language", r.Language,
			"success", r.Success,
			"count", len(r.NotificationIDs),
			"message", r.Message)
	}

	if c.Forwarder != nil {
		if err := c.Forwarder.ForwardResults(ctx, results); err != nil {
			c.Logger.Error("forward dispatch results failed", "channel", c.Channel, "error", err)
		}
	}

	// Advance every selected record, dispatched successfully or not. Runs
	// detached from the trigger caller's request; correctCtx survives the
	// request ending.
	ids := c.selectedIDs(sets)
	correctCtx := context.WithoutCancel(ctx)
	c.Tracker.Go(func() {
		c.correct(correctCtx, ids)
	})

	return results, nil
}

// selectDue fans out one FindDue query per language. The returned map holds a
// key for every configured language, empty slices included.
func (c *Cycle[T]) selectDue(ctx context.Context) (map[string][]T, error) {
	sets := make(map[string][]T, len(c.Languages))

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	for _, lang := range c.Languages {
		wg.Add(1)
		go func(lang string) {
			defer wg.Done()
			items, err := c.Source.FindDue(ctx, lang, c.Horizon)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("find due %s/%s: %w", c.Channel, lang, err)
				}
				return
			}
			if items == nil {
				// Keep empty languages as [] so downstream payloads carry
				// every configured key.
				items = []T{}
			}
			sets[lang] = items
		}(lang)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return sets, nil
}

func (c *Cycle[T]) selectedIDs(sets map[string][]T) []string {
	var ids []string
	for _, items := range sets {
		ids = append(ids, keys(items)...)
	}
	return ids
}

func (c *Cycle[T]) correct(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	to := c.now().Add(c.Advance)
	modified, err := c.Advancer.Advance(ctx, ids, to)
	if err != nil {
		c.Logger.Error("advance fire times failed",
			"channel", c.Channel, "count", len(ids), "error", err)
		return
	}
	c.Logger.Info("fire times advanced",
		"channel", c.Channel, "count", len(ids), "modified", modified, "to", to)
}
