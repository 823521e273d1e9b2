// Command admin is the Training Push administrative CLI.
//
// Usage:
//
//	training-push-admin indexes email
//	training-push-admin indexes push
//	training-push-admin upsert email --file notifications.json
//	training-push-admin upsert push --file pushes.json
//	training-push-admin remove email --ids id1,id2
//	training-push-admin remove push --ids id1,id2
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/memobox/training-push/internal/config"
	"github.com/memobox/training-push/internal/notify"
	"github.com/memobox/training-push/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "training-push-admin",
		Short: "Training Push administrative CLI",
	}

	root.AddCommand(indexesCmd())
	root.AddCommand(upsertCmd())
	root.AddCommand(removeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// withStore loads config, connects, runs fn, and disconnects.
func withStore(fn func(ctx context.Context, st *store.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, 2*time.Minute)
	defer timeoutCancel()

	st, err := store.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	return fn(ctx, st)
}

// --------------------------------------------------------------------------
// indexes command
// --------------------------------------------------------------------------

func indexesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexes [email|push]",
		Short: "Create collection indexes (idempotent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.Store) error {
				var err error
				switch args[0] {
				case notify.ChannelEmail:
					err = st.EnsureEmailIndexes(ctx)
				case notify.ChannelPush:
					err = st.EnsurePushIndexes(ctx)
				default:
					return fmt.Errorf("unknown channel %q", args[0])
				}
				if err != nil {
					return err
				}
				logger.Info("Indexes created", "channel", args[0])
				return nil
			})
		},
	}
	return cmd
}

// --------------------------------------------------------------------------
// upsert command
// --------------------------------------------------------------------------

func upsertCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "upsert [email|push]",
		Short: "Upsert notification records from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}

			return withStore(func(ctx context.Context, st *store.Store) error {
				var result *store.UpsertResult
				switch args[0] {
				case notify.ChannelEmail:
					var items []notify.EmailNotification
					if err := json.Unmarshal(raw, &items); err != nil {
						return fmt.Errorf("parse %s: %w", file, err)
					}
					result, err = st.UpsertEmails(ctx, items)
				case notify.ChannelPush:
					var items []notify.PushNotification
					if err := json.Unmarshal(raw, &items); err != nil {
						return fmt.Errorf("parse %s: %w", file, err)
					}
					result, err = st.UpsertPushes(ctx, items)
				default:
					return fmt.Errorf("unknown channel %q", args[0])
				}
				if err != nil {
					return err
				}
				logger.Info("Upsert complete", "channel", args[0],
					"matched", result.Matched, "modified", result.Modified, "upserted", result.Upserted)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON file with an array of records")
	cmd.MarkFlagRequired("file")
	return cmd
}

// --------------------------------------------------------------------------
// remove command
// --------------------------------------------------------------------------

func removeCmd() *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "remove [email|push]",
		Short: "Delete notification records by notificationId",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.Store) error {
				var deleted int64
				var err error
				switch args[0] {
				case notify.ChannelEmail:
					deleted, err = st.DeleteEmails(ctx, ids)
				case notify.ChannelPush:
					deleted, err = st.DeletePushes(ctx, ids)
				default:
					return fmt.Errorf("unknown channel %q", args[0])
				}
				if err != nil {
					return err
				}
				logger.Info("Delete complete", "channel", args[0], "deleted", deleted)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&ids, "ids", nil, "notificationIds to delete")
	cmd.MarkFlagRequired("ids")
	return cmd
}
