// Package store persists notification records in MongoDB: one collection per
// channel, keyed by notificationId, with a secondary index on
// notificationTime for due selection. Every multi-record operation is a
// single bulk call.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/memobox/training-push/internal/config"
	"github.com/memobox/training-push/internal/notify"
)

// Store wraps the Mongo client with application-specific operations.
type Store struct {
	client *mongo.Client
	emails *mongo.Collection
	pushes *mongo.Collection
}

// New connects to Mongo and verifies connectivity.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	return &Store{
		client: client,
		emails: db.Collection(config.EmailCollection),
		pushes: db.Collection(config.PushCollection),
	}, nil
}

// Close releases the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// --------------------------------------------------------------------------
// Upserts
// --------------------------------------------------------------------------

// UpsertResult reports bulk upsert counts.
type UpsertResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
	Upserted int64 `json:"upserted"`
}

// UpsertEmails update-or-inserts email records matching on notificationId,
// as one unordered bulk write.
func (s *Store) UpsertEmails(ctx context.Context, items []notify.EmailNotification) (*UpsertResult, error) {
	return upsertMany(ctx, s.emails, items)
}

// UpsertPushes update-or-inserts push records matching on notificationId.
func (s *Store) UpsertPushes(ctx context.Context, items []notify.PushNotification) (*UpsertResult, error) {
	return upsertMany(ctx, s.pushes, items)
}

func upsertMany[T notify.Record](ctx context.Context, coll *mongo.Collection, items []T) (*UpsertResult, error) {
	if len(items) == 0 {
		return &UpsertResult{}, nil
	}
	models := make([]mongo.WriteModel, 0, len(items))
	for _, item := range items {
		models = append(models, upsertModel(item))
	}
	res, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return nil, fmt.Errorf("bulk upsert %s: %w", coll.Name(), err)
	}
	return &UpsertResult{
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
		Upserted: res.UpsertedCount,
	}, nil
}

// --------------------------------------------------------------------------
// Due selection
// --------------------------------------------------------------------------

// FindDueEmails returns email records for a language whose fire time falls
// strictly before now+horizon.
func (s *Store) FindDueEmails(ctx context.Context, language string, horizon time.Duration) ([]notify.EmailNotification, error) {
	return findDue[notify.EmailNotification](ctx, s.emails, language, time.Now().Add(horizon))
}

// FindDuePushes returns push records for a language whose fire time falls
// strictly before now+horizon.
func (s *Store) FindDuePushes(ctx context.Context, language string, horizon time.Duration) ([]notify.PushNotification, error) {
	return findDue[notify.PushNotification](ctx, s.pushes, language, time.Now().Add(horizon))
}

func findDue[T any](ctx context.Context, coll *mongo.Collection, language string, before time.Time) ([]T, error) {
	cur, err := coll.Find(ctx, dueFilter(language, before))
	if err != nil {
		return nil, fmt.Errorf("find due %s: %w", coll.Name(), err)
	}
	var items []T
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode due %s: %w", coll.Name(), err)
	}
	return items, nil
}

// --------------------------------------------------------------------------
// Fire-time advancement
// --------------------------------------------------------------------------

// AdvanceEmails sets the fire time for the given identities in one bulk
// update. Applied regardless of dispatch outcome.
func (s *Store) AdvanceEmails(ctx context.Context, ids []string, to time.Time) (int64, error) {
	return advance(ctx, s.emails, ids, to)
}

// AdvancePushes sets the fire time for the given push identities.
func (s *Store) AdvancePushes(ctx context.Context, ids []string, to time.Time) (int64, error) {
	return advance(ctx, s.pushes, ids, to)
}

func advance(ctx context.Context, coll *mongo.Collection, ids []string, to time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := coll.UpdateMany(ctx, idFilter(ids), advanceUpdate(to))
	if err != nil {
		return 0, fmt.Errorf("advance %s: %w", coll.Name(), err)
	}
	return res.ModifiedCount, nil
}

// --------------------------------------------------------------------------
// Administrative removal
// --------------------------------------------------------------------------

// DeleteEmails removes email records by identity. Not part of the scheduling
// hot path.
func (s *Store) DeleteEmails(ctx context.Context, ids []string) (int64, error) {
	return remove(ctx, s.emails, ids)
}

// DeletePushes removes push records by identity.
func (s *Store) DeletePushes(ctx context.Context, ids []string) (int64, error) {
	return remove(ctx, s.pushes, ids)
}

func remove(ctx context.Context, coll *mongo.Collection, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := coll.DeleteMany(ctx, idFilter(ids))
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", coll.Name(), err)
	}
	return res.DeletedCount, nil
}

// --------------------------------------------------------------------------
// Indexes
// --------------------------------------------------------------------------

// EnsureEmailIndexes creates the unique notificationId index and the
// notificationTime index on the email collection. Idempotent.
func (s *Store) EnsureEmailIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, s.emails)
}

// EnsurePushIndexes creates the same indexes on the push collection.
func (s *Store) EnsurePushIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, s.pushes)
}

func ensureIndexes(ctx context.Context, coll *mongo.Collection) error {
	if _, err := coll.Indexes().CreateMany(ctx, indexModels()); err != nil {
		return fmt.Errorf("create %s indexes: %w", coll.Name(), err)
	}
	return nil
}
