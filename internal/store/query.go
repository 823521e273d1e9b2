package store

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/memobox/training-push/internal/notify"
)

// dueFilter matches records for one language with a fire time strictly before
// the horizon cut-off. Records exactly at the cut-off are excluded.
func dueFilter(language string, before time.Time) bson.M {
	return bson.M{
		"user_language":    language,
		"notificationTime": bson.M{"$lt": before},
	}
}

// idFilter matches records by notificationId membership.
func idFilter(ids []string) bson.M {
	return bson.M{"notificationId": bson.M{"$in": ids}}
}

// advanceUpdate sets the next fire time.
func advanceUpdate(to time.Time) bson.M {
	return bson.M{"$set": bson.M{"notificationTime": to}}
}

// upsertModel builds the update-or-insert model for one record: full-document
// $set matched on notificationId, so a second write with the same identity
// updates rather than duplicates.
func upsertModel(item notify.Record) mongo.WriteModel {
	return mongo.NewUpdateOneModel().
		SetFilter(bson.M{"notificationId": item.Key()}).
		SetUpdate(bson.M{"$set": item}).
		SetUpsert(true)
}

// indexModels returns the collection indexes: notificationId unique (upsert
// identity) and notificationTime ascending (due selection).
func indexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "notificationId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "notificationTime", Value: 1}},
		},
	}
}
