// Package notify implements the notification lifecycle engine: selection of
// due records per language, batched dispatch to a delivery channel, and
// unconditional advancement of fire times after every dispatch attempt.
//
// Each tick selects the due sets per language in parallel, dispatches them,
// forwards the results to the aggregation backend, then advances fire times
// for every selected record regardless of dispatch outcome. A failing
// provider must never leave the same records due on every subsequent tick.
package notify

import (
	"time"
)

// Channel names used in logs and dispatch results.
const (
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// EmailNotification is one scheduled training reminder delivered by email.
// Field names match the wire and document shape of the email_notifications
// collection.
type EmailNotification struct {
	NotificationID   string    `bson:"notificationId" json:"notificationId"`
	NotificationTime time.Time `bson:"notificationTime" json:"notificationTime"`
	Email            string    `bson:"email" json:"email"`
	UserLanguage     string    `bson:"user_language" json:"user_language"`
	NotificationType string    `bson:"notificationType" json:"notificationType"`
	Name             string    `bson:"name" json:"name"`
}

// Key returns the record's stable identity.
func (n EmailNotification) Key() string { return n.NotificationID }

// PushNotification is one scheduled training reminder delivered by push.
// The push destination is resolved externally by identity, so the record
// carries only identity, schedule, and language.
type PushNotification struct {
	NotificationID   string    `bson:"notificationId" json:"notificationId"`
	NotificationTime time.Time `bson:"notificationTime" json:"notificationTime"`
	UserLanguage     string    `bson:"user_language" json:"user_language"`
}

// Key returns the record's stable identity.
func (n PushNotification) Key() string { return n.NotificationID }

// Record is the common capability of both notification kinds.
type Record interface {
	Key() string
}

// DispatchResult is the outcome of one language's batch for one tick.
type DispatchResult struct {
	Language        string   `json:"language"`
	Success         bool     `json:"success"`
	StatusCode      int      `json:"statusCode,omitempty"`
	NotificationIDs []string `json:"notificationIds"`
	Message         string   `json:"message,omitempty"`
}

// keys extracts record identities in batch order.
func keys[T Record](items []T) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.Key())
	}
	return ids
}
