package handler

import (
	"encoding/json"
	"net/http"

	"github.com/memobox/training-push/internal/api/respond"
	"github.com/memobox/training-push/internal/notify"
)

// deleteRequest is the administrative removal body for both channels.
type deleteRequest struct {
	NotificationIDs []string `json:"notificationIds"`
}

// UpsertNotifications creates or updates email notification records, matching
// on notificationId.
func (h *Handler) UpsertNotifications(w http.ResponseWriter, r *http.Request) {
	var items []notify.EmailNotification
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Request body must be a JSON array of notifications")
		return
	}
	if len(items) == 0 {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Request body is empty")
		return
	}
	for _, item := range items {
		if item.NotificationID == "" {
			respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Every notification needs a notificationId")
			return
		}
	}

	result, err := h.store.UpsertEmails(r.Context(), items)
	if err != nil {
		h.logger.Error("upsert email notifications failed", "count", len(items), "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to upsert notifications")
		return
	}
	h.logger.Info("email notifications upserted", "count", len(items), "upserted", result.Upserted)
	respond.WriteJSON(w, http.StatusOK, result)
}

// ListNotifications returns the email records due for a language within the
// configured horizon.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Query parameter lang is required")
		return
	}

	items, err := h.store.FindDueEmails(r.Context(), lang, h.cfg.DueHorizon)
	if err != nil {
		h.logger.Error("list email notifications failed", "language", lang, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to list notifications")
		return
	}
	if items == nil {
		items = []notify.EmailNotification{}
	}
	respond.WriteJSON(w, http.StatusOK, items)
}

// DeleteNotifications removes email records by notificationId list.
func (h *Handler) DeleteNotifications(w http.ResponseWriter, r *http.Request) {
	h.deleteByIDs(w, r, h.store.DeleteEmails)
}
