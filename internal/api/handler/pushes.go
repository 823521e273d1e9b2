package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/memobox/training-push/internal/api/respond"
	"github.com/memobox/training-push/internal/notify"
)

// UpsertPushes creates or updates push notification records, matching on
// notificationId.
func (h *Handler) UpsertPushes(w http.ResponseWriter, r *http.Request) {
	var items []notify.PushNotification
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Request body must be a JSON array of pushes")
		return
	}
	if len(items) == 0 {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Request body is empty")
		return
	}
	for _, item := range items {
		if item.NotificationID == "" {
			respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Every push needs a notificationId")
			return
		}
	}

	result, err := h.store.UpsertPushes(r.Context(), items)
	if err != nil {
		h.logger.Error("upsert pushes failed", "count", len(items), "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to upsert pushes")
		return
	}
	h.logger.Info("pushes upserted", "count", len(items), "upserted", result.Upserted)
	respond.WriteJSON(w, http.StatusOK, result)
}

// DeletePushes removes push records by notificationId list.
func (h *Handler) DeletePushes(w http.ResponseWriter, r *http.Request) {
	h.deleteByIDs(w, r, h.store.DeletePushes)
}

// CreateEmailIndexes creates the email collection indexes. Idempotent.
func (h *Handler) CreateEmailIndexes(w http.ResponseWriter, r *http.Request) {
	h.createIndexes(w, r, h.store.EnsureEmailIndexes)
}

// CreatePushIndexes creates the push collection indexes. Idempotent.
func (h *Handler) CreatePushIndexes(w http.ResponseWriter, r *http.Request) {
	h.createIndexes(w, r, h.store.EnsurePushIndexes)
}

func (h *Handler) deleteByIDs(w http.ResponseWriter, r *http.Request, del func(context.Context, []string) (int64, error)) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.NotificationIDs) == 0 {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Request body is empty or missing notificationIds")
		return
	}

	deleted, err := del(r.Context(), req.NotificationIDs)
	if err != nil {
		h.logger.Error("delete notifications failed", "count", len(req.NotificationIDs), "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to delete notifications")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *Handler) createIndexes(w http.ResponseWriter, r *http.Request, ensure func(context.Context) error) {
	if err := ensure(r.Context()); err != nil {
		h.logger.Error("create indexes failed", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to create indexes")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
