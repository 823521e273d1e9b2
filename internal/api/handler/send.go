package handler

import (
	"encoding/json"
	"net/http"

	"github.com/memobox/training-push/internal/api/respond"
	"github.com/memobox/training-push/internal/config"
)

// sendEmailRequest is the single transactional email body.
type sendEmailRequest struct {
	To        string         `json:"to"`
	EmailType string         `json:"emailType"`
	Language  string         `json:"language"`
	Data      map[string]any `json:"data"`
}

// SendEmail sends one transactional email outside the scheduling loop, with
// template data passed through from the request.
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	if h.cfg.SendGridAPIKey == "" {
		respond.WriteError(w, http.StatusInternalServerError, "CONFIG_ERROR", "SendGrid API key is not provided")
		return
	}

	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "No body found in request")
		return
	}
	if req.To == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", `No recipient found in body - field with name "to" is undefined`)
		return
	}
	if req.EmailType == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "No emailType found in body")
		return
	}
	if req.Language == "" {
		req.Language = config.DefaultLanguage
	}

	resp, err := h.mailer.SendOne(r.Context(), req.Language, req.EmailType, req.To, req.Data)
	if err != nil {
		h.logger.Error("send email failed", "to", req.To, "type", req.EmailType, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "SEND_FAILED", "Failed to send email")
		return
	}

	h.logger.Info("email sent", "to", req.To, "type", req.EmailType, "status", resp.StatusCode)
	respond.WriteJSON(w, http.StatusOK, map[string]any{"status": resp.StatusCode})
}
