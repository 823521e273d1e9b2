package handler

import (
	"net/http"

	"github.com/memobox/training-push/internal/api/respond"
	"github.com/memobox/training-push/internal/notify"
)

// cycleResponse is the trigger caller's view of one tick. Per-language
// failures live in the results, not the HTTP status.
type cycleResponse struct {
	Channel string                  `json:"channel"`
	Results []notify.DispatchResult `json:"results"`
}

// RunEmailCycle executes one email scheduling tick. The response is 200 even
// when some languages failed to dispatch; only store or configuration
// failures abort the tick.
func (h *Handler) RunEmailCycle(w http.ResponseWriter, r *http.Request) {
	if h.cfg.SendGridAPIKey == "" {
		respond.WriteError(w, http.StatusInternalServerError, "CONFIG_ERROR", "SendGrid API key is not provided")
		return
	}
	h.runCycle(w, r, notify.ChannelEmail, h.email)
}

// RunPushCycle executes one push scheduling tick.
func (h *Handler) RunPushCycle(w http.ResponseWriter, r *http.Request) {
	h.runCycle(w, r, notify.ChannelPush, h.push)
}

func (h *Handler) runCycle(w http.ResponseWriter, r *http.Request, channel string, cycle CycleRunner) {
	results, err := cycle.Run(r.Context())
	if err != nil {
		h.logger.Error("tick aborted", "channel", channel, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Tick aborted: "+err.Error())
		return
	}
	if results == nil {
		results = []notify.DispatchResult{}
	}
	respond.WriteJSON(w, http.StatusOK, cycleResponse{Channel: channel, Results: results})
}
