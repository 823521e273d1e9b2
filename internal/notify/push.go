package notify

import (
	"context"
	"log/slog"
)

// PushDeliverer forwards the grouped-by-language due sets to the external
// push-delivery backend in one call. Satisfied by *backend.Client.
type PushDeliverer interface {
	SendTrainingPushes(ctx context.Context, payload map[string][]PushNotification) (int, error)
}

// PushDispatcher hands the whole tick's due sets to the push backend as a
// single payload keyed by language. Empty languages keep their (empty) key so
// the backend always sees the full language map. A non-2xx response fails the
// entire payload.
type PushDispatcher struct {
	Deliverer PushDeliverer
	Logger    *slog.Logger
}

// Dispatch performs the single backend call and reports one result per
// language, all sharing the call's outcome.
func (d *PushDispatcher) Dispatch(ctx context.Context, sets map[string][]PushNotification) []DispatchResult {
	status, err := d.Deliverer.SendTrainingPushes(ctx, sets)

	results := make([]DispatchResult, 0, len(sets))
	for lang, items := range sets {
		r := DispatchResult{
			Language:        lang,
			Success:         err == nil,
			StatusCode:      status,
			NotificationIDs: keys(items),
		}
		if err != nil {
			r.Message = err.Error()
		}
		results = append(results, r)
	}

	if err != nil {
		d.Logger.Error("push delivery failed", "status", status, "error", err)
	}
	return results
}
