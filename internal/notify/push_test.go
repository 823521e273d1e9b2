package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeliverer struct {
	got    map[string][]PushNotification
	status int
	err    error
	calls  int
}

func (d *fakeDeliverer) SendTrainingPushes(_ context.Context, payload map[string][]PushNotification) (int, error) {
	d.calls++
	d.got = payload
	return d.status, d.err
}

func pushRecord(id, language string) PushNotification {
	return PushNotification{
		NotificationID:   id,
		NotificationTime: time.Now(),
		UserLanguage:     language,
	}
}

func TestPushDispatcherSendsOnePayloadWithAllLanguageKeys(t *testing.T) {
	deliverer := &fakeDeliverer{status: 200}
	d := &PushDispatcher{Deliverer: deliverer, Logger: testLogger()}

	sets := map[string][]PushNotification{
		"en": {pushRecord("a", "en")},
		"ru": {},
	}
	results := d.Dispatch(context.Background(), sets)

	assert.Equal(t, 1, deliverer.calls)
	// Empty languages keep their key in the payload.
	require.Len(t, deliverer.got, 2)
	assert.Len(t, deliverer.got["en"], 1)
	assert.Empty(t, deliverer.got["ru"])

	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success)
		assert.Equal(t, 200, r.StatusCode)
	}
}

func TestPushDispatcherBackendFailureFailsWholePayload(t *testing.T) {
	deliverer := &fakeDeliverer{status: 502, err: errors.New("status 502")}
	d := &PushDispatcher{Deliverer: deliverer, Logger: testLogger()}

	results := d.Dispatch(context.Background(), map[string][]PushNotification{
		"en": {pushRecord("a", "en")},
		"ru": {pushRecord("b", "ru")},
	})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Success)
		assert.Equal(t, 502, r.StatusCode)
		assert.NotEmpty(t, r.Message)
	}
}
