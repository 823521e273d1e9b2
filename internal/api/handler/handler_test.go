package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memobox/training-push/internal/api"
	"github.com/memobox/training-push/internal/api/handler"
	"github.com/memobox/training-push/internal/config"
	"github.com/memobox/training-push/internal/notify"
	"github.com/memobox/training-push/internal/store"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type fakeStore struct {
	calls       int
	emails      []notify.EmailNotification
	pushes      []notify.PushNotification
	deletedIDs  []string
	due         []notify.EmailNotification
	err         error
	indexEmails int
	indexPushes int
}

func (s *fakeStore) UpsertEmails(_ context.Context, items []notify.EmailNotification) (*store.UpsertResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	s.emails = items
	return &store.UpsertResult{Upserted: int64(len(items))}, nil
}

func (s *fakeStore) UpsertPushes(_ context.Context, items []notify.PushNotification) (*store.UpsertResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	s.pushes = items
	return &store.UpsertResult{Upserted: int64(len(items))}, nil
}

func (s *fakeStore) DeleteEmails(_ context.Context, ids []string) (int64, error) {
	s.calls++
	s.deletedIDs = ids
	return int64(len(ids)), s.err
}

func (s *fakeStore) DeletePushes(_ context.Context, ids []string) (int64, error) {
	s.calls++
	s.deletedIDs = ids
	return int64(len(ids)), s.err
}

func (s *fakeStore) FindDueEmails(_ context.Context, _ string, _ time.Duration) ([]notify.EmailNotification, error) {
	s.calls++
	return s.due, s.err
}

func (s *fakeStore) EnsureEmailIndexes(context.Context) error { s.calls++; s.indexEmails++; return s.err }
func (s *fakeStore) EnsurePushIndexes(context.Context) error  { s.calls++; s.indexPushes++; return s.err }
func (s *fakeStore) Ping(context.Context) error               { return s.err }

type fakeCycle struct {
	calls   int
	results []notify.DispatchResult
	err     error
}

func (c *fakeCycle) Run(context.Context) ([]notify.DispatchResult, error) {
	c.calls++
	return c.results, c.err
}

type fakeMailer struct {
	calls     int
	language  string
	emailType string
	to        string
	data      map[string]any
	err       error
}

func (m *fakeMailer) SendOne(_ context.Context, language, emailType, to string, data map[string]any) (*rest.Response, error) {
	m.calls++
	m.language = language
	m.emailType = emailType
	m.to = to
	m.data = data
	if m.err != nil {
		return nil, m.err
	}
	return &rest.Response{StatusCode: 202}, nil
}

// --------------------------------------------------------------------------
// Harness
// --------------------------------------------------------------------------

const apiKey = "test-secret"

type harness struct {
	store  *fakeStore
	email  *fakeCycle
	push   *fakeCycle
	mailer *fakeMailer
	router http.Handler
}

func newHarness() *harness {
	cfg := &config.Config{
		APISecretKey:   apiKey,
		SendGridAPIKey: "sg-key",
		Languages:      []string{"en", "ru"},
		DueHorizon:     2 * time.Minute,
	}
	return newHarnessWithConfig(cfg)
}

func newHarnessWithConfig(cfg *config.Config) *harness {
	h := &harness{
		store:  &fakeStore{},
		email:  &fakeCycle{},
		push:   &fakeCycle{},
		mailer: &fakeMailer{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hd := handler.New(h.store, h.email, h.push, h.mailer, cfg, logger)
	h.router = api.NewRouter(hd, cfg)
	return h
}

func (h *harness) do(t *testing.T, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// --------------------------------------------------------------------------
// Authentication
// --------------------------------------------------------------------------

func TestInvalidAPIKeyRejectedBeforeAnySideEffect(t *testing.T) {
	h := newHarness()

	for _, path := range []string{
		"/api/v1/notifications",
		"/api/v1/pushes",
		"/api/v1/cycles/email",
		"/api/v1/cycles/push",
		"/api/v1/send/email",
	} {
		rec := h.do(t, http.MethodPost, path, "wrong-key", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	assert.Equal(t, 0, h.store.calls)
	assert.Equal(t, 0, h.email.calls)
	assert.Equal(t, 0, h.push.calls)
	assert.Equal(t, 0, h.mailer.calls)
}

func TestMissingAPIKeyRejected(t *testing.T) {
	h := newHarness()
	rec := h.do(t, http.MethodPost, "/api/v1/cycles/email", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, h.email.calls)
}

func TestNonPOSTMethodRejectedOnTriggers(t *testing.T) {
	h := newHarness()
	rec := h.do(t, http.MethodGet, "/api/v1/cycles/email", apiKey, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 0, h.email.calls)
}

func TestHealthDoesNotRequireAPIKey(t *testing.T) {
	h := newHarness()
	rec := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// --------------------------------------------------------------------------
// CRUD endpoints
// --------------------------------------------------------------------------

func TestUpsertNotifications(t *testing.T) {
	h := newHarness()
	items := []notify.EmailNotification{
		{NotificationID: "a", NotificationTime: time.Now().UTC(), Email: "a@memobox.tech", UserLanguage: "en", NotificationType: "TRAINING", Name: "A"},
		{NotificationID: "b", NotificationTime: time.Now().UTC(), Email: "b@memobox.tech", UserLanguage: "ru", NotificationType: "TRAINING", Name: "B"},
	}

	rec := h.do(t, http.MethodPost, "/api/v1/notifications", apiKey, items)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, h.store.emails, 2)
	var result store.UpsertResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, int64(2), result.Upserted)
}

func TestUpsertNotificationsRejectsEmptyAndMalformedBodies(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodPost, "/api/v1/notifications", apiKey, []notify.EmailNotification{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", bytes.NewBufferString("{not json"))
	req.Header.Set("x-api-key", apiKey)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/notifications", apiKey, []notify.EmailNotification{{Email: "x@memobox.tech"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertPushes(t *testing.T) {
	h := newHarness()
	items := []notify.PushNotification{
		{NotificationID: "p1", NotificationTime: time.Now().UTC(), UserLanguage: "en"},
	}

	rec := h.do(t, http.MethodPost, "/api/v1/pushes", apiKey, items)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.store.pushes, 1)
}

func TestDeleteRequiresNotificationIDs(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodDelete, "/api/v1/pushes", apiKey, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodDelete, "/api/v1/pushes", apiKey, map[string]any{"notificationIds": []string{"a", "b"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a", "b"}, h.store.deletedIDs)
}

func TestListNotifications(t *testing.T) {
	h := newHarness()
	h.store.due = []notify.EmailNotification{{NotificationID: "a", UserLanguage: "en"}}

	rec := h.do(t, http.MethodGet, "/api/v1/notifications?lang=en", apiKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []notify.EmailNotification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].NotificationID)

	rec = h.do(t, http.MethodGet, "/api/v1/notifications", apiKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateIndexes(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodPost, "/api/v1/indexes/email", apiKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(t, http.MethodPost, "/api/v1/indexes/push", apiKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, h.store.indexEmails)
	assert.Equal(t, 1, h.store.indexPushes)
}

// --------------------------------------------------------------------------
// Tick triggers
// --------------------------------------------------------------------------

func TestRunEmailCycleReportsPerLanguageFailuresWith200(t *testing.T) {
	h := newHarness()
	h.email.results = []notify.DispatchResult{
		{Language: "en", Success: true, NotificationIDs: []string{"a"}},
		{Language: "ru", Success: false, NotificationIDs: []string{"b"}, Message: "provider error"},
	}

	rec := h.do(t, http.MethodPost, "/api/v1/cycles/email", apiKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Channel string                  `json:"channel"`
		Results []notify.DispatchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "email", resp.Channel)
	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, "provider error", resp.Results[1].Message)
}

func TestRunEmailCycleStoreFailureReturns500(t *testing.T) {
	h := newHarness()
	h.email.err = errors.New("find due email/en: connection refused")

	rec := h.do(t, http.MethodPost, "/api/v1/cycles/email", apiKey, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "STORE_ERROR")
}

func TestRunEmailCycleWithoutSendGridKeyIsConfigError(t *testing.T) {
	cfg := &config.Config{
		APISecretKey: apiKey,
		Languages:    []string{"en", "ru"},
		DueHorizon:   2 * time.Minute,
	}
	h := newHarnessWithConfig(cfg)

	rec := h.do(t, http.MethodPost, "/api/v1/cycles/email", apiKey, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFIG_ERROR")
	assert.Equal(t, 0, h.email.calls)
}

func TestRunPushCycle(t *testing.T) {
	h := newHarness()
	h.push.results = []notify.DispatchResult{
		{Language: "en", Success: true, NotificationIDs: []string{}},
		{Language: "ru", Success: true, NotificationIDs: []string{}},
	}

	rec := h.do(t, http.MethodPost, "/api/v1/cycles/push", apiKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.push.calls)
	assert.Equal(t, 0, h.email.calls)
}

// --------------------------------------------------------------------------
// Single transactional email
// --------------------------------------------------------------------------

func TestSendEmail(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodPost, "/api/v1/send/email", apiKey, map[string]any{
		"to":        "user@memobox.tech",
		"emailType": "WELCOME",
		"data":      map[string]any{"name": "User"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, h.mailer.calls)
	assert.Equal(t, "user@memobox.tech", h.mailer.to)
	assert.Equal(t, "WELCOME", h.mailer.emailType)
	// Language defaults to en when omitted.
	assert.Equal(t, "en", h.mailer.language)
}

func TestSendEmailValidation(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodPost, "/api/v1/send/email", apiKey, map[string]any{"emailType": "WELCOME"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/send/email", apiKey, map[string]any{"to": "user@memobox.tech"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 0, h.mailer.calls)
}

func TestSendEmailProviderFailure(t *testing.T) {
	h := newHarness()
	h.mailer.err = errors.New("sendgrid send: status 500")

	rec := h.do(t, http.MethodPost, "/api/v1/send/email", apiKey, map[string]any{
		"to":        "user@memobox.tech",
		"emailType": "WELCOME",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "SEND_FAILED")
}
