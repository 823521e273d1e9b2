// Package backend provides the HTTP client for the memobox backend: push
// delivery and dispatch-result aggregation.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/memobox/training-push/internal/notify"
)

const apiPrefix = "api/v1/"

const (
	pushEndpoint      = "notifications/sendAllTrainingPushes"
	aggregateEndpoint = "notifications/dispatchResults"
)

// Client calls the memobox backend. The shared secret is forwarded as the
// x-api-key header on every request.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a backend client. baseURL may carry a trailing slash or not.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/",
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendTrainingPushes posts the tick's due sets, keyed by language, to the
// push-delivery backend. Returns the HTTP status; a non-2xx status is an
// error for the whole payload.
func (c *Client) SendTrainingPushes(ctx context.Context, payload map[string][]notify.PushNotification) (int, error) {
	return c.post(ctx, pushEndpoint, payload)
}

// ForwardResults posts the tick's dispatch results to the aggregation
// backend. Callers treat failures as log-only.
func (c *Client) ForwardResults(ctx context.Context, results []notify.DispatchResult) error {
	_, err := c.post(ctx, aggregateEndpoint, results)
	return err
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal %s payload: %w", endpoint, err)
	}

	url := c.baseURL + apiPrefix + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("post %s: status %d", endpoint, resp.StatusCode)
	}
	return resp.StatusCode, nil
}
