package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const eventAdminLocked = "admin_locked"

// WebhookDispatcher POSTs the alert as JSON to a fixed URL.
type WebhookDispatcher struct {
	url    string
	client *http.Client
}

// NewWebhookDispatcher returns a dispatcher posting to url. A nil client
// gets one with DefaultTimeout.
func NewWebhookDispatcher(url string, client *http.Client) *WebhookDispatcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &WebhookDispatcher{url: url, client: client}
}

type webhookPayload struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Alert     any    `json:"alert"`
}

func (d *WebhookDispatcher) Dispatch(ctx context.Context, ev Event) error {
	return d.post(ctx, eventAdminLocked, ev.Time, ev)
}

func (d *WebhookDispatcher) post(ctx context.Context, event string, at time.Time, data any) error {
	body, err := json.Marshal(webhookPayload{
		ID:        uuid.New().String(),
		Event:     event,
		Timestamp: at.UTC().Format(time.RFC3339),
		Alert:     data,
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
