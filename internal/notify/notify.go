package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/wattpipe/internal/httputil"
)

// Webhook delivers alerts by POSTing JSON to a configured endpoint.
// Delivery is fire-and-forget from the pipeline's perspective: the caller
// only sees success or failure, redelivery is the infrastructure's job.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: httputil.NewClient(),
	}
}

func (w *Webhook) Send(ctx context.Context, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"subject": subject,
		"body":    body,
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("send alert: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("alert webhook: status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 300 {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("alert webhook: status %d: %s", resp.StatusCode, string(b)))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}

// Log writes alerts to the process log. Used when no webhook URL is
// configured, and as the notifier for local development.
type Log struct{}

func (Log) Send(_ context.Context, subject, body string) error {
	log.Printf("alert: %s\n%s", subject, body)
	return nil
}
