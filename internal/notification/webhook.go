package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier sends alerts to a generic HTTP webhook endpoint.
type WebhookNotifier struct {
	url    string
	client *resty.Client
}

// NewWebhookNotifier creates a webhook notifier.
// url: The HTTP endpoint to POST alerts to.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: resty.New().
			SetTimeout(10*time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	payload := map[string]interface{}{
		"level":   string(alert.Level),
		"title":   alert.Title,
		"message": alert.Message,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
	}
	if alert.Symbol != "" {
		payload["symbol"] = alert.Symbol
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode())
	}

	log.Printf("[webhook] sent alert to %s: %s", w.url, alert.Title)
	return nil
}
