package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrWebhookRejected is returned when the webhook answers with a non-2xx status.
var ErrWebhookRejected = errors.New("notify: webhook rejected alert")

// webhookPayload is the JSON body POSTed to the webhook.
type webhookPayload struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// WebhookNotifier POSTs alerts as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	source string
}

// NewWebhookNotifier creates a notifier for url. source identifies this
// site in the payload.
func NewWebhookNotifier(url, source string, timeout time.Duration) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "graylogic-energy")

	return &WebhookNotifier{
		client: client,
		url:    url,
		source: source,
	}
}

// SendAlert POSTs {"text": message, "source": source}.
func (n *WebhookNotifier) SendAlert(ctx context.Context, message string) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(webhookPayload{Text: message, Source: n.source}).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("posting alert webhook: %w", err)
	}

	if resp.IsError() || resp.StatusCode() >= 300 {
		return fmt.Errorf("%w: %s: %s", ErrWebhookRejected, resp.Status(), resp.String())
	}
	return nil
}
