package notify

import (
	"context"
	"net/http"
)

// EventHeader carries the event type so receivers can route without
// decoding the body.
const EventHeader = "X-Ghswitch-Event"

// WebhookNotifier posts each Event as JSON to a URL.
type WebhookNotifier struct {
	URL     string
	Headers map[string]string
	Client  *http.Client
}

// NewWebhookNotifier creates a webhook notifier. headers are added to
// every request, after the defaults.
func NewWebhookNotifier(url string, headers map[string]string) *WebhookNotifier {
	return &WebhookNotifier{URL: url, Headers: headers, Client: defaultClient()}
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	headers := make(map[string]string, len(n.Headers)+1)
	headers[EventHeader] = string(event.Type)
	for k, v := range n.Headers {
		headers[k] = v
	}
	return postJSON(ctx, n.Client, "webhook", n.URL, event, headers)
}
