package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// deliveryTimeout bounds one webhook delivery when no client is supplied.
const deliveryTimeout = 10 * time.Second

const userAgent = "ghswitch"

func defaultClient() *http.Client {
	return &http.Client{Timeout: deliveryTimeout}
}

// postJSON delivers payload once. Non-2xx responses are errors naming
// target; failed deliveries are never retried.
func postJSON(ctx context.Context, client *http.Client, target, url string, payload any, headers map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", target, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", target, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = defaultClient()
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver to %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s returned %d", target, resp.StatusCode)
	}
	return nil
}
