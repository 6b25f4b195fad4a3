package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSender posts payloads as JSON to a fixed HTTP endpoint, for
// deployments that relay notifications through their own gateway instead
// of a browser push service. The subscription's endpoint blob rides along
// so the gateway can address the recipient.
type WebhookSender struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewWebhookSender(endpoint, key string) *WebhookSender {
	return &WebhookSender{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (s *WebhookSender) Send(ctx context.Context, endpoint json.RawMessage, p Payload) error {
	body, err := json.Marshal(map[string]any{"recipient": endpoint, "notification": p})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Key != "" {
		req.Header.Set("Authorization", "Bearer "+s.Key)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
