package notify

import (
	"context"
	"encoding/json"
	"fmt"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// WebPushSender delivers payloads over the Web Push protocol with VAPID
// authentication. The endpoint blob is the browser's PushSubscription JSON.
type WebPushSender struct {
	Subject    string // mailto: or https: contact for the push service
	PublicKey  string
	PrivateKey string
}

func NewWebPushSender(subject, publicKey, privateKey string) *WebPushSender {
	if subject == "" {
		subject = "mailto:admin@localhost"
	}
	return &WebPushSender{Subject: subject, PublicKey: publicKey, PrivateKey: privateKey}
}

// Configured reports whether VAPID keys are present. Without them the
// server refuses subscription registrations instead of failing later.
func (s *WebPushSender) Configured() bool {
	return s.PublicKey != "" && s.PrivateKey != ""
}

func (s *WebPushSender) Send(ctx context.Context, endpoint json.RawMessage, p Payload) error {
	var sub webpush.Subscription
	if err := json.Unmarshal(endpoint, &sub); err != nil {
		return fmt.Errorf("bad push subscription: %w", err)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	resp, err := webpush.SendNotificationWithContext(ctx, body, &sub, &webpush.Options{
		Subscriber:      s.Subject,
		VAPIDPublicKey:  s.PublicKey,
		VAPIDPrivateKey: s.PrivateKey,
		TTL:             60,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push service status %d", resp.StatusCode)
	}
	return nil
}
