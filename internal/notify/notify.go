// Package notify hands finished matches to a push transport. Delivery
// mechanics past the handoff (retries, receipts, token refresh) are the
// transport's problem, not ours.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/example/carwatch/internal/models"
)

// Payload is the notification shape handed to the transport.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	URL   string `json:"url"`
}

const defaultIcon = "static/images/android-chrome-192x192.png"

// PayloadFor builds the user-facing notification for a match event.
func PayloadFor(ev models.MatchEvent) Payload {
	top := ev.Vehicles[0]
	title := "Car Found!"
	body := fmt.Sprintf("%s %s is %dm away.", top.Brand, top.Model, int(top.DistanceM))
	if len(ev.Vehicles) > 1 {
		title = fmt.Sprintf("Found %d Cars!", len(ev.Vehicles))
		body = fmt.Sprintf("Closest: %s %s (%dm away)", top.Brand, top.Model, int(top.DistanceM))
	}
	return Payload{Title: title, Body: body, Icon: defaultIcon, URL: ev.BookingURL}
}

// Sender delivers one payload to one endpoint. The endpoint blob is owned
// by the caller and passed through untouched.
type Sender interface {
	Send(ctx context.Context, endpoint json.RawMessage, p Payload) error
}

// LogSender is the fallback when no push transport is configured: it logs
// the payload and succeeds. Useful in development and tests.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, endpoint json.RawMessage, p Payload) error {
	s.Logger.Info("notification (log only)", "title", p.Title, "body", p.Body, "url", p.URL)
	return nil
}
