// Package subs holds the background subscription registry: one single-shot
// search session per registered push endpoint, delivering at most one
// notification ever.
package subs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/example/carwatch/internal/events"
	"github.com/example/carwatch/internal/feed"
	"github.com/example/carwatch/internal/models"
	"github.com/example/carwatch/internal/notify"
	"github.com/example/carwatch/internal/observability"
	"github.com/example/carwatch/internal/search"
	"github.com/example/carwatch/internal/storage"
)

// ValidationError rejects a malformed registration before any session is
// created. It propagates synchronously to the caller and is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason) }

// SubscribeRequest is the inbound registration shape. Endpoint is an opaque
// delivery descriptor owned by the caller; it passes through untouched.
type SubscribeRequest struct {
	Endpoint json.RawMessage `json:"endpoint"`
	City     string          `json:"city"`
	Lat      float64         `json:"lat"`
	Lng      float64         `json:"lng"`
	RadiusM  float64         `json:"radius"`
}

type entry struct {
	id       string
	endpoint json.RawMessage
	city     string
	session  *search.Session
	cancel   context.CancelFunc
}

// Registry owns all active background subscriptions. The map is the only
// state shared across sessions; one mutex serializes add/remove/lookup.
// Subscriptions are in-memory only: loss on restart is a documented
// limitation of this design, not a bug.
type Registry struct {
	source   feed.Source
	sender   notify.Sender
	log      storage.DeliveryLog
	matches  *events.MatchPublisher
	interval time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	subs map[string]*entry
}

func NewRegistry(source feed.Source, sender notify.Sender, log storage.DeliveryLog, matches *events.MatchPublisher, interval time.Duration, logger *slog.Logger) *Registry {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Registry{
		source:   source,
		sender:   sender,
		log:      log,
		matches:  matches,
		interval: interval,
		logger:   logger,
		subs:     make(map[string]*entry),
	}
}

func validate(req SubscribeRequest) error {
	switch {
	case math.IsNaN(req.Lat) || math.IsInf(req.Lat, 0) || req.Lat < -90 || req.Lat > 90:
		return &ValidationError{Field: "lat", Reason: "must be a latitude in degrees"}
	case math.IsNaN(req.Lng) || math.IsInf(req.Lng, 0) || req.Lng < -180 || req.Lng > 180:
		return &ValidationError{Field: "lng", Reason: "must be a longitude in degrees"}
	case math.IsNaN(req.RadiusM) || math.IsInf(req.RadiusM, 0) || req.RadiusM <= 0:
		return &ValidationError{Field: "radius", Reason: "must be a positive number of meters"}
	case len(req.Endpoint) == 0:
		return &ValidationError{Field: "endpoint", Reason: "missing delivery endpoint"}
	}
	if _, ok := feed.BranchID(req.City); !ok {
		return &ValidationError{Field: "city", Reason: fmt.Sprintf("unknown city %q", req.City)}
	}
	return nil
}

// Register validates the request, starts an independent single-shot search
// session for it, and returns the generated subscription id immediately.
func (r *Registry) Register(req SubscribeRequest) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}
	id := newID()
	session, err := search.New(search.Config{
		City:     req.City,
		Origin:   models.Coord{Lat: req.Lat, Lng: req.Lng},
		RadiusM:  req.RadiusM,
		Interval: r.interval,
		Policy:   search.PolicySingleShot,
	}, r.source, &pushSink{registry: r, id: id}, r.logger)
	if err != nil {
		return "", &ValidationError{Field: "city", Reason: err.Error()}
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{id: id, endpoint: req.Endpoint, city: req.City, session: session, cancel: cancel}

	r.mu.Lock()
	r.subs[id] = e
	r.mu.Unlock()
	observability.SubscriptionsActive.Inc()

	go session.Run(ctx)
	r.logger.Info("subscription registered", "id", id, "city", req.City, "radius_m", req.RadiusM)
	return id, nil
}

// Cancel stops a subscription's session and removes it. Idempotent: an
// unknown or already-delivered id is a no-op, never an error.
func (r *Registry) Cancel(id string) {
	e := r.remove(id)
	if e == nil {
		return
	}
	e.session.Stop()
	e.cancel()
	r.logger.Info("subscription cancelled", "id", id)
}

// Count returns the number of active subscriptions. Diagnostics only.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// remove claims an entry. Exactly one caller wins for any id, which is what
// makes delivery at-most-once even when a cancel races a match.
func (r *Registry) remove(id string) *entry {
	r.mu.Lock()
	e, ok := r.subs[id]
	if ok {
		delete(r.subs, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	observability.SubscriptionsActive.Dec()
	return e
}

// deliver hands the match to the push transport and retires the
// subscription. A rejected handoff is logged and the subscription is still
// removed: a push endpoint that just failed is stale or already notified,
// and retrying risks notification spam.
func (r *Registry) deliver(id string, ev models.MatchEvent) {
	e := r.remove(id)
	if e == nil {
		return
	}
	defer e.cancel()

	payload := notify.PayloadFor(ev)
	ctx, cancelSend := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSend()
	err := r.sender.Send(ctx, e.endpoint, payload)
	if err != nil {
		observability.NotificationErrorsTotal.Inc()
		r.logger.Error("push delivery rejected", "id", id, "error", err)
	} else {
		observability.NotificationsSentTotal.Inc()
		r.logger.Info("push delivered", "id", id, "city", e.city, "count", len(ev.Vehicles))
	}

	if r.log != nil {
		_ = r.log.Record(&models.Delivery{
			SubscriptionID: id,
			City:           e.city,
			Title:          payload.Title,
			Body:           payload.Body,
			Succeeded:      err == nil,
			At:             time.Now(),
		})
	}
	_ = r.matches.PublishMatch(ev)
}

// pushSink adapts the registry to the search loop's Sink. Background
// subscriptions have no map to draw, so only the match matters.
type pushSink struct {
	registry *Registry
	id       string
}

func (s *pushSink) DisplaySet(vehicles []models.RankedVehicle) {}

func (s *pushSink) Status(st search.Status) {}

func (s *pushSink) Match(ev models.MatchEvent) { s.registry.deliver(s.id, ev) }

func newID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
