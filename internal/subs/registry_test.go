package subs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/example/carwatch/internal/models"
	"github.com/example/carwatch/internal/notify"
	"github.com/example/carwatch/internal/storage"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var endpoint = json.RawMessage(`{"endpoint":"https://push.example/abc","keys":{"auth":"a","p256dh":"b"}}`)

type staticSource struct {
	mu       sync.Mutex
	vehicles []models.Vehicle
	calls    int
}

func (s *staticSource) Snapshot(ctx context.Context, branchID int) ([]models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.vehicles, nil
}

type countingSender struct {
	mu    sync.Mutex
	sends int
	fail  error
}

func (c *countingSender) Send(ctx context.Context, endpoint json.RawMessage, p notify.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends++
	return c.fail
}

func (c *countingSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry(&staticSource{}, &countingSender{}, nil, nil, time.Millisecond, testLogger)
	cases := []struct {
		name string
		req  SubscribeRequest
	}{
		{"nan lat", SubscribeRequest{Endpoint: endpoint, City: "montreal", Lat: math.NaN(), Lng: -73.5, RadiusM: 500}},
		{"inf lng", SubscribeRequest{Endpoint: endpoint, City: "montreal", Lat: 45.5, Lng: math.Inf(1), RadiusM: 500}},
		{"lat out of range", SubscribeRequest{Endpoint: endpoint, City: "montreal", Lat: 91, Lng: -73.5, RadiusM: 500}},
		{"zero radius", SubscribeRequest{Endpoint: endpoint, City: "montreal", Lat: 45.5, Lng: -73.5, RadiusM: 0}},
		{"negative radius", SubscribeRequest{Endpoint: endpoint, City: "montreal", Lat: 45.5, Lng: -73.5, RadiusM: -10}},
		{"unknown city", SubscribeRequest{Endpoint: endpoint, City: "atlantis", Lat: 45.5, Lng: -73.5, RadiusM: 500}},
		{"missing endpoint", SubscribeRequest{City: "montreal", Lat: 45.5, Lng: -73.5, RadiusM: 500}},
	}
	for _, tc := range cases {
		_, err := r.Register(tc.req)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected *ValidationError, got %v", tc.name, err)
		}
	}
	if r.Count() != 0 {
		t.Fatalf("no session may be created on validation failure, count=%d", r.Count())
	}
}

func TestDeliverAtMostOnceAndRetire(t *testing.T) {
	src := &staticSource{vehicles: []models.Vehicle{{Brand: "Toyota", Model: "Prius C", Plate: "ABC123", Lat: 45.5005, Lng: -73.5}}}
	sender := &countingSender{}
	log := storage.NewMemoryLog()
	r := NewRegistry(src, sender, log, nil, time.Millisecond, testLogger)

	id, err := r.Register(SubscribeRequest{Endpoint: endpoint, City: "montreal", Lat: 45.5, Lng: -73.5, RadiusM: 1500})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected a subscription id")
	}

	waitFor(t, func() bool { return sender.count() == 1 && r.Count() == 0 })

	// Give the loop room to misbehave: no second delivery may ever happen.
	time.Sleep(20 * time.Millisecond)
	if sender.count() != 1 {
		t.Fatalf("delivery must happen at most once, got %d", sender.count())
	}

	deliveries := log.All()
	if len(deliveries) != 1 || !deliveries[0].Succeeded || deliveries[0].SubscriptionID != id {
		t.Fatalf("unexpected delivery log: %+v", deliveries)
	}
	if deliveries[0].Title != "Car Found!" {
		t.Fatalf("unexpected title: %s", deliveries[0].Title)
	}
}

func TestDeliveryFailureStillRetires(t *testing.T) {
	src := &staticSource{vehicles: []models.Vehicle{{Plate: "ABC123", Lat: 45.5005, Lng: -73.5}}}
	sender := &countingSender{fail: errors.New("410 gone")}
	log := storage.NewMemoryLog()
	r := NewRegistry(src, sender, log, nil, time.Millisecond, testLogger)

	if _, err := r.Register(SubscribeRequest{Endpoint: endpoint, City: "montreal", Lat: 45.5, Lng: -73.5, RadiusM: 1500}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return sender.count() == 1 && r.Count() == 0 })

	// A failed handoff is never retried.
	time.Sleep(20 * time.Millisecond)
	if sender.count() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", sender.count())
	}
	deliveries := log.All()
	if len(deliveries) != 1 || deliveries[0].Succeeded {
		t.Fatalf("expected one failed delivery record, got %+v", deliveries)
	}
}

func TestCancelIdempotent(t *testing.T) {
	src := &staticSource{} // never any vehicles: session polls forever
	r := NewRegistry(src, &countingSender{}, nil, nil, time.Millisecond, testLogger)

	id, err := r.Register(SubscribeRequest{Endpoint: endpoint, City: "quebec", Lat: 46.8, Lng: -71.2, RadiusM: 800})
	if err != nil {
		t.Fatal(err)
	}
	if r.Count() != 1 {
		t.Fatalf("expected 1 active subscription, got %d", r.Count())
	}

	r.Cancel(id)
	if r.Count() != 0 {
		t.Fatalf("expected 0 after cancel, got %d", r.Count())
	}
	r.Cancel(id)      // already removed
	r.Cancel("nope")  // never existed
	if r.Count() != 0 {
		t.Fatalf("cancel must be a no-op on unknown ids, got %d", r.Count())
	}
}
