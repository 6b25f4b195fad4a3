package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/carwatch/internal/feed"
	"github.com/example/carwatch/internal/geo"
	"github.com/example/carwatch/internal/models"
	"github.com/example/carwatch/internal/observability"
)

// Session is one running adaptive search. The loop goroutine is the only
// writer of session state; the rest of the world interacts through Stop
// (cooperative cancellation) and the Sink.
type Session struct {
	cfg      Config
	branchID int
	source   feed.Source
	sink     Sink
	logger   *slog.Logger

	running atomic.Bool

	mu     sync.Mutex
	radius float64 // shrinks only, never grows
}

// New builds a session in the running state. Call Run to start polling.
func New(cfg Config, source feed.Source, sink Sink, logger *slog.Logger) (*Session, error) {
	branchID, ok := feed.BranchID(cfg.City)
	if !ok {
		return nil, fmt.Errorf("unknown city %q", cfg.City)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 3
	}
	if cfg.ObservationBufferM <= 0 {
		cfg.ObservationBufferM = 200
	}
	s := &Session{
		cfg:      cfg,
		branchID: branchID,
		source:   source,
		sink:     sink,
		logger:   logger,
		radius:   cfg.RadiusM,
	}
	s.running.Store(true)
	return s, nil
}

// Running reports whether the session has neither finished nor been stopped.
func (s *Session) Running() bool { return s.running.Load() }

// Stop requests cooperative cancellation. The loop notices it at the next
// iteration boundary; an in-flight fetch is allowed to complete and its
// result is discarded. Idempotent.
func (s *Session) Stop() { s.running.Store(false) }

// RadiusM returns the current alert radius.
func (s *Session) RadiusM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.radius
}

func (s *Session) setRadius(r float64) {
	s.mu.Lock()
	s.radius = r
	s.mu.Unlock()
}

// Run polls until a terminal match, Stop, or ctx cancellation. It never
// returns an error: fetch failures are retried at the configured interval
// indefinitely. Exactly one wait is pending between iterations.
func (s *Session) Run(ctx context.Context) {
	defer s.running.Store(false)
	for {
		if s.iterate(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.Interval):
		}
	}
}

// iterate performs one poll cycle and reports whether the session is done.
func (s *Session) iterate(ctx context.Context) bool {
	if !s.running.Load() || ctx.Err() != nil {
		return true
	}
	radius := s.RadiusM()

	vehicles, err := s.source.Snapshot(ctx, s.branchID)

	// Cancellation may have arrived while the fetch was in flight. The
	// response is stale at that point: never apply it to session state.
	if !s.running.Load() || ctx.Err() != nil {
		return true
	}
	if err != nil {
		observability.PollErrorsTotal.Inc()
		s.logger.Warn("snapshot failed", "city", s.cfg.City, "error", err)
		s.sink.Status(Status{RadiusM: radius, Retrying: true, Text: "Error fetching cars. Retrying..."})
		return false
	}
	observability.PollsTotal.Inc()

	alert := geo.Rank(vehicles, s.cfg.Origin, radius)
	display := geo.Rank(vehicles, s.cfg.Origin, radius+s.cfg.ObservationBufferM)
	s.sink.DisplaySet(display)
	s.sink.Status(Status{
		Total:    len(vehicles),
		InRadius: len(alert),
		RadiusM:  radius,
		Text:     fmt.Sprintf("%d cars found. %d within %s. Waiting...", len(vehicles), len(alert), geo.FormatDistance(radius)),
	})

	if len(alert) == 0 {
		return false
	}

	if s.cfg.Policy == PolicySingleShot {
		n := s.cfg.TopN
		if n > len(alert) {
			n = len(alert)
		}
		s.emitMatch(alert[:n])
		return true
	}

	closest := alert[0]
	if next, ok := nextLadderRadius(closest.DistanceM); ok {
		s.setRadius(next)
		s.logger.Info("radius narrowed",
			"city", s.cfg.City,
			"closest_m", closest.DistanceM,
			"radius_m", next)
		return false
	}
	// Already inside the tightest band: nothing closer can be found.
	s.emitMatch(alert[:1])
	return true
}

func (s *Session) emitMatch(vehicles []models.RankedVehicle) {
	observability.MatchesTotal.Inc()
	s.logger.Info("match found",
		"city", s.cfg.City,
		"count", len(vehicles),
		"closest_m", vehicles[0].DistanceM)
	s.sink.Match(models.MatchEvent{
		City:       s.cfg.City,
		Origin:     s.cfg.Origin,
		Vehicles:   vehicles,
		BookingURL: feed.BookingURL(s.cfg.City),
		At:         time.Now(),
	})
}
