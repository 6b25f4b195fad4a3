// Package search implements the adaptive proximity search loop: poll the
// availability feed, rank vehicles by distance, tighten the radius as
// better matches appear, stop deterministically.
package search

import (
	"time"

	"github.com/example/carwatch/internal/models"
)

// Policy selects how a session terminates.
//
// Ladder keeps narrowing the alert radius toward the closest found vehicle
// and only stops once nothing strictly closer can exist; it is used for
// interactive sessions where a user keeps watching the map. SingleShot
// reports the top-N vehicles on the first non-empty result and stops; it is
// used for background subscriptions, which deliver one notification ever.
type Policy int

const (
	PolicyLadder Policy = iota
	PolicySingleShot
)

// Status is the advisory per-poll summary. Nothing downstream takes
// decisions from it.
type Status struct {
	Total    int     `json:"total"`
	InRadius int     `json:"in_radius"`
	RadiusM  float64 `json:"radius_m"`
	Retrying bool    `json:"retrying"`
	Text     string  `json:"text"`
}

// Sink receives the loop's outbound values. Implementations render or
// forward them; they never feed decisions back into the loop.
type Sink interface {
	DisplaySet(vehicles []models.RankedVehicle)
	Status(st Status)
	Match(ev models.MatchEvent)
}

// Config holds the immutable parameters of one session.
type Config struct {
	City               string
	Origin             models.Coord
	RadiusM            float64
	Interval           time.Duration
	Policy             Policy
	TopN               int     // single-shot result cap, default 3
	ObservationBufferM float64 // extra radius for the map display set, default 200
}
