package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Vehicle is one entry of an upstream availability snapshot. Vehicles carry
// no identity across snapshots; the plate is unique within one snapshot only.
type Vehicle struct {
	Brand string  `json:"brand"`
	Model string  `json:"model"`
	Plate string  `json:"plate"`
	Color string  `json:"color"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// RankedVehicle is a Vehicle with its straight-line distance to a reference
// point, recomputed from scratch on every poll.
type RankedVehicle struct {
	Vehicle
	DistanceM float64 `json:"distance_m"`
}

// MatchEvent is the terminal result of a search session, handed to
// downstream collaborators (map UI, push delivery, Kafka).
type MatchEvent struct {
	City       string          `json:"city"`
	Origin     Coord           `json:"origin"`
	Vehicles   []RankedVehicle `json:"vehicles"`
	BookingURL string          `json:"booking_url"`
	At         time.Time       `json:"at"`
}

// Delivery records one notification handoff for the audit log.
type Delivery struct {
	SubscriptionID string
	City           string
	Title          string
	Body           string
	Succeeded      bool
	At             time.Time
}
