// Package feed retrieves live vehicle-availability snapshots. Every call
// hits the backing store fresh; availability is never cached because a
// stale list would mean notifying about a car that is already gone.
package feed

import (
	"context"
	"fmt"

	"github.com/example/carwatch/internal/models"
)

// Source produces the current list of available vehicles for a branch.
type Source interface {
	Snapshot(ctx context.Context, branchID int) ([]models.Vehicle, error)
}

// UpstreamError covers every way a snapshot can fail: network error,
// non-2xx status, malformed payload. The search loop treats all three the
// same (retry at the next poll), so one error kind is enough.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("feed %s: %v", e.Op, e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }

// Branch IDs as assigned by the upstream operator.
var branchIDs = map[string]int{
	"montreal": 1,
	"quebec":   2,
	"toronto":  3,
}

// BranchID resolves a city name to its upstream branch id.
func BranchID(city string) (int, bool) {
	id, ok := branchIDs[city]
	return id, ok
}

// BookingURL returns the operator's booking page for a city. Toronto is
// served from the Ontario subdomain, everything else from Quebec.
func BookingURL(city string) string {
	region := "quebec"
	if branchIDs[city] == branchIDs["toronto"] {
		region = "ontario"
	}
	return fmt.Sprintf("https://%s.client.reservauto.net/bookCar", region)
}
