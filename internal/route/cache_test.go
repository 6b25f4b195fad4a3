package route

import (
	"context"
	"testing"
	"time"

	"github.com/example/carwatch/internal/models"
)

type countingEstimator struct{ calls int }

func (c *countingEstimator) Walk(ctx context.Context, from, to models.Coord) (Estimate, error) {
	c.calls++
	return Estimate{DistanceM: 420, DurationS: 300}, nil
}

func TestCachedEstimatorMemoizes(t *testing.T) {
	inner := &countingEstimator{}
	c := NewCachedEstimator(inner, time.Minute)
	from := models.Coord{Lat: 45.5, Lng: -73.5}
	to := models.Coord{Lat: 45.501, Lng: -73.5}

	for i := 0; i < 3; i++ {
		est, err := c.Walk(context.Background(), from, to)
		if err != nil {
			t.Fatal(err)
		}
		if est.DistanceM != 420 {
			t.Fatalf("unexpected estimate: %+v", est)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", inner.calls)
	}

	// A different pair misses the cache.
	if _, err := c.Walk(context.Background(), to, from); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", inner.calls)
	}
}
