package route

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/carwatch/internal/models"
)

// CachedEstimator memoizes walk estimates per coordinate pair. Vehicles
// cluster on the same parking spots, so repeated lookups are common while
// a match card is open.
type CachedEstimator struct {
	next Estimator
	ttl  time.Duration

	mu    sync.RWMutex
	store map[string]cacheEntry
}

type cacheEntry struct {
	est Estimate
	ts  time.Time
}

func NewCachedEstimator(next Estimator, ttl time.Duration) *CachedEstimator {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedEstimator{next: next, ttl: ttl, store: make(map[string]cacheEntry)}
}

func key(a, b models.Coord) string {
	return fmt.Sprintf("%.6f,%.6f->%.6f,%.6f", a.Lat, a.Lng, b.Lat, b.Lng)
}

func (c *CachedEstimator) Walk(ctx context.Context, from, to models.Coord) (Estimate, error) {
	k := key(from, to)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if ok && time.Since(e.ts) <= c.ttl {
		return e.est, nil
	}
	est, err := c.next.Walk(ctx, from, to)
	if err != nil {
		return Estimate{}, err
	}
	c.mu.Lock()
	c.store[k] = cacheEntry{est: est, ts: time.Now()}
	c.mu.Unlock()
	return est, nil
}
