package cache

import (
	"math"
	"sync"
	"time"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
)

// Cache holds last-known state per (device, probe) key and decides whether a
// reading is new enough to propagate downstream. Decisions for different
// keys run in parallel; decisions for the same key are serialized by a
// per-entry mutex, so at most one propagation decision per key is in flight.
type Cache struct {
	mu      sync.Mutex
	entries map[domain.ProbeKey]*entry

	minUpdate time.Duration
	delta     float64
	now       func() time.Time
}

// entry is created on first observation and never deleted; staleness is
// reported by Stale, not by eviction.
type entry struct {
	mu               sync.Mutex
	lastValue        float64
	lastObservedAt   time.Time
	lastPropagatedAt time.Time
	seen             bool
}

func New(minUpdateInterval time.Duration, deltaThreshold float64) *Cache {
	return &Cache{
		entries:   make(map[domain.ProbeKey]*entry),
		minUpdate: minUpdateInterval,
		delta:     deltaThreshold,
		now:       time.Now,
	}
}

// Accept decides Propagate or Suppress for the reading. A reading propagates
// when the minimum update interval has elapsed since the last propagation OR
// the value moved beyond the delta threshold; the two conditions are OR'd.
// Suppressed readings still advance the observation bookkeeping. Late
// readings (observed before the last propagation) never regress the
// propagation timer and are always suppressed.
func (c *Cache) Accept(r *domain.Reading) domain.Decision {
	e := c.entry(r.Key())

	e.mu.Lock()
	defer e.mu.Unlock()

	// last_observed_at is monotone non-decreasing per key
	if r.ObservedAt.After(e.lastObservedAt) {
		e.lastObservedAt = r.ObservedAt
	}

	if !e.seen {
		e.propagateLocked(r)
		return domain.Propagate
	}

	if r.ObservedAt.Before(e.lastPropagatedAt) {
		return domain.Suppress
	}

	elapsed := r.ObservedAt.Sub(e.lastPropagatedAt)
	moved := math.Abs(r.Value-e.lastValue) > c.delta

	if elapsed >= c.minUpdate || moved {
		e.propagateLocked(r)
		return domain.Propagate
	}
	return domain.Suppress
}

func (e *entry) propagateLocked(r *domain.Reading) {
	e.lastPropagatedAt = r.ObservedAt
	e.lastValue = r.Value
	e.seen = true
}

func (c *Cache) entry(key domain.ProbeKey) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// Len reports the number of distinct keys ever observed.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stale returns keys with no observation for longer than maxAge.
func (c *Cache) Stale(maxAge time.Duration) []domain.ProbeKey {
	c.mu.Lock()
	keys := make([]domain.ProbeKey, 0, len(c.entries))
	entries := make([]*entry, 0, len(c.entries))
	for k, e := range c.entries {
		keys = append(keys, k)
		entries = append(entries, e)
	}
	c.mu.Unlock()

	cutoff := c.now().Add(-maxAge)
	var stale []domain.ProbeKey
	for i, e := range entries {
		e.mu.Lock()
		if e.seen && e.lastObservedAt.Before(cutoff) {
			stale = append(stale, keys[i])
		}
		e.mu.Unlock()
	}
	return stale
}
