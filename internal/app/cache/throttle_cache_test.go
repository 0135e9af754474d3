package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
)

var t0 = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func reading(probe string, value float64, at time.Time) *domain.Reading {
	return &domain.Reading{
		DeviceID:   "grill-1",
		ProbeID:    probe,
		Value:      value,
		Unit:       "F",
		ObservedAt: at,
	}
}

// Scenario: min interval 60s, delta 5 degrees.
func TestAcceptThresholds(t *testing.T) {
	c := New(60*time.Second, 5)

	if got := c.Accept(reading("p1", 200, t0)); got != domain.Propagate {
		t.Fatalf("first reading: expected propagate, got %s", got)
	}
	if got := c.Accept(reading("p1", 201, t0.Add(30*time.Second))); got != domain.Suppress {
		t.Fatalf("small delta inside interval: expected suppress, got %s", got)
	}
	if got := c.Accept(reading("p1", 210, t0.Add(30*time.Second))); got != domain.Propagate {
		t.Fatalf("delta exceeded: expected propagate, got %s", got)
	}
	if got := c.Accept(reading("p1", 210, t0.Add(95*time.Second))); got != domain.Propagate {
		t.Fatalf("interval elapsed: expected propagate, got %s", got)
	}
}

func TestAcceptReplayIsSuppressed(t *testing.T) {
	c := New(60*time.Second, 5)

	r := reading("p1", 200, t0)
	if got := c.Accept(r); got != domain.Propagate {
		t.Fatalf("expected propagate, got %s", got)
	}
	if got := c.Accept(r); got != domain.Suppress {
		t.Fatalf("replay of the same reading should suppress, got %s", got)
	}
}

func TestPropagateUpdatesTimerToObservedAt(t *testing.T) {
	c := New(60*time.Second, 5)

	c.Accept(reading("p1", 200, t0))
	at := t0.Add(2 * time.Minute)
	c.Accept(reading("p1", 201, at))

	e := c.entry(domain.ProbeKey{DeviceID: "grill-1", ProbeID: "p1"})
	if !e.lastPropagatedAt.Equal(at) {
		t.Fatalf("expected last_propagated_at %s, got %s", at, e.lastPropagatedAt)
	}
	if e.lastValue != 201 {
		t.Fatalf("expected last_value 201, got %f", e.lastValue)
	}
}

func TestSuppressStillAdvancesObservation(t *testing.T) {
	c := New(60*time.Second, 5)

	c.Accept(reading("p1", 200, t0))
	at := t0.Add(10 * time.Second)
	c.Accept(reading("p1", 200.5, at))

	e := c.entry(domain.ProbeKey{DeviceID: "grill-1", ProbeID: "p1"})
	if !e.lastObservedAt.Equal(at) {
		t.Fatalf("suppress should update last_observed_at, got %s", e.lastObservedAt)
	}
	if !e.lastPropagatedAt.Equal(t0) {
		t.Fatalf("suppress must not touch last_propagated_at, got %s", e.lastPropagatedAt)
	}
	if e.lastValue != 200 {
		t.Fatalf("suppress must not touch last_value, got %f", e.lastValue)
	}
}

func TestLateReadingNeverRegressesTimer(t *testing.T) {
	c := New(60*time.Second, 5)

	c.Accept(reading("p1", 200, t0))
	c.Accept(reading("p1", 210, t0.Add(30*time.Second)))

	// Out-of-order reading with a large delta: stored, not propagated.
	if got := c.Accept(reading("p1", 300, t0.Add(10*time.Second))); got != domain.Suppress {
		t.Fatalf("late reading should suppress, got %s", got)
	}

	e := c.entry(domain.ProbeKey{DeviceID: "grill-1", ProbeID: "p1"})
	if !e.lastPropagatedAt.Equal(t0.Add(30 * time.Second)) {
		t.Fatalf("late reading regressed propagation timer to %s", e.lastPropagatedAt)
	}
	if !e.lastObservedAt.Equal(t0.Add(30 * time.Second)) {
		t.Fatalf("last_observed_at should stay at max, got %s", e.lastObservedAt)
	}
}

func TestIndependentKeys(t *testing.T) {
	c := New(60*time.Second, 5)

	c.Accept(reading("p1", 200, t0))
	if got := c.Accept(reading("p2", 200, t0.Add(time.Second))); got != domain.Propagate {
		t.Fatalf("different key should not share throttle state, got %s", got)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", c.Len())
	}
}

func TestStale(t *testing.T) {
	c := New(60*time.Second, 5)
	c.now = func() time.Time { return t0.Add(time.Hour) }

	c.Accept(reading("old", 200, t0))
	c.Accept(reading("fresh", 200, t0.Add(59*time.Minute)))

	stale := c.Stale(30 * time.Minute)
	if len(stale) != 1 || stale[0].ProbeID != "old" {
		t.Fatalf("unexpected stale keys: %v", stale)
	}
}

func TestConcurrentAcceptAcrossKeys(t *testing.T) {
	c := New(time.Second, 0.5)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			probe := fmt.Sprintf("p%d", n)
			for j := 0; j < 200; j++ {
				c.Accept(reading(probe, float64(j), t0.Add(time.Duration(j)*time.Millisecond)))
			}
		}(i)
	}
	wg.Wait()

	if c.Len() != 8 {
		t.Fatalf("expected 8 keys, got %d", c.Len())
	}
}
