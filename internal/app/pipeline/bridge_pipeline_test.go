package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lordmuffin/grill-stats-sub007/internal/app/cache"
	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

type scriptedSource struct {
	mu      sync.Mutex
	results []pollResult
	calls   []time.Time
}

type pollResult struct {
	readings []*domain.Reading
	err      error
}

func (s *scriptedSource) Poll(ctx context.Context) ([]*domain.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, time.Now())
	if len(s.results) == 0 {
		return nil, nil
	}
	next := s.results[0]
	s.results = s.results[1:]
	return next.readings, next.err
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) callTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.calls...)
}

type recordingForwarder struct {
	mu       sync.Mutex
	received []*domain.Reading
}

func (f *recordingForwarder) Dispatch(r *domain.Reading) []*domain.SyncAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, r)
	return nil
}

func (f *recordingForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

type countingObs struct {
	mu       sync.Mutex
	counters map[string]float64
}

func newCountingObs() *countingObs {
	return &countingObs{counters: make(map[string]float64)}
}

func (c *countingObs) LogInfo(string, ...ports.Field)            {}
func (c *countingObs) LogError(string, error, ...ports.Field)    {}
func (c *countingObs) LogCritical(string, error, ...ports.Field) {}
func (c *countingObs) IncCounter(name string, v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += v
}
func (c *countingObs) ObserveLatency(string, float64)    {}
func (c *countingObs) SetGauge(string, float64)          {}
func (c *countingObs) RecordDrop(domain.ProbeKey, error) {}

func (c *countingObs) value(name string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

type recordingHealth struct {
	mu        sync.Mutex
	successes int
	failures  int
}

func (h *recordingHealth) RecordSuccess(string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.successes++
}

func (h *recordingHealth) RecordFailure(string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
}

func (h *recordingHealth) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.successes, h.failures
}

func testPolicy() ports.Policy {
	return ports.Policy{
		MinUpdateIntervalSeconds: 60,
		DeltaThreshold:           5.0,
		RetryBaseDelayMS:         60,
		RetryMaxDelayMS:          200,
		PollTimeoutMS:            1000,
	}
}

func reading(probe string, value float64, at time.Time) *domain.Reading {
	return &domain.Reading{
		DeviceID:   "dev-1",
		ProbeID:    probe,
		Value:      value,
		Unit:       "F",
		ObservedAt: at,
		ReceivedAt: at,
	}
}

func TestRateLimitedPollBacksOffThenRecovers(t *testing.T) {
	now := time.Now()
	src := &scriptedSource{results: []pollResult{
		{err: ports.ErrRateLimited},
		{readings: []*domain.Reading{reading("p1", 225.0, now)}},
	}}
	fwd := &recordingForwarder{}
	obs := newCountingObs()
	health := &recordingHealth{}
	pol := testPolicy()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunPollLoop(ctx, src, cache.New(pol.MinUpdateInterval(), pol.DeltaThreshold), fwd, pol, obs, health)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for fwd.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if fwd.count() != 1 {
		t.Fatalf("forwarded readings = %d, want 1", fwd.count())
	}
	calls := src.callTimes()
	if len(calls) < 2 {
		t.Fatalf("poll calls = %d, want at least 2", len(calls))
	}
	gap := calls[1].Sub(calls[0])
	if gap < pol.RetryBaseDelay() {
		t.Fatalf("gap after rate limit = %v, want >= %v", gap, pol.RetryBaseDelay())
	}
	if got := obs.value("grillstats_poll_errors_total"); got != 1 {
		t.Fatalf("poll errors counter = %v, want 1", got)
	}
	succ, fail := health.counts()
	if succ == 0 || fail != 1 {
		t.Fatalf("health successes/failures = %d/%d, want >=1/1", succ, fail)
	}
}

func TestPollLoopRoutesThroughThrottleCache(t *testing.T) {
	now := time.Now()
	src := &scriptedSource{results: []pollResult{
		{readings: []*domain.Reading{
			reading("p1", 225.0, now),
			// inside the interval and under the delta, suppressed
			reading("p1", 226.0, now.Add(time.Second)),
			// delta exceeded, propagates despite the interval
			reading("p1", 232.5, now.Add(2*time.Second)),
		}},
	}}
	fwd := &recordingForwarder{}
	obs := newCountingObs()
	health := &recordingHealth{}
	pol := testPolicy()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunPollLoop(ctx, src, cache.New(pol.MinUpdateInterval(), pol.DeltaThreshold), fwd, pol, obs, health)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for fwd.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if fwd.count() != 2 {
		t.Fatalf("forwarded readings = %d, want 2", fwd.count())
	}
	if got := obs.value("grillstats_readings_polled_total"); got != 3 {
		t.Fatalf("polled counter = %v, want 3", got)
	}
	if got := obs.value("grillstats_readings_propagated_total"); got != 2 {
		t.Fatalf("propagated counter = %v, want 2", got)
	}
	if got := obs.value("grillstats_readings_suppressed_total"); got != 1 {
		t.Fatalf("suppressed counter = %v, want 1", got)
	}
}

func TestPollLoopStopsOnContextCancel(t *testing.T) {
	src := &scriptedSource{}
	pol := testPolicy()
	pol.PollIntervalSeconds = 3600

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunPollLoop(ctx, src, cache.New(pol.MinUpdateInterval(), pol.DeltaThreshold), &recordingForwarder{}, pol, newCountingObs(), &recordingHealth{})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poll loop did not stop after cancel")
	}
}

func TestTransientPollErrorKeepsNormalCadence(t *testing.T) {
	src := &scriptedSource{results: []pollResult{
		{err: ports.ErrUnavailable},
		{readings: nil},
	}}
	obs := newCountingObs()
	health := &recordingHealth{}
	pol := testPolicy()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunPollLoop(ctx, src, cache.New(pol.MinUpdateInterval(), pol.DeltaThreshold), &recordingForwarder{}, pol, obs, health)
	}()

	deadline := time.Now().Add(time.Second)
	for len(src.callTimes()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if got := obs.value("grillstats_poll_errors_total"); got != 1 {
		t.Fatalf("poll errors counter = %v, want 1", got)
	}
	if _, fail := health.counts(); fail != 1 {
		t.Fatalf("health failures = %d, want 1", fail)
	}
}
