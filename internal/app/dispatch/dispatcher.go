package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lordmuffin/grill-stats-sub007/internal/app/backoff"
	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

const (
	idleSleep = 20 * time.Millisecond

	// journalCompactEvery is how many committed entries accumulate before
	// the journal file is rewritten without them.
	journalCompactEvery = 256
)

var errQueueFull = errors.New("dispatch queue full")

// Deps carries everything the dispatcher needs; all fields except Journal
// are required.
type Deps struct {
	Sinks    []ports.Sink
	Journal  ports.Journal
	NewQueue func() ports.AttemptQueue
	Policy   ports.Policy
	Obs      ports.Observability
	Health   ports.HealthRecorder
}

// Dispatcher fans accepted readings out to every configured sink. Each sink
// gets its own bounded queue and a single worker goroutine, so sinks fail
// independently, a slow sink never blocks the others, and delivery for one
// attempt is at-most-once-in-flight. Transient failures are retried with
// capped exponential backoff until max_dispatch_attempts, then marked
// failed terminally.
type Dispatcher struct {
	sinks   []ports.Sink
	journal ports.Journal
	pol     ports.Policy
	obs     ports.Observability
	health  ports.HealthRecorder

	queues  map[string]ports.AttemptQueue
	retries map[string]*retrySet

	mu           sync.Mutex
	open         map[ports.EntryID]int
	done         map[ports.EntryID]bool
	commit       ports.EntryID
	compactEvery ports.EntryID
	lastCompact  ports.EntryID

	stopCh    chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func New(deps Deps) (*Dispatcher, error) {
	if len(deps.Sinks) == 0 {
		return nil, fmt.Errorf("at least one sink is required")
	}
	if deps.NewQueue == nil {
		return nil, fmt.Errorf("queue factory is required")
	}
	if deps.Obs == nil || deps.Health == nil {
		return nil, fmt.Errorf("observability and health recorder are required")
	}

	d := &Dispatcher{
		sinks:   deps.Sinks,
		journal: deps.Journal,
		pol:     deps.Policy,
		obs:     deps.Obs,
		health:  deps.Health,
		queues:  make(map[string]ports.AttemptQueue, len(deps.Sinks)),
		retries: make(map[string]*retrySet, len(deps.Sinks)),
		open:    make(map[ports.EntryID]int),
		done:    make(map[ports.EntryID]bool),
		stopCh:  make(chan struct{}),
	}
	for _, s := range deps.Sinks {
		if _, dup := d.queues[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate sink name %q", s.Name())
		}
		d.queues[s.Name()] = deps.NewQueue()
		d.retries[s.Name()] = &retrySet{}
	}
	d.compactEvery = journalCompactEvery
	if d.journal != nil {
		stats := d.journal.Stats()
		if stats.OldestUncommitted > 0 {
			d.commit = stats.OldestUncommitted - 1
		}
	}
	d.lastCompact = d.commit
	return d, nil
}

// Replay re-dispatches journal entries that never reached a terminal state
// on every sink. Call before Start so queued work is drained by the workers.
func (d *Dispatcher) Replay() error {
	if d.journal == nil {
		return nil
	}
	stats := d.journal.Stats()
	if stats.LatestAppended == 0 || stats.OldestUncommitted > stats.LatestAppended {
		return nil
	}

	var replayed int
	err := d.journal.Iterate(stats.OldestUncommitted, func(id ports.EntryID, r *domain.Reading) error {
		d.enqueue(id, r)
		replayed++
		return nil
	})
	if err != nil {
		return err
	}
	if replayed > 0 {
		d.obs.LogInfo("journal_replay_complete",
			ports.Field{Key: "readings", Value: replayed},
			ports.Field{Key: "from_id", Value: stats.OldestUncommitted})
	}
	return nil
}

// Start launches one worker per sink plus the retry sweep.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for _, s := range d.sinks {
			d.wg.Add(1)
			go d.runSink(s)
		}
		d.wg.Add(1)
		go d.runSweep()
	})
}

// Stop signals the workers and waits until ctx expires. In-flight attempts
// that never complete stay journaled as pending and resume after restart.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		close(d.stopCh)
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch journals the reading and hands one SyncAttempt per sink to the
// workers. The returned attempts are live; their status settles as workers
// process them.
func (d *Dispatcher) Dispatch(r *domain.Reading) []*domain.SyncAttempt {
	var id ports.EntryID
	if d.journal != nil {
		var err error
		id, err = d.journal.Append(r)
		if err != nil {
			d.obs.LogCritical("journal_append_failed", err)
			id = 0
		}
	}
	return d.enqueue(id, r)
}

func (d *Dispatcher) enqueue(id ports.EntryID, r *domain.Reading) []*domain.SyncAttempt {
	if id != 0 {
		d.mu.Lock()
		d.open[id] = len(d.sinks)
		d.mu.Unlock()
	}

	attempts := make([]*domain.SyncAttempt, 0, len(d.sinks))
	for _, s := range d.sinks {
		a := domain.NewSyncAttempt(s.Name(), r)
		attempts = append(attempts, a)

		if !d.queues[s.Name()].Enqueue(id, a) {
			a.MarkFailed(errQueueFull)
			d.obs.RecordDrop(r.Key(), errQueueFull)
			d.health.RecordFailure("dispatch:"+s.Name(), errQueueFull)
			d.settle(id)
		}
	}
	return attempts
}

func (d *Dispatcher) runSink(s ports.Sink) {
	defer d.wg.Done()

	q := d.queues[s.Name()]
	for {
		select {
		case <-d.stopCh:
			return
		default:
		}

		qa, ok := q.Dequeue()
		if !ok {
			select {
			case <-d.stopCh:
				return
			case <-time.After(idleSleep):
			}
			continue
		}
		d.deliver(s, qa)
	}
}

func (d *Dispatcher) deliver(s ports.Sink, qa ports.QueuedAttempt) {
	a := qa.Attempt

	ctx, cancel := context.WithTimeout(context.Background(), d.pol.DispatchTimeout())
	start := time.Now()
	err := s.Deliver(ctx, a.Reading)
	cancel()

	count := a.BeginAttempt()

	if err == nil {
		a.MarkDelivered()
		d.obs.ObserveLatency("grillstats_sink_delivery_seconds", time.Since(start).Seconds())
		d.obs.IncCounter("grillstats_dispatch_delivered_total", 1)
		d.health.RecordSuccess("dispatch:" + s.Name())
		d.settle(qa.ID)
		return
	}

	d.health.RecordFailure("dispatch:"+s.Name(), err)

	if !ports.IsPermanent(err) && count < d.pol.MaxDispatchAttempts {
		delay := backoff.Delay(d.pol.RetryBaseDelay(), d.pol.RetryMaxDelay(), count)
		a.ScheduleRetry(err, time.Now().Add(delay))
		d.retries[s.Name()].add(qa)
		d.obs.IncCounter("grillstats_dispatch_retries_total", 1)
		d.obs.LogError("sink_delivery_retry", err,
			ports.Field{Key: "sink", Value: s.Name()},
			ports.Field{Key: "attempt", Value: count})
		return
	}

	a.MarkFailed(err)
	d.obs.IncCounter("grillstats_dispatch_failed_total", 1)
	d.obs.LogError("sink_delivery_failed", err,
		ports.Field{Key: "sink", Value: s.Name()},
		ports.Field{Key: "attempts", Value: count})
	d.settle(qa.ID)
}

func (d *Dispatcher) runSweep() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.sweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
		}

		now := time.Now()
		var waiting int
		for name, rs := range d.retries {
			for _, qa := range rs.popDue(now) {
				if !d.queues[name].Enqueue(qa.ID, qa.Attempt) {
					// queue full; keep for the next sweep
					rs.add(qa)
				}
			}
			waiting += rs.len()
		}
		d.obs.SetGauge("grillstats_retry_queue_length", float64(waiting))
	}
}

func (d *Dispatcher) sweepInterval() time.Duration {
	iv := d.pol.RetryBaseDelay() / 4
	if iv < 10*time.Millisecond {
		iv = 10 * time.Millisecond
	}
	if iv > time.Second {
		iv = time.Second
	}
	return iv
}

// settle records that one sink reached a terminal state for the journal
// entry; once all sinks have, the commit pointer advances over every
// contiguous finished entry.
func (d *Dispatcher) settle(id ports.EntryID) {
	if id == 0 || d.journal == nil {
		return
	}

	d.mu.Lock()
	remaining, ok := d.open[id]
	if !ok {
		d.mu.Unlock()
		return
	}
	remaining--
	if remaining > 0 {
		d.open[id] = remaining
		d.mu.Unlock()
		return
	}
	delete(d.open, id)
	d.done[id] = true

	advanced := false
	for d.done[d.commit+1] {
		d.commit++
		delete(d.done, d.commit)
		advanced = true
	}
	commit := d.commit
	compact := false
	if advanced && commit-d.lastCompact >= d.compactEvery {
		d.lastCompact = commit
		compact = true
	}
	d.mu.Unlock()

	if advanced {
		if err := d.journal.Commit(commit); err != nil {
			d.obs.LogError("journal_commit_failed", err)
		}
	}
	if compact {
		if err := d.journal.TruncateCommitted(); err != nil {
			d.obs.LogError("journal_compact_failed", err)
		}
	}
}

// RetryBacklog reports attempts currently waiting for their next retry.
func (d *Dispatcher) RetryBacklog() int {
	var n int
	for _, rs := range d.retries {
		n += rs.len()
	}
	return n
}

type retrySet struct {
	mu      sync.Mutex
	waiting []ports.QueuedAttempt
}

func (r *retrySet) add(qa ports.QueuedAttempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waiting = append(r.waiting, qa)
}

func (r *retrySet) popDue(now time.Time) []ports.QueuedAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []ports.QueuedAttempt
	kept := r.waiting[:0]
	for _, qa := range r.waiting {
		if qa.Attempt.NextRetryAt().After(now) {
			kept = append(kept, qa)
			continue
		}
		due = append(due, qa)
	}
	r.waiting = kept
	return due
}

func (r *retrySet) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiting)
}
