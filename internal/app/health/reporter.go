package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

const defaultWindow = 10

// Reporter aggregates per-component outcomes into one status document. It
// only observes; it never retries anything itself. Producers get it
// injected so there is no process-wide mutable singleton.
type Reporter struct {
	mu         sync.Mutex
	components map[string]*componentState
	window     int
	now        func() time.Time
}

type componentState struct {
	lastSuccessAt       time.Time
	lastError           string
	consecutiveFailures int
	// ring of the last window outcomes, true = failure
	recent []bool
}

func NewReporter(windowCycles int) *Reporter {
	if windowCycles <= 0 {
		windowCycles = defaultWindow
	}
	return &Reporter{
		components: make(map[string]*componentState),
		window:     windowCycles,
		now:        time.Now,
	}
}

func (r *Reporter) RecordSuccess(component string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state(component)
	s.lastSuccessAt = r.now()
	s.lastError = ""
	s.consecutiveFailures = 0
	s.push(false, r.window)
}

func (r *Reporter) RecordFailure(component string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state(component)
	if err != nil {
		s.lastError = err.Error()
	}
	s.consecutiveFailures++
	s.push(true, r.window)
}

func (r *Reporter) state(component string) *componentState {
	s, ok := r.components[component]
	if !ok {
		s = &componentState{}
		r.components[component] = s
	}
	return s
}

func (s *componentState) push(failed bool, window int) {
	s.recent = append(s.recent, failed)
	if len(s.recent) > window {
		s.recent = s.recent[len(s.recent)-window:]
	}
}

func (s *componentState) recentFailures() int {
	var n int
	for _, failed := range s.recent {
		if failed {
			n++
		}
	}
	return n
}

// Snapshot is a read-only aggregation. Overall state: healthy when every
// component has zero consecutive failures, unhealthy when all are failing,
// degraded in between.
func (r *Reporter) Snapshot() domain.HealthStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)

	out := domain.HealthStatus{
		State:       domain.StateHealthy,
		GeneratedAt: r.now(),
		Components:  make([]domain.ComponentHealth, 0, len(names)),
	}

	var failing int
	for _, name := range names {
		s := r.components[name]
		out.Components = append(out.Components, domain.ComponentHealth{
			Component:           name,
			LastSuccessAt:       s.lastSuccessAt,
			LastError:           s.lastError,
			ConsecutiveFailures: s.consecutiveFailures,
			RecentFailures:      s.recentFailures(),
		})
		if s.consecutiveFailures > 0 {
			failing++
		}
	}

	switch {
	case len(names) == 0 || failing == 0:
		out.State = domain.StateHealthy
	case failing == len(names):
		out.State = domain.StateUnhealthy
	default:
		out.State = domain.StateDegraded
	}
	return out
}

// Handler serves the snapshot as JSON. Degraded still answers 200 so
// monitoring can read the document; only unhealthy returns 503.
func (r *Reporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		snap := r.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		if snap.State == domain.StateUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(snap)
	})
}

var _ ports.HealthRecorder = (*Reporter)(nil)
