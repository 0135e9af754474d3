package grillbridge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/homeassistant"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/influxsink"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/journal"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/observability"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/queue"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/rediscache"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/thermoworks"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/timescale"
	"github.com/lordmuffin/grill-stats-sub007/internal/app/cache"
	"github.com/lordmuffin/grill-stats-sub007/internal/app/dispatch"
	"github.com/lordmuffin/grill-stats-sub007/internal/app/health"
	"github.com/lordmuffin/grill-stats-sub007/internal/app/pipeline"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

// HealthReporter aggregates per-component states into the health report.
type HealthReporter = health.Reporter

// NewHealthReporter builds a reporter tracking the last windowCycles outcomes
// per component.
func NewHealthReporter(windowCycles int) *HealthReporter {
	return health.NewReporter(windowCycles)
}

// BridgeRuntimeOption customizes the dependencies used by BridgeRuntime.
type BridgeRuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	source        Source
	sinks         []Sink
	journal       Journal
	observability Observability
	health        *HealthReporter
}

// WithSource injects a custom polling source (simulators, other device clouds).
func WithSource(src Source) BridgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.source = src
	}
}

// WithSinks replaces the config-driven sink set entirely.
func WithSinks(sinks ...Sink) BridgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.sinks = sinks
	}
}

// WithJournal lets callers bring their own journal implementation or reuse an
// existing instance.
func WithJournal(j Journal) BridgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.journal = j
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) BridgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithHealthReporter reuses a caller-owned health reporter, e.g. one shared
// with a larger service.
func WithHealthReporter(h *HealthReporter) BridgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.health = h
	}
}

// BridgeRuntime wires up the source → throttle cache → dispatcher → sinks
// pipeline and exposes simple lifecycle hooks for embedding the bridge inside
// any Go service.
type BridgeRuntime struct {
	cfg        *Config
	policy     ports.Policy
	obs        ports.Observability
	health     *HealthReporter
	journal    ports.Journal
	source     ports.Source
	sinks      []ports.Sink
	cache      *cache.Cache
	dispatcher *dispatch.Dispatcher

	closers     []func() error
	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
	pollCancel  context.CancelFunc
	pollDoneCh  chan struct{}
}

// NewBridgeRuntime bootstraps the default adapters (ThermoWorks source, file
// journal, config-driven sinks, Prometheus observability) and replays any
// journaled attempts that never completed. Callers can use
// BridgeRuntimeOption values to override any dependency.
func NewBridgeRuntime(cfg *Config, opts ...BridgeRuntimeOption) (*BridgeRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	hr := overrides.health
	if hr == nil {
		hr = health.NewReporter(cfg.Policy.HealthWindowCycles)
	}

	rt := &BridgeRuntime{
		cfg:    cfg,
		policy: cfg.Policy,
		obs:    obs,
		health: hr,
		cache:  cache.New(cfg.Policy.MinUpdateInterval(), cfg.Policy.DeltaThreshold),
	}

	var err error
	if overrides.journal != nil {
		rt.journal = overrides.journal
	} else {
		fj, jerr := journal.NewFileJournal(cfg.Journal.Dir)
		if jerr != nil {
			return nil, jerr
		}
		rt.journal = fj
		rt.closers = append(rt.closers, fj.Close)
	}

	if overrides.source != nil {
		rt.source = overrides.source
	} else {
		rt.source, err = thermoworks.NewClient(cfg.ThermoWorks, obs)
		if err != nil {
			rt.close()
			return nil, err
		}
	}

	if len(overrides.sinks) > 0 {
		rt.sinks = overrides.sinks
	} else {
		if err := rt.buildSinks(); err != nil {
			rt.close()
			return nil, err
		}
	}

	rt.dispatcher, err = dispatch.New(dispatch.Deps{
		Sinks:   rt.sinks,
		Journal: rt.journal,
		NewQueue: func() ports.AttemptQueue {
			return queue.NewAttemptQueue(cfg.Policy.MaxQueueLen)
		},
		Policy: cfg.Policy,
		Obs:    obs,
		Health: hr,
	})
	if err != nil {
		rt.close()
		return nil, err
	}

	if err := rt.dispatcher.Replay(); err != nil {
		rt.close()
		return nil, err
	}

	return rt, nil
}

// buildSinks opens one connection per enabled sink and keeps the close
// functions for Shutdown.
func (rt *BridgeRuntime) buildSinks() error {
	sc := rt.cfg.Sinks

	if sc.Redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := rediscache.Dial(ctx, *sc.Redis)
		cancel()
		if err != nil {
			return fmt.Errorf("redis sink: %w", err)
		}
		rt.closers = append(rt.closers, client.Close)
		rt.sinks = append(rt.sinks, rediscache.NewSink(client, *sc.Redis))
	}

	if sc.Influx != nil {
		client, snk, err := influxsink.Connect(*sc.Influx)
		if err != nil {
			return fmt.Errorf("influx sink: %w", err)
		}
		rt.closers = append(rt.closers, func() error {
			client.Close()
			return nil
		})
		rt.sinks = append(rt.sinks, snk)
	}

	if sc.Timescale != nil {
		db, err := sql.Open("postgres", sc.Timescale.ConnString)
		if err != nil {
			return fmt.Errorf("timescale sink: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		rt.sinks = append(rt.sinks, timescale.NewSink(db, sc.Timescale.Table))
	}

	if sc.HomeAssistant != nil {
		snk, err := homeassistant.NewSink(*sc.HomeAssistant)
		if err != nil {
			return fmt.Errorf("homeassistant sink: %w", err)
		}
		rt.sinks = append(rt.sinks, snk)
	}

	if len(rt.sinks) == 0 {
		return fmt.Errorf("no sinks enabled")
	}
	return nil
}

// Start begins the dispatcher workers and the poll loop and launches the
// metrics/health HTTP server. It returns immediately; call Run to block on a
// context instead.
func (rt *BridgeRuntime) Start() error {
	if rt == nil {
		return fmt.Errorf("bridge runtime is nil")
	}

	rt.dispatcher.Start()

	pollCtx, cancel := context.WithCancel(context.Background())
	rt.pollCancel = cancel
	rt.pollDoneCh = make(chan struct{})
	go func() {
		defer close(rt.pollDoneCh)
		pipeline.RunPollLoop(pollCtx, rt.source, rt.cache, rt.dispatcher, rt.policy, rt.obs, rt.health)
	}()

	rt.startHTTP()
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (rt *BridgeRuntime) Run(ctx context.Context) error {
	if err := rt.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rt.Shutdown(shutdownCtx)
}

// Shutdown stops the poll loop, drains the dispatcher, stops the HTTP server,
// and closes every connection the runtime opened.
func (rt *BridgeRuntime) Shutdown(ctx context.Context) error {
	var errs []error

	if rt.pollCancel != nil {
		rt.pollCancel()
		select {
		case <-rt.pollDoneCh:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("poll loop: %w", ctx.Err()))
		}
	}

	if rt.dispatcher != nil {
		if err := rt.dispatcher.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if rt.gaugeStopCh != nil {
		close(rt.gaugeStopCh)
		rt.gaugeStopCh = nil
	}

	if rt.metricsSrv != nil {
		if err := rt.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	errs = append(errs, rt.close())
	return errors.Join(errs...)
}

func (rt *BridgeRuntime) close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// Inject routes an externally produced reading through the same throttle and
// dispatch path as polled readings. It lets callers feed the bridge from push
// transports (MQTT, webhooks) without bypassing suppression or durability.
func (rt *BridgeRuntime) Inject(r *Reading) (Decision, error) {
	if r == nil {
		return Suppress, fmt.Errorf("reading is required")
	}
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = time.Now().UTC()
	}
	d := rt.cache.Accept(r)
	if d == Propagate {
		rt.obs.IncCounter("grillstats_readings_propagated_total", 1)
		rt.dispatcher.Dispatch(r)
	} else {
		rt.obs.IncCounter("grillstats_readings_suppressed_total", 1)
	}
	return d, nil
}

// Health returns the current aggregate health snapshot.
func (rt *BridgeRuntime) Health() HealthStatus {
	return rt.health.Snapshot()
}

// JournalStats exposes dispatch journal metadata.
func (rt *BridgeRuntime) JournalStats() JournalStats {
	return rt.journal.Stats()
}

func (rt *BridgeRuntime) startHTTP() {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/api/health", rt.health.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	rt.metricsSrv = &http.Server{
		Addr:    rt.cfg.Metrics.Addr,
		Handler: r,
	}

	go func() {
		if err := rt.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	rt.gaugeStopCh = make(chan struct{})
	go rt.recordResourceGauges(rt.gaugeStopCh, time.Second)
}

func (rt *BridgeRuntime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rt.sampleGauges()
		}
	}
}

func (rt *BridgeRuntime) sampleGauges() {
	stats := rt.journal.Stats()
	rt.obs.SetGauge("grillstats_journal_size_bytes", float64(stats.SizeBytes))
	rt.obs.SetGauge("grillstats_tracked_probes", float64(rt.cache.Len()))

	// A probe silent for several poll cycles has likely been unplugged or
	// its device has gone offline.
	if staleAfter := 3 * rt.policy.PollInterval(); staleAfter > 0 {
		rt.obs.SetGauge("grillstats_stale_probes", float64(len(rt.cache.Stale(staleAfter))))
	}
}
