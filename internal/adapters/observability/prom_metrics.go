package observability

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	polled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grillstats_readings_polled_total",
		Help: "Readings fetched from the upstream device API.",
	})
	propagated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grillstats_readings_propagated_total",
		Help: "Readings the throttle cache accepted for dispatch.",
	})
	suppressed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grillstats_readings_suppressed_total",
		Help: "Readings withheld by the minimum-interval/delta thresholds.",
	})
	malformed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grillstats_readings_malformed_total",
		Help: "Upstream entries dropped because they failed validation.",
	})
	pollErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grillstats_poll_errors_total",
		Help: "Poll cycles that ended in an error.",
	})
	delivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grillstats_dispatch_delivered_total",
		Help: "Sync attempts that reached their sink.",
	})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grillstats_dispatch_retries_total",
		Help: "Transient delivery failures scheduled for retry.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grillstats_dispatch_failed_total",
		Help: "Sync attempts that exhausted their retry budget.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grillstats_dispatch_dropped_total",
		Help: "Readings lost to queue backpressure.",
	})
	journalGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grillstats_journal_size_bytes",
		Help: "Size of the dispatch journal on disk.",
	})
	retryGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grillstats_retry_queue_length",
		Help: "Sync attempts waiting for their next retry.",
	})
	probesGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grillstats_tracked_probes",
		Help: "Distinct (device, probe) keys seen by the cache.",
	})
	staleGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grillstats_stale_probes",
		Help: "Tracked probes with no reading for several poll intervals.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "grillstats_sink_delivery_seconds",
		Help:    "Latency of a single delivery to a downstream sink.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	prometheus.MustRegister(polled, propagated, suppressed, malformed, pollErrors,
		delivered, retries, failed, dropped, journalGauge, retryGauge, probesGauge,
		staleGauge, latency)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"grillstats_readings_polled_total":     polled,
			"grillstats_readings_propagated_total": propagated,
			"grillstats_readings_suppressed_total": suppressed,
			"grillstats_readings_malformed_total":  malformed,
			"grillstats_poll_errors_total":         pollErrors,
			"grillstats_dispatch_delivered_total":  delivered,
			"grillstats_dispatch_retries_total":    retries,
			"grillstats_dispatch_failed_total":     failed,
			"grillstats_dispatch_dropped_total":    dropped,
		},
		gauges: map[string]prometheus.Gauge{
			"grillstats_journal_size_bytes": journalGauge,
			"grillstats_retry_queue_length": retryGauge,
			"grillstats_tracked_probes":     probesGauge,
			"grillstats_stale_probes":       staleGauge,
		},
		histos: map[string]prometheus.Observer{
			"grillstats_sink_delivery_seconds": latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v", msg, err)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v", msg, err)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDrop(key domain.ProbeKey, err error) {
	p.IncCounter("grillstats_dispatch_dropped_total", 1)
	if err != nil {
		log.Printf("dropped reading key=%s err=%v", key, err)
	}
}

var _ ports.Observability = (*PromObs)(nil)
