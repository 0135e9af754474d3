package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
)

func TestPromObsMetrics(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	obs := NewPromObs()

	obs.IncCounter("grillstats_readings_propagated_total", 3)
	if got := testutil.ToFloat64(obs.counters["grillstats_readings_propagated_total"]); got != 3 {
		t.Fatalf("expected propagated counter 3, got %f", got)
	}

	obs.IncCounter("grillstats_dispatch_retries_total", 2)
	if got := testutil.ToFloat64(obs.counters["grillstats_dispatch_retries_total"]); got != 2 {
		t.Fatalf("expected retry counter 2, got %f", got)
	}

	obs.SetGauge("grillstats_journal_size_bytes", 42)
	if got := testutil.ToFloat64(obs.gauges["grillstats_journal_size_bytes"]); got != 42 {
		t.Fatalf("expected journal gauge 42, got %f", got)
	}

	obs.ObserveLatency("grillstats_sink_delivery_seconds", 0.25)
	hCollector := obs.histos["grillstats_sink_delivery_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	obs.RecordDrop(domain.ProbeKey{DeviceID: "grill-1", ProbeID: "p1"}, nil)
	if got := testutil.ToFloat64(obs.counters["grillstats_dispatch_dropped_total"]); got != 1 {
		t.Fatalf("expected dropped counter 1, got %f", got)
	}

	// Unknown names are ignored rather than panicking.
	obs.IncCounter("grillstats_nope_total", 1)
	obs.SetGauge("grillstats_nope", 1)
}
