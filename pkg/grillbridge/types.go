package grillbridge

import (
	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

// Reading is the data structure that flows through the poll→cache→dispatch
// pipeline. It mirrors internal/domain.Reading but is exported so custom
// sources and sinks can reference it.
type Reading = domain.Reading

// ProbeKey identifies one temperature probe on one device.
type ProbeKey = domain.ProbeKey

// Decision is the throttle cache's verdict for a reading.
type Decision = domain.Decision

// SyncAttempt tracks one reading's delivery to one sink.
type SyncAttempt = domain.SyncAttempt

// AttemptStatus is the lifecycle state of a SyncAttempt.
type AttemptStatus = domain.AttemptStatus

// HealthStatus is the aggregate health report served over HTTP.
type HealthStatus = domain.HealthStatus

// ComponentHealth is the per-component detail inside a HealthStatus.
type ComponentHealth = domain.ComponentHealth

// Source polls an upstream device cloud for readings.
type Source = ports.Source

// Sink delivers propagated readings to a downstream system.
type Sink = ports.Sink

// Journal abstracts the append-only dispatch journal used for crash recovery.
type Journal = ports.Journal

// JournalStats exposes journal metadata for observability.
type JournalStats = ports.JournalStats

// EntryID uniquely identifies a journal entry.
type EntryID = ports.EntryID

// Observability emits metrics/logs about throughput, suppression, and drops.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// HealthRecorder receives per-component success/failure signals.
type HealthRecorder = ports.HealthRecorder

const (
	// Suppress means the reading only advanced cache bookkeeping.
	Suppress = domain.Suppress
	// Propagate means the reading was handed to the dispatcher.
	Propagate = domain.Propagate
)

// Poll error classes surfaced by Source implementations.
var (
	ErrTimeout           = ports.ErrTimeout
	ErrRateLimited       = ports.ErrRateLimited
	ErrUnavailable       = ports.ErrUnavailable
	ErrMalformedResponse = ports.ErrMalformedResponse
)

// Permanent marks a delivery error as non-retryable.
func Permanent(err error) error { return ports.Permanent(err) }

// IsPermanent reports whether a delivery error was marked non-retryable.
func IsPermanent(err error) bool { return ports.IsPermanent(err) }
