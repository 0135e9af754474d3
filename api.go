package grillstats

import (
	base "github.com/lordmuffin/grill-stats-sub007/pkg/grillbridge"
)

// Re-exported errors for convenience.
var (
	ErrTimeout           = base.ErrTimeout
	ErrRateLimited       = base.ErrRateLimited
	ErrUnavailable       = base.ErrUnavailable
	ErrMalformedResponse = base.ErrMalformedResponse
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import the module root directly.
type (
	Config              = base.Config
	Policy              = base.Policy
	ThermoWorksConfig   = base.ThermoWorksConfig
	SinksConfig         = base.SinksConfig
	RedisConfig         = base.RedisConfig
	InfluxConfig        = base.InfluxConfig
	TimescaleConfig     = base.TimescaleConfig
	HomeAssistantConfig = base.HomeAssistantConfig
	JournalConfig       = base.JournalConfig
	MetricsConfig       = base.MetricsConfig
	Flow                = base.Flow
	FlowOption          = base.FlowOption
	SourceInOption      = base.SourceInOption
	SinkOutOption       = base.SinkOutOption
	BridgeRuntime       = base.BridgeRuntime
	BridgeRuntimeOption = base.BridgeRuntimeOption
	HealthReporter      = base.HealthReporter
	Reading             = base.Reading
	ProbeKey            = base.ProbeKey
	Decision            = base.Decision
	SyncAttempt         = base.SyncAttempt
	HealthStatus        = base.HealthStatus
	ComponentHealth     = base.ComponentHealth
	Source              = base.Source
	Sink                = base.Sink
	Journal             = base.Journal
	JournalStats        = base.JournalStats
	EntryID             = base.EntryID
	Observability       = base.Observability
	Field               = base.Field
	HealthRecorder      = base.HealthRecorder
	ReadingSinkFunc     = base.ReadingSinkFunc
)

// Throttle decisions.
const (
	Suppress  = base.Suppress
	Propagate = base.Propagate
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...BridgeRuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func SourceInSource(src Source) SourceInOption {
	return base.SourceInSource(src)
}

func SourceInJournal(j Journal) SourceInOption {
	return base.SourceInJournal(j)
}

func SourceInObservability(obs Observability) SourceInOption {
	return base.SourceInObservability(obs)
}

func SinkOutSinks(sinks ...Sink) SinkOutOption {
	return base.SinkOutSinks(sinks...)
}

func SinkOutCallback(name string, fn ReadingSinkFunc) SinkOutOption {
	return base.SinkOutCallback(name, fn)
}

func SinkOutHealthReporter(h *HealthReporter) SinkOutOption {
	return base.SinkOutHealthReporter(h)
}

// Bridge runtime and options.
func NewBridgeRuntime(cfg *Config, opts ...BridgeRuntimeOption) (*BridgeRuntime, error) {
	return base.NewBridgeRuntime(cfg, opts...)
}

func NewHealthReporter(windowCycles int) *HealthReporter {
	return base.NewHealthReporter(windowCycles)
}

func WithSource(src Source) BridgeRuntimeOption {
	return base.WithSource(src)
}

func WithSinks(sinks ...Sink) BridgeRuntimeOption {
	return base.WithSinks(sinks...)
}

func WithJournal(j Journal) BridgeRuntimeOption {
	return base.WithJournal(j)
}

func WithObservability(obs Observability) BridgeRuntimeOption {
	return base.WithObservability(obs)
}

func WithHealthReporter(h *HealthReporter) BridgeRuntimeOption {
	return base.WithHealthReporter(h)
}

// Sink adapters.
func NewCallbackSink(name string, fn ReadingSinkFunc) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan Reading, func()) {
	return base.NewChannelSink(name, buffer)
}

// Error classification helpers.
func Permanent(err error) error {
	return base.Permanent(err)
}

func IsPermanent(err error) bool {
	return base.IsPermanent(err)
}
