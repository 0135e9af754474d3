package grillbridge

import (
	"context"
	"fmt"
)

// Flow is a convenience builder that lets callers say Conf → SourceIN →
// SinkOUT without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []BridgeRuntimeOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// SourceInOption configures the polling side of the pipeline.
type SourceInOption func(*Flow)

// SinkOutOption configures the delivery side of the pipeline.
type SinkOutOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow
// builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before
// building a runtime.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw BridgeRuntimeOption values to the builder for advanced
// scenarios.
func (f *Flow) Options(opts ...BridgeRuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// SourceIN records polling-side overrides (source, journal, observability).
func (f *Flow) SourceIN(opts ...SourceInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// SinkOUT records delivery-side overrides and builds a BridgeRuntime ready
// to run.
func (f *Flow) SinkOUT(opts ...SinkOutOption) (*BridgeRuntime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewBridgeRuntime(f.cfg, f.opts...)
}

// Run is a shortcut for SinkOUT + runtime.Run.
func (f *Flow) Run(ctx context.Context, opts ...SinkOutOption) error {
	rt, err := f.SinkOUT(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends BridgeRuntimeOption values during Conf.
func WithFlowOptions(opts ...BridgeRuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// SourceInSource injects a custom polling source (simulators, other clouds).
func SourceInSource(src Source) SourceInOption {
	return func(f *Flow) {
		if f != nil && src != nil {
			f.appendOptions(WithSource(src))
		}
	}
}

// SourceInJournal lets callers bring their own journal implementation.
func SourceInJournal(j Journal) SourceInOption {
	return func(f *Flow) {
		if f != nil && j != nil {
			f.appendOptions(WithJournal(j))
		}
	}
}

// SourceInObservability overrides the default Prometheus-based observability
// stack.
func SourceInObservability(obs Observability) SourceInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// SinkOutSinks replaces the config-driven sink set.
func SinkOutSinks(sinks ...Sink) SinkOutOption {
	return func(f *Flow) {
		if f != nil && len(sinks) > 0 {
			f.appendOptions(WithSinks(sinks...))
		}
	}
}

// SinkOutCallback installs a sink built from a simple callback function.
func SinkOutCallback(name string, fn ReadingSinkFunc) SinkOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithSinks(NewCallbackSink(name, fn)))
		}
	}
}

// SinkOutHealthReporter reuses a caller-owned health reporter.
func SinkOutHealthReporter(h *HealthReporter) SinkOutOption {
	return func(f *Flow) {
		if f != nil && h != nil {
			f.appendOptions(WithHealthReporter(h))
		}
	}
}

func (f *Flow) appendOptions(opts ...BridgeRuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
