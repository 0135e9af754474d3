package grillbridge

import (
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/homeassistant"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/influxsink"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/rediscache"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/thermoworks"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/timescale"
	"github.com/lordmuffin/grill-stats-sub007/internal/app/config"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls throttle, retry, and timeout thresholds.
	Policy = ports.Policy
	// ThermoWorksConfig holds upstream connection details.
	ThermoWorksConfig = thermoworks.Config
	// SinksConfig enables each downstream independently.
	SinksConfig = config.SinksConfig
	// RedisConfig configures the latest-state cache sink.
	RedisConfig = rediscache.Config
	// InfluxConfig configures the time-series sink.
	InfluxConfig = influxsink.Config
	// TimescaleConfig configures the relational history sink.
	TimescaleConfig = timescale.Config
	// HomeAssistantConfig configures the state-bridge sink.
	HomeAssistantConfig = homeassistant.Config
	// JournalConfig configures on-disk dispatch durability.
	JournalConfig = config.JournalConfig
	// MetricsConfig configures the metrics/health HTTP server.
	MetricsConfig = config.MetricsConfig
)

// LoadConfig loads YAML from disk using the internal config reader, layering
// in .env and GRILL_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
