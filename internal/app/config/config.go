package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/homeassistant"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/influxsink"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/rediscache"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/thermoworks"
	"github.com/lordmuffin/grill-stats-sub007/internal/adapters/timescale"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

type Config struct {
	Policy      ports.Policy       `yaml:"policy"`
	ThermoWorks thermoworks.Config `yaml:"thermoworks"`
	Sinks       SinksConfig        `yaml:"sinks"`
	Journal     JournalConfig      `yaml:"journal"`
	Metrics     MetricsConfig      `yaml:"metrics"`
}

// SinksConfig enables each downstream independently; nil means disabled.
type SinksConfig struct {
	Redis         *rediscache.Config    `yaml:"redis"`
	Influx        *influxsink.Config    `yaml:"influx"`
	Timescale     *timescale.Config     `yaml:"timescale"`
	HomeAssistant *homeassistant.Config `yaml:"homeassistant"`
}

func (s SinksConfig) EnabledCount() int {
	var n int
	if s.Redis != nil {
		n++
	}
	if s.Influx != nil {
		n++
	}
	if s.Timescale != nil {
		n++
	}
	if s.HomeAssistant != nil {
		n++
	}
	return n
}

type JournalConfig struct {
	Dir string `yaml:"dir"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads YAML from disk, layers in .env and GRILL_* environment
// overrides for secrets, applies defaults, and validates. Invalid
// thresholds are fatal: the bridge must not run with them.
func Load(path string) (*Config, error) {
	// .env is optional; real deployments use the pod environment
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GRILL_THERMOWORKS_API_KEY"); v != "" {
		c.ThermoWorks.APIKey = v
	}
	if v := os.Getenv("GRILL_THERMOWORKS_BASE_URL"); v != "" {
		c.ThermoWorks.BaseURL = v
	}
	if v := os.Getenv("GRILL_REDIS_PASSWORD"); v != "" && c.Sinks.Redis != nil {
		c.Sinks.Redis.Password = v
	}
	if v := os.Getenv("GRILL_INFLUX_TOKEN"); v != "" && c.Sinks.Influx != nil {
		c.Sinks.Influx.Token = v
	}
	if v := os.Getenv("GRILL_TIMESCALE_CONN_STRING"); v != "" && c.Sinks.Timescale != nil {
		c.Sinks.Timescale.ConnString = v
	}
	if v := os.Getenv("GRILL_HOMEASSISTANT_TOKEN"); v != "" && c.Sinks.HomeAssistant != nil {
		c.Sinks.HomeAssistant.Token = v
	}
}

func (c *Config) applyDefaults() {
	if c.Policy.PollIntervalSeconds == 0 {
		c.Policy.PollIntervalSeconds = 60
	}
	if c.Policy.MinUpdateIntervalSeconds == 0 {
		c.Policy.MinUpdateIntervalSeconds = 60
	}
	if c.Policy.DeltaThreshold == 0 {
		c.Policy.DeltaThreshold = 5.0
	}
	if c.Policy.MaxDispatchAttempts == 0 {
		c.Policy.MaxDispatchAttempts = 3
	}
	if c.Policy.RetryBaseDelayMS == 0 {
		c.Policy.RetryBaseDelayMS = 500
	}
	if c.Policy.RetryMaxDelayMS == 0 {
		c.Policy.RetryMaxDelayMS = 30_000
	}
	if c.Policy.PollTimeoutMS == 0 {
		c.Policy.PollTimeoutMS = 10_000
	}
	if c.Policy.DispatchTimeoutMS == 0 {
		c.Policy.DispatchTimeoutMS = 5_000
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 1024
	}
	if c.Policy.HealthWindowCycles == 0 {
		c.Policy.HealthWindowCycles = 10
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":8080"
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = "./data/journal"
	}

	c.ThermoWorks.ApplyDefaults()
	if c.Sinks.Redis != nil {
		c.Sinks.Redis.ApplyDefaults()
	}
	if c.Sinks.Influx != nil {
		c.Sinks.Influx.ApplyDefaults()
	}
	if c.Sinks.HomeAssistant != nil {
		c.Sinks.HomeAssistant.ApplyDefaults()
	}
}

func (c *Config) validate() error {
	if err := c.ThermoWorks.Validate(); err != nil {
		return fmt.Errorf("thermoworks config: %w", err)
	}
	if c.Sinks.EnabledCount() == 0 {
		return fmt.Errorf("at least one sink must be configured")
	}
	if c.Sinks.Influx != nil {
		if err := c.Sinks.Influx.Validate(); err != nil {
			return fmt.Errorf("influx config: %w", err)
		}
	}
	if c.Sinks.Timescale != nil && c.Sinks.Timescale.ConnString == "" {
		return fmt.Errorf("timescale.conn_string is required")
	}
	if c.Sinks.HomeAssistant != nil {
		if err := c.Sinks.HomeAssistant.Validate(); err != nil {
			return fmt.Errorf("homeassistant config: %w", err)
		}
	}
	if c.Sinks.Redis != nil && c.Sinks.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}

	p := c.Policy
	if p.PollIntervalSeconds < 0 || p.MinUpdateIntervalSeconds < 0 {
		return fmt.Errorf("poll and update intervals must not be negative")
	}
	if p.DeltaThreshold < 0 {
		return fmt.Errorf("delta_threshold must not be negative")
	}
	if p.MaxDispatchAttempts < 1 {
		return fmt.Errorf("max_dispatch_attempts must be at least 1")
	}
	if p.RetryBaseDelayMS < 0 || p.RetryMaxDelayMS < p.RetryBaseDelayMS {
		return fmt.Errorf("retry delays invalid: base=%dms max=%dms", p.RetryBaseDelayMS, p.RetryMaxDelayMS)
	}
	if p.PollTimeoutMS <= 0 || p.DispatchTimeoutMS <= 0 {
		return fmt.Errorf("poll and dispatch timeouts must be positive")
	}
	return nil
}
