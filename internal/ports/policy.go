package ports

import "time"

// Policy carries the throttle/retry thresholds shared by the cache, poll
// loop, and dispatcher. Field names match the recognized configuration
// options one to one.
type Policy struct {
	PollIntervalSeconds      int     `yaml:"poll_interval_seconds"`
	MinUpdateIntervalSeconds int     `yaml:"min_update_interval_seconds"`
	DeltaThreshold           float64 `yaml:"delta_threshold"`
	MaxDispatchAttempts      int     `yaml:"max_dispatch_attempts"`
	RetryBaseDelayMS         int     `yaml:"retry_base_delay_ms"`
	RetryMaxDelayMS          int     `yaml:"retry_max_delay_ms"`
	PollTimeoutMS            int     `yaml:"poll_timeout_ms"`
	DispatchTimeoutMS        int     `yaml:"dispatch_timeout_ms"`

	MaxQueueLen        int `yaml:"max_queue_len"`
	HealthWindowCycles int `yaml:"health_window_cycles"`
}

func (p Policy) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSeconds) * time.Second
}

func (p Policy) MinUpdateInterval() time.Duration {
	return time.Duration(p.MinUpdateIntervalSeconds) * time.Second
}

func (p Policy) RetryBaseDelay() time.Duration {
	return time.Duration(p.RetryBaseDelayMS) * time.Millisecond
}

func (p Policy) RetryMaxDelay() time.Duration {
	return time.Duration(p.RetryMaxDelayMS) * time.Millisecond
}

func (p Policy) PollTimeout() time.Duration {
	return time.Duration(p.PollTimeoutMS) * time.Millisecond
}

func (p Policy) DispatchTimeout() time.Duration {
	return time.Duration(p.DispatchTimeoutMS) * time.Millisecond
}
