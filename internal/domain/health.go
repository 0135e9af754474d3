package domain

import "time"

// OverallState summarizes the bridge as a whole.
type OverallState string

const (
	StateHealthy   OverallState = "healthy"
	StateDegraded  OverallState = "degraded"
	StateUnhealthy OverallState = "unhealthy"
)

// ComponentHealth is overwritten on every poll/push cycle; it is a snapshot,
// never persisted.
type ComponentHealth struct {
	Component           string    `json:"component"`
	LastSuccessAt       time.Time `json:"last_success_at,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	RecentFailures      int       `json:"recent_failures"`
}

// HealthStatus is the consolidated status document served to monitoring.
type HealthStatus struct {
	State       OverallState      `json:"state"`
	GeneratedAt time.Time         `json:"generated_at"`
	Components  []ComponentHealth `json:"components"`
}
