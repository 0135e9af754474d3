package domain

import (
	"fmt"
	"time"
)

// Reading is the canonical unit of probe telemetry in the bridge.
// It is immutable once created.
type Reading struct {
	DeviceID   string    `json:"device_id"`
	ProbeID    string    `json:"probe_id"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	ObservedAt time.Time `json:"observed_at"`
	ReceivedAt time.Time `json:"received_at"`
}

// ProbeKey identifies the cache slot for a device probe.
type ProbeKey struct {
	DeviceID string
	ProbeID  string
}

func (k ProbeKey) String() string {
	return fmt.Sprintf("%s/%s", k.DeviceID, k.ProbeID)
}

func (r *Reading) Key() ProbeKey {
	return ProbeKey{DeviceID: r.DeviceID, ProbeID: r.ProbeID}
}
