package domain

import (
	"sync"
	"time"
)

// AttemptStatus tracks the lifecycle of a delivery to a single sink.
// Delivered and Failed are terminal.
type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "pending"
	AttemptDelivered AttemptStatus = "delivered"
	AttemptFailed    AttemptStatus = "failed"
)

// SyncAttempt is the retryable unit of work delivering one reading to one
// sink. Dispatch workers settle it while callers may still be polling it,
// so the mutable state sits behind a mutex and is reached through methods.
type SyncAttempt struct {
	SinkID  string
	Reading *Reading

	mu           sync.Mutex
	status       AttemptStatus
	attemptCount int
	lastError    string
	nextRetryAt  time.Time
}

func NewSyncAttempt(sinkID string, r *Reading) *SyncAttempt {
	return &SyncAttempt{
		SinkID:  sinkID,
		Reading: r,
		status:  AttemptPending,
	}
}

func (a *SyncAttempt) Status() AttemptStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func (a *SyncAttempt) AttemptCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attemptCount
}

func (a *SyncAttempt) LastError() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastError
}

func (a *SyncAttempt) NextRetryAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nextRetryAt
}

func (a *SyncAttempt) Terminal() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status == AttemptDelivered || a.status == AttemptFailed
}

// BeginAttempt counts one delivery try and returns the new total.
func (a *SyncAttempt) BeginAttempt() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attemptCount++
	return a.attemptCount
}

func (a *SyncAttempt) MarkDelivered() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = AttemptDelivered
}

func (a *SyncAttempt) MarkFailed(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.lastError = err.Error()
	}
	a.status = AttemptFailed
}

// ScheduleRetry records the failure and the time the next try becomes due;
// the attempt stays pending.
func (a *SyncAttempt) ScheduleRetry(err error, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.lastError = err.Error()
	}
	a.nextRetryAt = at
}
