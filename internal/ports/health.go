package ports

// HealthRecorder is injected into the poller, cache, and dispatcher so no
// component owns process-wide mutable health state.
type HealthRecorder interface {
	RecordSuccess(component string)
	RecordFailure(component string, err error)
}
