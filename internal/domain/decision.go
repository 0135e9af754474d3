package domain

// Decision is the throttle cache's verdict on an incoming reading.
type Decision int

const (
	Suppress Decision = iota
	Propagate
)

func (d Decision) String() string {
	if d == Propagate {
		return "propagate"
	}
	return "suppress"
}
