package grillbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after
// being closed.
var ErrChannelSinkClosed = errors.New("grillbridge: channel sink closed")

// ReadingSinkFunc is invoked with each propagated reading.
type ReadingSinkFunc func(Reading) error

// NewCallbackSink adapts a ReadingSinkFunc into a full Sink implementation so
// callers can plug arbitrary functions without defining structs. Return a
// Permanent error from fn to skip retries.
func NewCallbackSink(name string, fn ReadingSinkFunc) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes propagated readings via a channel; it returns the
// sink, the read-only channel, and a close function that the caller should
// invoke during shutdown.
func NewChannelSink(name string, buffer int) (Sink, <-chan Reading, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Reading, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   ReadingSinkFunc
}

func (s *callbackSink) Deliver(_ context.Context, r *Reading) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if r == nil {
		return nil
	}
	return s.fn(*r)
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan Reading
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) Deliver(ctx context.Context, r *Reading) error {
	select {
	case <-s.closed:
		return Permanent(ErrChannelSinkClosed)
	default:
	}

	if r == nil {
		return nil
	}

	select {
	case <-s.closed:
		return Permanent(ErrChannelSinkClosed)
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- *r:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}
