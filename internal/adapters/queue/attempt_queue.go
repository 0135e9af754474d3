package queue

import (
	"sync"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

// AttemptQueue is a bounded in-memory queue that preserves FIFO ordering.
// Each sink worker drains exactly one queue, which keeps delivery for a
// given attempt at-most-once-in-flight.
type AttemptQueue struct {
	mu   sync.Mutex
	data []ports.QueuedAttempt
	cap  int
}

func NewAttemptQueue(capacity int) *AttemptQueue {
	return &AttemptQueue{
		data: make([]ports.QueuedAttempt, 0, capacity),
		cap:  capacity,
	}
}

func (q *AttemptQueue) Enqueue(id ports.EntryID, a *domain.SyncAttempt) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, ports.QueuedAttempt{ID: id, Attempt: a})
	return true
}

func (q *AttemptQueue) Dequeue() (ports.QueuedAttempt, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return ports.QueuedAttempt{}, false
	}
	out := q.data[0]
	q.data = append(q.data[:0], q.data[1:]...)
	return out, true
}

func (q *AttemptQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.AttemptQueue = (*AttemptQueue)(nil)
