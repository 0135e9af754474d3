package ports

import "github.com/lordmuffin/grill-stats-sub007/internal/domain"

// EntryID identifies a journal entry. Zero means "not journaled".
type EntryID uint64

type QueuedAttempt struct {
	ID      EntryID
	Attempt *domain.SyncAttempt
}

// AttemptQueue is the bounded FIFO feeding a single sink worker.
type AttemptQueue interface {
	Enqueue(id EntryID, a *domain.SyncAttempt) bool
	Dequeue() (QueuedAttempt, bool)
	Len() int
}
