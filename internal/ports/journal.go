package ports

import "github.com/lordmuffin/grill-stats-sub007/internal/domain"

// Journal records accepted readings before fan-out so dispatch survives a
// restart: uncommitted entries are replayed into the dispatcher on startup.
type Journal interface {
	Append(r *domain.Reading) (EntryID, error)
	Iterate(from EntryID, fn func(id EntryID, r *domain.Reading) error) error
	Commit(upto EntryID) error
	TruncateCommitted() error
	Stats() JournalStats
}

type JournalStats struct {
	OldestUncommitted EntryID
	LatestAppended    EntryID
	SizeBytes         int64
}
