package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

func TestFileJournalAppendIterateAndReplay(t *testing.T) {
	dir := t.TempDir()

	j, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}

	r1 := &domain.Reading{DeviceID: "grill-1", ProbeID: "probe-1", Value: 200, ObservedAt: time.Now().UTC()}
	r2 := &domain.Reading{DeviceID: "grill-1", ProbeID: "probe-2", Value: 150, ObservedAt: time.Now().UTC()}

	id1, err := j.Append(r1)
	if err != nil || id1 == 0 {
		t.Fatalf("append reading 1: %v id=%d", err, id1)
	}
	id2, err := j.Append(r2)
	if err != nil || id2 == 0 {
		t.Fatalf("append reading 2: %v id=%d", err, id2)
	}

	var iterated []string
	if err := j.Iterate(1, func(id ports.EntryID, r *domain.Reading) error {
		iterated = append(iterated, r.ProbeID)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(iterated) != 2 || iterated[0] != "probe-1" {
		t.Fatalf("unexpected iteration order: %v", iterated)
	}

	if err := j.Commit(id1); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}

	// Reopen and ensure committed metadata was persisted.
	j2, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("reopen journal: %v", err)
	}
	defer j2.Close()

	stats := j2.Stats()
	if stats.LatestAppended != id2 {
		t.Fatalf("expected latest appended %d, got %d", id2, stats.LatestAppended)
	}
	if stats.OldestUncommitted != id1+1 {
		t.Fatalf("expected oldest uncommitted %d, got %d", id1+1, stats.OldestUncommitted)
	}

	// Uncommitted entry should survive for replay.
	var replayed []string
	if err := j2.Iterate(stats.OldestUncommitted, func(id ports.EntryID, r *domain.Reading) error {
		replayed = append(replayed, r.ProbeID)
		return nil
	}); err != nil {
		t.Fatalf("replay iterate: %v", err)
	}
	if len(replayed) != 1 || replayed[0] != "probe-2" {
		t.Fatalf("expected only probe-2 to replay, got %v", replayed)
	}
}

func TestFileJournalTruncatesTornTail(t *testing.T) {
	dir := t.TempDir()

	j, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	if _, err := j.Append(&domain.Reading{DeviceID: "grill-1", ProbeID: "p"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	path := filepath.Join(dir, "dispatch.log")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.Write([]byte{0xFF, 0xAA}); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	f.Close()

	j2, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("reopen after garbage: %v", err)
	}
	defer j2.Close()

	if got := j2.Stats().LatestAppended; got != 1 {
		t.Fatalf("expected garbage tail dropped, latest=%d", got)
	}
}

func TestFileJournalTruncateCommitted(t *testing.T) {
	dir := t.TempDir()

	j, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	defer j.Close()

	id1, _ := j.Append(&domain.Reading{ProbeID: "a"})
	id2, _ := j.Append(&domain.Reading{ProbeID: "b"})

	if err := j.Commit(id1); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := j.TruncateCommitted(); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	var kept []ports.EntryID
	if err := j.Iterate(0, func(id ports.EntryID, r *domain.Reading) error {
		kept = append(kept, id)
		return nil
	}); err != nil {
		t.Fatalf("iterate after truncate: %v", err)
	}
	if len(kept) != 1 || kept[0] != id2 {
		t.Fatalf("expected only entry %d kept, got %v", id2, kept)
	}
}
