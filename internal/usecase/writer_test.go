package usecase

import (
	"context"
	"testing"

	"ContributionScorer/internal/domain"
)

func TestWriterStampsRowsAndTranscripts(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ctx := context.Background()
	w := NewWriter(store)

	id := store.addRow("@alice", "planted", "20250301")
	row := domain.LogEntry{SourceID: "row:1", RowID: id}
	if err := w.Write(ctx, row, "h1", []domain.ContributionRecord{{ContributorIdentity: "a"}, {ContributorIdentity: "b"}}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if len(store.records) != 2 || store.records[1].DedupHash != "h1" {
		t.Fatalf("records not appended with hash: %+v", store.records)
	}
	if store.row(id).ComputedHash != "h1" {
		t.Fatalf("row not stamped")
	}

	line := domain.LogEntry{SourceID: "chat.txt:7", FileName: "chat.txt", Line: 7}
	if err := w.Stamp(ctx, line, "h2"); err != nil {
		t.Fatalf("Stamp error: %v", err)
	}
	if s, ok := store.stamps["h2"]; !ok || s.Line != 7 || s.FileName != "chat.txt" {
		t.Fatalf("transcript stamp missing: %+v", store.stamps)
	}
}

func TestWriterLeavesNothingOnFailedCommit(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.failAppendAfter = 1
	id := store.addRow("@alice", "planted", "20250301")

	err := NewWriter(store).Write(context.Background(), domain.LogEntry{RowID: id}, "h",
		[]domain.ContributionRecord{{ContributorIdentity: "alice"}, {ContributorIdentity: "bob"}})
	if err == nil {
		t.Fatalf("expected commit error")
	}
	if len(store.records) != 0 || store.row(id).ComputedHash != "" {
		t.Fatalf("failed commit left records=%d hash=%q", len(store.records), store.row(id).ComputedHash)
	}
}

func TestWriterCommitsAfterDeadline(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	id := store.addRow("@alice", "planted", "20250301")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWriter(committerFunc(func(ctx context.Context, c domain.EntryCommit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return store.CommitEntry(ctx, c)
	}))
	if err := w.Write(ctx, domain.LogEntry{RowID: id}, "h", []domain.ContributionRecord{{ContributorIdentity: "alice"}}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if len(store.records) != 1 || store.row(id).ComputedHash != "h" {
		t.Fatalf("commit should survive a cancelled run context")
	}
}

type committerFunc func(ctx context.Context, c domain.EntryCommit) error

func (f committerFunc) CommitEntry(ctx context.Context, c domain.EntryCommit) error {
	return f(ctx, c)
}
