package usecase

import (
	"context"
	"fmt"

	"ContributionScorer/internal/domain"
	"ContributionScorer/internal/ports"
)

// Writer commits scored records together with the stamp on their source.
type Writer struct {
	ledger ports.EntryCommitter
}

// NewWriter wires the output ledger.
func NewWriter(ledger ports.EntryCommitter) *Writer {
	return &Writer{ledger: ledger}
}

// Write appends one record per contributor and stamps the entry in a single
// commit. The commit ignores ctx cancellation so a run deadline cannot leave
// a partial entry behind.
func (w *Writer) Write(ctx context.Context, e domain.LogEntry, hash string, records []domain.ContributionRecord) error {
	if w.ledger == nil {
		return fmt.Errorf("commit %s: ledger is not configured", e.SourceID)
	}

	commit := domain.EntryCommit{Hash: hash, RowID: e.RowID}
	if e.RowID == 0 {
		commit.FileName, commit.Line = e.FileName, e.Line
	}
	for _, rec := range records {
		rec.DedupHash = hash
		commit.Records = append(commit.Records, rec)
	}

	if err := w.ledger.CommitEntry(context.WithoutCancel(ctx), commit); err != nil {
		return fmt.Errorf("commit %s: %w", e.SourceID, err)
	}
	return nil
}

// Stamp marks the entry evaluated without writing records.
func (w *Writer) Stamp(ctx context.Context, e domain.LogEntry, hash string) error {
	return w.Write(ctx, e, hash, nil)
}
