package ports

import (
	"context"
	"io"
	"time"

	"ContributionScorer/internal/domain"
)

// ChatRowSource exposes materialized chat rows that still lack an idempotence stamp.
type ChatRowSource interface {
	// PendingRows returns up to limit rows that carry no computed hash, oldest first.
	PendingRows(ctx context.Context, limit int) ([]domain.ChatRow, error)
}

// TranscriptSource lists and opens uploaded transcript files.
type TranscriptSource interface {
	List(ctx context.Context) ([]domain.TranscriptFile, error)
	Open(ctx context.Context, file domain.TranscriptFile) (io.ReadCloser, error)
}

// CheckpointStore persists per-file resume state.
type CheckpointStore interface {
	GetCheckpoint(ctx context.Context, fileName string) (*domain.Checkpoint, error)
	SaveCheckpoint(ctx context.Context, cp domain.Checkpoint) error
}

// EntryCommitter writes an entry's records and its source stamp atomically.
type EntryCommitter interface {
	CommitEntry(ctx context.Context, commit domain.EntryCommit) error
}

// HashLookup answers whether a dedup hash was already scored or stamped anywhere.
type HashLookup interface {
	HashSeen(ctx context.Context, hash string) (bool, error)
}

// HistoryReader loads the read-only historical ledger.
type HistoryReader interface {
	LoadHistory(ctx context.Context) ([]domain.HistoryEntry, error)
}

// IdentityReader loads the canonical contributor directory.
type IdentityReader interface {
	LoadIdentities(ctx context.Context) ([]domain.Identity, error)
}

// ContributionLedger is the review side of the scored-output ledger.
type ContributionLedger interface {
	UnresolvedPending(ctx context.Context, limit int) ([]domain.ContributionRecord, error)
	MarkResolved(ctx context.Context, id int64, identity string) error
	MarkResolveFailure(ctx context.Context, id int64, attempts int, status domain.ReviewStatus) error
}

// Completer sends one natural-language instruction to a reasoning service and
// returns its plain-text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when slices execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
