// Package checkpoint keeps per-file resume state so a transcript can be
// consumed across many short runs.
package checkpoint

import (
	"context"
	"fmt"
	"time"

	"ContributionScorer/internal/domain"
	"ContributionScorer/internal/ports"
)

// Tracker opens sessions over stored checkpoints.
type Tracker struct {
	store ports.CheckpointStore
	every int
	now   func() time.Time
}

// NewTracker persists progress every `every` advanced lines (minimum 1).
func NewTracker(store ports.CheckpointStore, every int) *Tracker {
	if every < 1 {
		every = 1
	}
	return &Tracker{store: store, every: every, now: time.Now}
}

// Session is the in-flight state of one file within one run.
type Session struct {
	tracker *Tracker
	cp      domain.Checkpoint
	pending int
}

// Begin loads or creates the checkpoint for file. It returns ok=false when the
// file is already processed and has not grown since.
func (t *Tracker) Begin(ctx context.Context, file domain.TranscriptFile, totalLines int) (*Session, bool, error) {
	existing, err := t.store.GetCheckpoint(ctx, file.Name)
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint %s: %w", file.Name, err)
	}

	cp := domain.Checkpoint{FileName: file.Name}
	if existing != nil {
		cp = *existing
		if cp.Status == domain.CheckpointProcessed && cp.TotalLines == totalLines {
			return nil, false, nil
		}
	}

	cp.FileLocation = file.Location
	cp.Status = domain.CheckpointProcessing
	cp.TotalLines = totalLines
	cp.DateProcessed = t.now()

	if err := t.store.SaveCheckpoint(ctx, cp); err != nil {
		return nil, false, fmt.Errorf("save checkpoint %s: %w", file.Name, err)
	}
	return &Session{tracker: t, cp: cp}, true, nil
}

// MarkFailed flags file as errored without opening a session. Stored progress
// is kept so the next run resumes where the last one stopped.
func (t *Tracker) MarkFailed(ctx context.Context, file domain.TranscriptFile) error {
	existing, err := t.store.GetCheckpoint(ctx, file.Name)
	if err != nil {
		return fmt.Errorf("load checkpoint %s: %w", file.Name, err)
	}

	cp := domain.Checkpoint{FileName: file.Name}
	if existing != nil {
		cp = *existing
	}
	cp.FileLocation = file.Location
	cp.Status = domain.CheckpointError
	cp.DateProcessed = t.now()

	if err := t.store.SaveCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", file.Name, err)
	}
	return nil
}

// StartLine is the first line not yet consumed.
func (s *Session) StartLine() int {
	return s.cp.LastProcessedLine + 1
}

// Checkpoint returns a copy of the current state.
func (s *Session) Checkpoint() domain.Checkpoint {
	return s.cp
}

// Advance records that every line up to and including line is done. Lower
// values than the current position are ignored.
func (s *Session) Advance(ctx context.Context, line int) error {
	if line <= s.cp.LastProcessedLine {
		return nil
	}
	s.cp.LastProcessedLine = line
	s.pending++
	if s.pending >= s.tracker.every {
		return s.Flush(ctx)
	}
	return nil
}

// Flush persists unsaved progress.
func (s *Session) Flush(ctx context.Context) error {
	if s.pending == 0 {
		return nil
	}
	if err := s.save(ctx); err != nil {
		return err
	}
	s.pending = 0
	return nil
}

// Complete marks the whole file consumed.
func (s *Session) Complete(ctx context.Context) error {
	if s.cp.TotalLines > s.cp.LastProcessedLine {
		s.cp.LastProcessedLine = s.cp.TotalLines
	}
	s.cp.Status = domain.CheckpointProcessed
	return s.save(ctx)
}

// Fail marks the file as errored at its last consumed line.
func (s *Session) Fail(ctx context.Context) error {
	s.cp.Status = domain.CheckpointError
	return s.save(ctx)
}

func (s *Session) save(ctx context.Context) error {
	s.cp.DateProcessed = s.tracker.now()
	if err := s.tracker.store.SaveCheckpoint(ctx, s.cp); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", s.cp.FileName, err)
	}
	s.pending = 0
	return nil
}
