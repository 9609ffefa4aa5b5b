package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ContributionScorer/internal/domain"
	"ContributionScorer/internal/ports"
)

var _ ports.CheckpointStore = (*Store)(nil)

// GetCheckpoint returns nil, nil when the file has never been seen.
func (s *Store) GetCheckpoint(ctx context.Context, fileName string) (*domain.Checkpoint, error) {
	row, err := s.queryRow(ctx, s.sb.Select(
		"file_name", "file_url", "status", "date_processed", "last_processed_line", "total_lines",
	).
		From("checkpoints").
		Where(sq.Eq{"file_name": fileName}))
	if err != nil {
		return nil, err
	}

	var (
		cp        domain.Checkpoint
		status    string
		processed string
	)
	err = row.Scan(&cp.FileName, &cp.FileLocation, &status, &processed, &cp.LastProcessedLine, &cp.TotalLines)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint %s: %w", fileName, err)
	}
	cp.Status = domain.CheckpointStatus(status)
	if processed != "" {
		cp.DateProcessed, _ = time.Parse(time.RFC3339Nano, processed)
	}
	return &cp, nil
}

// SaveCheckpoint upserts cp. The stored line never moves backwards.
func (s *Store) SaveCheckpoint(ctx context.Context, cp domain.Checkpoint) error {
	_, err := s.exec(ctx, s.sb.Insert("checkpoints").
		Columns("file_name", "file_url", "status", "date_processed", "last_processed_line", "total_lines").
		Values(cp.FileName, cp.FileLocation, string(cp.Status), formatTime(cp.DateProcessed),
			cp.LastProcessedLine, cp.TotalLines).
		Suffix(`ON CONFLICT (file_name) DO UPDATE SET
			file_url = excluded.file_url,
			status = excluded.status,
			date_processed = excluded.date_processed,
			total_lines = excluded.total_lines,
			last_processed_line = CASE
				WHEN excluded.last_processed_line > checkpoints.last_processed_line
				THEN excluded.last_processed_line
				ELSE checkpoints.last_processed_line
			END`))
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.FileName, err)
	}
	return nil
}

// SaveStamp records a transcript entry as evaluated. Re-stamping is a no-op.
func (s *Store) SaveStamp(ctx context.Context, stamp domain.Stamp) error {
	if _, err := s.exec(ctx, s.insertStamp(stamp)); err != nil {
		return fmt.Errorf("save stamp %s:%d: %w", stamp.FileName, stamp.Line, err)
	}
	return nil
}

func (s *Store) insertStamp(stamp domain.Stamp) sq.InsertBuilder {
	return s.sb.Insert("transcript_stamps").
		Columns("dedup_hash", "file_name", "line", "stamped_at").
		Values(stamp.DedupHash, stamp.FileName, stamp.Line, formatTime(time.Now())).
		Suffix("ON CONFLICT (dedup_hash) DO NOTHING")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
