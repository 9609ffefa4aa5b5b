package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"ContributionScorer/internal/domain"
	"ContributionScorer/internal/ports"
)

var _ ports.ChatRowSource = (*Store)(nil)

// PendingRows returns rows that carry no computed hash, oldest first.
func (s *Store) PendingRows(ctx context.Context, limit int) ([]domain.ChatRow, error) {
	if s.db == nil {
		return nil, nil
	}

	q := s.sb.Select(
		"id", "update_id", "chatroom_id", "chatroom_name", "message_id",
		"sender_handle", "message_text", "status_date", "COALESCE(computed_hash, '')",
	).
		From("chat_rows").
		Where(sq.Or{sq.Eq{"computed_hash": nil}, sq.Eq{"computed_hash": ""}}).
		OrderBy("id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query pending rows: %w", err)
	}
	defer rows.Close()

	var result []domain.ChatRow
	for rows.Next() {
		var r domain.ChatRow
		if err := rows.Scan(&r.ID, &r.UpdateID, &r.ChatroomID, &r.ChatroomName, &r.MessageID,
			&r.SenderHandle, &r.MessageText, &r.StatusDate, &r.ComputedHash); err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// StampRow writes hash onto the row so it is never selected again.
func (s *Store) StampRow(ctx context.Context, rowID int64, hash string) error {
	if s.db == nil {
		return nil
	}

	if _, err := s.exec(ctx, s.stampRow(rowID, hash)); err != nil {
		return fmt.Errorf("stamp row %d: %w", rowID, err)
	}
	return nil
}

func (s *Store) stampRow(rowID int64, hash string) sq.UpdateBuilder {
	return s.sb.Update("chat_rows").
		Set("computed_hash", hash).
		Where(sq.Eq{"id": rowID})
}

// InsertChatRow materializes one inbound chat message. It is used by the
// chat collector side and by fixtures.
func (s *Store) InsertChatRow(ctx context.Context, r domain.ChatRow) (int64, error) {
	row, err := s.queryRow(ctx, s.sb.Insert("chat_rows").
		Columns("update_id", "chatroom_id", "chatroom_name", "message_id",
			"sender_handle", "message_text", "status_date").
		Values(r.UpdateID, r.ChatroomID, r.ChatroomName, r.MessageID,
			r.SenderHandle, r.MessageText, r.StatusDate).
		Suffix("RETURNING id"))
	if err != nil {
		return 0, err
	}

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("insert chat row: %w", err)
	}
	return id, nil
}
