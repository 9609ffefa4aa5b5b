package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"ContributionScorer/internal/domain"
	"ContributionScorer/internal/ports"
)

var (
	_ ports.ContributionLedger = (*Store)(nil)
	_ ports.EntryCommitter     = (*Store)(nil)
	_ ports.HashLookup         = (*Store)(nil)
	_ ports.HistoryReader      = (*Store)(nil)
	_ ports.IdentityReader     = (*Store)(nil)
)

var contributionColumns = []string{
	"id", "contributor_name", "project", "contribution_text", "rubric",
	"amount_provisioned", "review_status", "amount_issued", "status_date",
	"identity_resolved", "reported_by", "dedup_hash", "resolve_attempts",
}

// AppendContribution inserts rec and returns its row id.
func (s *Store) AppendContribution(ctx context.Context, rec domain.ContributionRecord) (int64, error) {
	row, err := s.queryRow(ctx, s.insertContribution(rec).Suffix("RETURNING id"))
	if err != nil {
		return 0, err
	}

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("append contribution: %w", err)
	}
	return id, nil
}

// CommitEntry appends the commit's records and stamps its source in one
// transaction. A failure leaves neither records nor stamp behind.
func (s *Store) CommitEntry(ctx context.Context, c domain.EntryCommit) (err error) {
	if s.db == nil {
		return fmt.Errorf("store has no database")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, rec := range c.Records {
		if _, err = s.insertContribution(rec).RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("append contribution: %w", err)
		}
	}

	switch {
	case c.RowID != 0:
		_, err = s.stampRow(c.RowID, c.Hash).RunWith(tx).ExecContext(ctx)
	case c.FileName != "":
		_, err = s.insertStamp(domain.Stamp{DedupHash: c.Hash, FileName: c.FileName, Line: c.Line}).
			RunWith(tx).ExecContext(ctx)
	}
	if err != nil {
		return fmt.Errorf("stamp %s: %w", c.Hash, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit entry: %w", err)
	}
	return nil
}

func (s *Store) insertContribution(rec domain.ContributionRecord) sq.InsertBuilder {
	return s.sb.Insert("contributions").
		Columns(contributionColumns[1:]...).
		Values(rec.ContributorIdentity, rec.Project, rec.ContributionText, rec.Rubric,
			rec.AmountProvisioned, string(rec.ReviewStatus), rec.AmountIssued, rec.StatusDate,
			rec.IdentityResolved, rec.ReportedBy, rec.DedupHash, rec.ResolveAttempts)
}

// UnresolvedPending returns pending rows whose contributor is not resolved.
func (s *Store) UnresolvedPending(ctx context.Context, limit int) ([]domain.ContributionRecord, error) {
	q := s.sb.Select(contributionColumns...).
		From("contributions").
		Where(sq.Eq{"identity_resolved": false, "review_status": string(domain.ReviewPending)}).
		OrderBy("id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query unresolved: %w", err)
	}
	defer rows.Close()

	var result []domain.ContributionRecord
	for rows.Next() {
		var (
			rec    domain.ContributionRecord
			status string
		)
		if err := rows.Scan(&rec.ID, &rec.ContributorIdentity, &rec.Project, &rec.ContributionText,
			&rec.Rubric, &rec.AmountProvisioned, &status, &rec.AmountIssued, &rec.StatusDate,
			&rec.IdentityResolved, &rec.ReportedBy, &rec.DedupHash, &rec.ResolveAttempts); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		rec.ReviewStatus = domain.ReviewStatus(status)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// MarkResolved rewrites the contributor with its canonical identity.
func (s *Store) MarkResolved(ctx context.Context, id int64, identity string) error {
	_, err := s.exec(ctx, s.sb.Update("contributions").
		Set("contributor_name", identity).
		Set("identity_resolved", true).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("mark resolved %d: %w", id, err)
	}
	return nil
}

// MarkResolveFailure stores the attempt count and, possibly, a terminal status.
func (s *Store) MarkResolveFailure(ctx context.Context, id int64, attempts int, status domain.ReviewStatus) error {
	_, err := s.exec(ctx, s.sb.Update("contributions").
		Set("resolve_attempts", attempts).
		Set("review_status", string(status)).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("mark resolve failure %d: %w", id, err)
	}
	return nil
}

// HashSeen reports whether hash is on any contribution, chat row or transcript stamp.
func (s *Store) HashSeen(ctx context.Context, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}

	for _, src := range []struct{ table, column string }{
		{"contributions", "dedup_hash"},
		{"chat_rows", "computed_hash"},
		{"transcript_stamps", "dedup_hash"},
	} {
		row, err := s.queryRow(ctx, s.sb.Select("1").
			From(src.table).
			Where(sq.Eq{src.column: hash}).
			Limit(1))
		if err != nil {
			return false, err
		}

		var one int
		err = row.Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("lookup %s: %w", src.table, err)
		}
		return true, nil
	}
	return false, nil
}

// LoadHistory reads the whole historical ledger.
func (s *Store) LoadHistory(ctx context.Context) ([]domain.HistoryEntry, error) {
	rows, err := s.query(ctx, s.sb.Select("contributor_name", "contribution_text").From("ledger_history"))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var h domain.HistoryEntry
		if err := rows.Scan(&h.Contributor, &h.Text); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// LoadIdentities groups alias rows under their canonical name.
func (s *Store) LoadIdentities(ctx context.Context) ([]domain.Identity, error) {
	rows, err := s.query(ctx, s.sb.Select("name", "alias", "platform").
		From("identities").
		OrderBy("name"))
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var (
		result []domain.Identity
		index  = map[string]int{}
	)
	for rows.Next() {
		var name, alias, platform string
		if err := rows.Scan(&name, &alias, &platform); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		i, ok := index[name]
		if !ok {
			i = len(result)
			index[name] = i
			result = append(result, domain.Identity{Name: name})
		}
		if alias != "" {
			result[i].Aliases = append(result[i].Aliases, domain.Alias{Handle: alias, Platform: platform})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}
