package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Store implements every tabular port over one database/sql handle.
// Queries are built with squirrel so the same code serves both dialects.
type Store struct {
	db     *sql.DB
	driver string
	sb     sq.StatementBuilderType
}

// Open connects to driver/dsn and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one writer; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// NewStore wraps db. driver selects the placeholder format.
func NewStore(db *sql.DB, driver string) *Store {
	format := sq.PlaceholderFormat(sq.Question)
	if driver == DriverPostgres {
		format = sq.Dollar
	}
	return &Store{
		db:     db,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(format),
	}
}

// Migrate creates any missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("store has no database")
	}

	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS chat_rows (
			` + idColumn + `,
			update_id TEXT NOT NULL DEFAULT '',
			chatroom_id TEXT NOT NULL DEFAULT '',
			chatroom_name TEXT NOT NULL DEFAULT '',
			message_id TEXT NOT NULL DEFAULT '',
			sender_handle TEXT NOT NULL DEFAULT '',
			message_text TEXT NOT NULL DEFAULT '',
			status_date TEXT NOT NULL DEFAULT '',
			computed_hash TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			file_name TEXT PRIMARY KEY,
			file_url TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			date_processed TEXT NOT NULL DEFAULT '',
			last_processed_line INTEGER NOT NULL DEFAULT 0,
			total_lines INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS contributions (
			` + idColumn + `,
			contributor_name TEXT NOT NULL,
			project TEXT NOT NULL DEFAULT '',
			contribution_text TEXT NOT NULL,
			rubric TEXT NOT NULL DEFAULT '',
			amount_provisioned TEXT NOT NULL DEFAULT '',
			review_status TEXT NOT NULL,
			amount_issued TEXT NOT NULL DEFAULT '',
			status_date TEXT NOT NULL DEFAULT '',
			identity_resolved BOOLEAN NOT NULL DEFAULT FALSE,
			reported_by TEXT NOT NULL DEFAULT '',
			dedup_hash TEXT NOT NULL,
			resolve_attempts INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS contributions_dedup_hash_idx ON contributions (dedup_hash)`,
		`CREATE INDEX IF NOT EXISTS chat_rows_computed_hash_idx ON chat_rows (computed_hash)`,
		`CREATE TABLE IF NOT EXISTS ledger_history (
			contributor_name TEXT NOT NULL,
			contribution_text TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS identities (
			name TEXT NOT NULL,
			alias TEXT NOT NULL DEFAULT '',
			platform TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS transcript_stamps (
			dedup_hash TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			line INTEGER NOT NULL,
			stamped_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Store) queryRow(ctx context.Context, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.QueryRowContext(ctx, query, args...), nil
}
