package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS bulk_upload_history (
    id          UUID PRIMARY KEY,
    session_id  TEXT NOT NULL,
    seller_id   TEXT NOT NULL,
    file_name   TEXT NOT NULL DEFAULT '',
    total_rows  INTEGER NOT NULL DEFAULT 0,
    valid_rows  INTEGER NOT NULL DEFAULT 0,
    uploaded    INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0,
    outcome     TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    ip_address  TEXT NOT NULL DEFAULT '',
    user_agent  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS bulk_upload_history_seller_created_idx
    ON bulk_upload_history (seller_id, created_at DESC);
`

const insertEntrySQL = `
INSERT INTO bulk_upload_history
    (id, session_id, seller_id, file_name, total_rows, valid_rows, uploaded, failed,
     outcome, error, ip_address, user_agent, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const listEntriesSQL = `
SELECT id, session_id, seller_id, file_name, total_rows, valid_rows, uploaded, failed,
       outcome, error, ip_address, user_agent, created_at
FROM bulk_upload_history
WHERE seller_id = $1
ORDER BY created_at DESC
LIMIT $2`

const purgeEntriesSQL = `DELETE FROM bulk_upload_history WHERE created_at < $1`

// PostgresStore keeps history in the bulk_upload_history table.
type PostgresStore struct {
	db  DBTX
	now func() time.Time
}

// NewPostgresStore creates a store backed by db.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// EnsureSchema creates the history table and index if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) (Entry, error) {
	e, err := prepare(e, s.now())
	if err != nil {
		return Entry{}, err
	}

	_, err = s.db.Exec(ctx, insertEntrySQL,
		e.ID, e.SessionID, e.SellerID, e.FileName, e.TotalRows, e.ValidRows, e.Uploaded, e.Failed,
		e.Outcome, e.Error, e.IPAddress, e.UserAgent, e.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert history entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context, sellerID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, listEntriesSQL, sellerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(
			&e.ID, &e.SessionID, &e.SellerID, &e.FileName, &e.TotalRows, &e.ValidRows, &e.Uploaded, &e.Failed,
			&e.Outcome, &e.Error, &e.IPAddress, &e.UserAgent, &e.CreatedAt,
		)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, purgeEntriesSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge history: %w", err)
	}
	return tag.RowsAffected(), nil
}
