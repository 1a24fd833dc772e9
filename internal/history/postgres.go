package history

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx used by PgStore.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS profiler_uploads (
    id                UUID PRIMARY KEY,
    session_id        TEXT NOT NULL,
    pdf_name          TEXT NOT NULL,
    pdf_size          BIGINT NOT NULL,
    csv_name          TEXT NOT NULL,
    csv_size          BIGINT NOT NULL,
    outcome           TEXT NOT NULL,
    error             TEXT,
    rules_length      INTEGER NOT NULL DEFAULT 0,
    validation_length INTEGER NOT NULL DEFAULT 0,
    ip_address        INET,
    user_agent        TEXT,
    started_at        TIMESTAMPTZ NOT NULL,
    duration_ms       BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS profiler_uploads_started_at_idx ON profiler_uploads (started_at DESC);
`

const insertSQL = `
INSERT INTO profiler_uploads (
    id, session_id, pdf_name, pdf_size, csv_name, csv_size, outcome, error,
    rules_length, validation_length, ip_address, user_agent, started_at, duration_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const recentSQL = `
SELECT id, session_id, pdf_name, pdf_size, csv_name, csv_size, outcome, error,
       rules_length, validation_length, ip_address, user_agent, started_at, duration_ms
FROM profiler_uploads
ORDER BY started_at DESC
LIMIT $1`

// PgStore keeps entries in the profiler_uploads table.
type PgStore struct {
	db DBTX
}

// NewPgStore creates the store and ensures its table exists.
func NewPgStore(ctx context.Context, db DBTX) (*PgStore, error) {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &PgStore{db: db}, nil
}

// Record inserts an entry. A missing ID is generated.
func (s *PgStore) Record(ctx context.Context, e Entry) error {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		id = uuid.New()
	}

	_, err = s.db.Exec(ctx, insertSQL,
		pgtype.UUID{Bytes: id, Valid: true},
		e.SessionID,
		e.PDFName, e.PDFSize,
		e.CSVName, e.CSVSize,
		e.Outcome,
		pgtype.Text{String: e.Error, Valid: e.Error != ""},
		e.RulesLength, e.ValidationLength,
		parseIP(e.IPAddress),
		pgtype.Text{String: e.UserAgent, Valid: e.UserAgent != ""},
		e.StartedAt,
		e.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *PgStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.Query(ctx, recentSQL, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanEntry(rows pgx.Rows) (*Entry, error) {
	var (
		id         pgtype.UUID
		errText    pgtype.Text
		ipAddress  *netip.Addr
		userAgent  pgtype.Text
		startedAt  pgtype.Timestamptz
		durationMS int64
		e          Entry
	)

	err := rows.Scan(
		&id, &e.SessionID,
		&e.PDFName, &e.PDFSize, &e.CSVName, &e.CSVSize,
		&e.Outcome, &errText,
		&e.RulesLength, &e.ValidationLength,
		&ipAddress, &userAgent, &startedAt, &durationMS,
	)
	if err != nil {
		return nil, fmt.Errorf("scan history entry: %w", err)
	}

	if id.Valid {
		e.ID = uuid.UUID(id.Bytes).String()
	}
	if errText.Valid {
		e.Error = errText.String
	}
	if ipAddress != nil {
		e.IPAddress = ipAddress.String()
	}
	if userAgent.Valid {
		e.UserAgent = userAgent.String
	}
	e.StartedAt = startedAt.Time
	e.Duration = time.Duration(durationMS) * time.Millisecond

	return &e, nil
}

// parseIP returns nil for an empty or unparseable address so the column stays NULL.
func parseIP(s string) *netip.Addr {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return nil
	}
	return &addr
}
