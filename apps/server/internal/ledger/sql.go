package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"hometable/apps/server/internal/store"
)

// SQLService stores events in ledger_event_stream on the store's own
// connection pool.
type SQLService struct {
	db      *sql.DB
	dialect string
}

func NewSQLService(ctx context.Context, db *sql.DB, dialect string) (*SQLService, error) {
	s := &SQLService{db: db, dialect: dialect}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLService) ensureSchema(ctx context.Context) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS ledger_event_stream (
    event_id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    seq BIGINT NOT NULL,
    hand_number INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    actor TEXT NOT NULL,
    envelope_b64 TEXT NOT NULL,
    server_ts_ms BIGINT NOT NULL,
    UNIQUE (table_id, seq)
)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_event_stream_table ON ledger_event_stream(table_id, seq)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure ledger schema: %w", err)
		}
	}
	return nil
}

// Close is a no-op: the pool belongs to the store.
func (s *SQLService) Close() error { return nil }

func (s *SQLService) Append(ctx context.Context, ev Event) error {
	envelope, err := Encode(ev)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, store.Rebind(s.dialect, `
INSERT INTO ledger_event_stream (
    event_id, table_id, seq, hand_number, event_type, actor, envelope_b64, server_ts_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (table_id, seq) DO NOTHING
`), ev.ID, ev.TableID, ev.Seq, ev.HandNumber, ev.Type, ev.Actor, envelope, ev.At.UTC().UnixMilli())
	return err
}

func (s *SQLService) Events(ctx context.Context, tableID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx, store.Rebind(s.dialect, `
SELECT envelope_b64
FROM ledger_event_stream
WHERE table_id = ?
ORDER BY seq ASC
LIMIT ?
`), tableID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var envelope string
		if err := rows.Scan(&envelope); err != nil {
			return nil, err
		}
		ev, err := Decode(envelope)
		if err != nil {
			return nil, fmt.Errorf("decode ledger event of table %s: %w", tableID, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
