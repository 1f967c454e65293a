package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"hometable/holdem"
)

// SQLStore keeps one JSON document per record. The tables row carries a
// version that every committing Update bumps; a stale version means another
// writer got there first and the commit fails with holdem.ErrConflict.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

func OpenSQLite(dbPath string) (*SQLStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return newSQLStore(ctx, db, DriverSQLite)
}

func OpenPostgres(dsn string) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return newSQLStore(ctx, db, DriverPostgres)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect string) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &SQLStore{db: db, dialect: dialect}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS holdem_tables (
    id TEXT PRIMARY KEY,
    version BIGINT NOT NULL,
    doc TEXT NOT NULL,
    created_at_ms BIGINT NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS holdem_players (
    table_id TEXT NOT NULL,
    player_id TEXT NOT NULL,
    seat INTEGER NOT NULL,
    doc TEXT NOT NULL,
    PRIMARY KEY (table_id, player_id)
)`,
		`
CREATE TABLE IF NOT EXISTS holdem_hands (
    table_id TEXT NOT NULL,
    number INTEGER NOT NULL,
    doc TEXT NOT NULL,
    PRIMARY KEY (table_id, number)
)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// DB exposes the handle so other components can share the connection pool.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Dialect() string { return s.dialect }

func (s *SQLStore) rebind(query string) string { return Rebind(s.dialect, query) }

// Rebind rewrites ? placeholders to $n for postgres.
func Rebind(dialect, query string) string {
	if dialect != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func (s *SQLStore) CreateTable(ctx context.Context, table *holdem.Table, host *holdem.Player) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	doc, err := json.Marshal(table)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`
INSERT INTO holdem_tables (id, version, doc, created_at_ms)
VALUES (?, 1, ?, ?)
`), table.ID, string(doc), table.CreatedAt.UTC().UnixMilli()); err != nil {
		if s.isUniqueViolation(err) {
			return holdem.Conflict("table id %s already taken", table.ID)
		}
		return err
	}
	if host != nil {
		if err := s.upsertPlayer(ctx, tx, table.ID, host); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) TableExists(ctx context.Context, tableID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM holdem_tables WHERE id = ?`), tableID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLStore) Update(ctx context.Context, tableID string, fn func(Tx) error) error {
	return s.run(ctx, tableID, false, fn)
}

func (s *SQLStore) View(ctx context.Context, tableID string, fn func(Tx) error) error {
	return s.run(ctx, tableID, true, fn)
}

func (s *SQLStore) run(ctx context.Context, tableID string, readOnly bool, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stx := &sqlTx{ctx: ctx, s: s, tx: tx, tableID: tableID, readOnly: readOnly, st: newStaged()}
	// Resolve the table first so a missing id fails before fn runs.
	if _, err := stx.Table(); err != nil {
		return err
	}
	if err := fn(stx); err != nil {
		return err
	}
	if stx.roErr != nil {
		return stx.roErr
	}
	if readOnly || stx.st.empty() {
		return nil
	}
	if err := stx.flush(); err != nil {
		return err
	}
	return tx.Commit()
}

type sqlTx struct {
	ctx      context.Context
	s        *SQLStore
	tx       *sql.Tx
	tableID  string
	version  int64
	readOnly bool
	roErr    error
	st       *staged
}

func (t *sqlTx) Table() (*holdem.Table, error) {
	var doc string
	err := t.tx.QueryRowContext(t.ctx, t.s.rebind(`
SELECT version, doc FROM holdem_tables WHERE id = ?
`), t.tableID).Scan(&t.version, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, holdem.NotFound("table %s not found", t.tableID)
	}
	if err != nil {
		return nil, err
	}
	var table holdem.Table
	if err := json.Unmarshal([]byte(doc), &table); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", t.tableID, err)
	}
	return &table, nil
}

func (t *sqlTx) Players() ([]*holdem.Player, error) {
	rows, err := t.tx.QueryContext(t.ctx, t.s.rebind(`
SELECT doc FROM holdem_players WHERE table_id = ? ORDER BY seat
`), t.tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*holdem.Player
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var p holdem.Player
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("decode player of table %s: %w", t.tableID, err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (t *sqlTx) Hand(n int) (*holdem.Hand, error) {
	var doc string
	err := t.tx.QueryRowContext(t.ctx, t.s.rebind(`
SELECT doc FROM holdem_hands WHERE table_id = ? AND number = ?
`), t.tableID, n).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, holdem.NotFound("hand %d of table %s not found", n, t.tableID)
	}
	if err != nil {
		return nil, err
	}
	return decodeHand(doc)
}

func (t *sqlTx) Hands() ([]*holdem.Hand, error) {
	rows, err := t.tx.QueryContext(t.ctx, t.s.rebind(`
SELECT doc FROM holdem_hands WHERE table_id = ? ORDER BY number
`), t.tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*holdem.Hand
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		h, err := decodeHand(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func decodeHand(doc string) (*holdem.Hand, error) {
	var h holdem.Hand
	if err := json.Unmarshal([]byte(doc), &h); err != nil {
		return nil, fmt.Errorf("decode hand: %w", err)
	}
	return &h, nil
}

func (t *sqlTx) writable() bool {
	if t.readOnly {
		t.roErr = holdem.IllegalState("write inside a read-only transaction")
		return false
	}
	return true
}

func (t *sqlTx) PutTable(table *holdem.Table) {
	if t.writable() {
		t.st.putTable(table)
	}
}

func (t *sqlTx) PutPlayer(p *holdem.Player) {
	if t.writable() {
		t.st.putPlayer(p)
	}
}

func (t *sqlTx) DeletePlayer(id string) {
	if t.writable() {
		t.st.deletePlayer(id)
	}
}

func (t *sqlTx) PutHand(h *holdem.Hand) {
	if t.writable() {
		t.st.putHand(h)
	}
}

// flush writes the staged records after claiming the next table version.
func (t *sqlTx) flush() error {
	var (
		res sql.Result
		err error
	)
	if t.st.table != nil {
		doc, merr := json.Marshal(t.st.table)
		if merr != nil {
			return merr
		}
		res, err = t.tx.ExecContext(t.ctx, t.s.rebind(`
UPDATE holdem_tables SET version = version + 1, doc = ? WHERE id = ? AND version = ?
`), string(doc), t.tableID, t.version)
	} else {
		res, err = t.tx.ExecContext(t.ctx, t.s.rebind(`
UPDATE holdem_tables SET version = version + 1 WHERE id = ? AND version = ?
`), t.tableID, t.version)
	}
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return holdem.Conflict("table %s changed concurrently (version %d)", t.tableID, t.version)
	}

	for id := range t.st.deletes {
		if _, err := t.tx.ExecContext(t.ctx, t.s.rebind(`
DELETE FROM holdem_players WHERE table_id = ? AND player_id = ?
`), t.tableID, id); err != nil {
			return err
		}
	}
	for _, p := range t.st.players {
		if err := t.s.upsertPlayer(t.ctx, t.tx, t.tableID, p); err != nil {
			return err
		}
	}
	for _, h := range t.st.hands {
		doc, err := json.Marshal(h)
		if err != nil {
			return err
		}
		if _, err := t.tx.ExecContext(t.ctx, t.s.rebind(`
INSERT INTO holdem_hands (table_id, number, doc)
VALUES (?, ?, ?)
ON CONFLICT (table_id, number) DO UPDATE SET doc = excluded.doc
`), t.tableID, h.Number, string(doc)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) upsertPlayer(ctx context.Context, tx *sql.Tx, tableID string, p *holdem.Player) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, s.rebind(`
INSERT INTO holdem_players (table_id, player_id, seat, doc)
VALUES (?, ?, ?, ?)
ON CONFLICT (table_id, player_id) DO UPDATE SET seat = excluded.seat, doc = excluded.doc
`), tableID, p.ID, p.Seat, string(doc))
	return err
}
