// Package diag implements the C9 diagnostic store: a small sqlite-backed
// audit trail of heard stations and dispatched messages. It is purely
// diagnostic — the log ring (internal/logring) remains the authoritative
// telemetry history, and nothing in the core control flow reads this store
// back. It exists for offline inspection only.
package diag

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a single-writer sqlite handle, following the corpus's standard
// workaround for SQLITE_BUSY under concurrent writers: one open connection.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates (or attaches to) a sqlite database at path and ensures its
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.initialize(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS heard_stations (
	call TEXT PRIMARY KEY,
	first_heard TEXT,
	last_heard TEXT,
	digipeated_count INTEGER DEFAULT 0
);
`); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS dispatched_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	from_call TEXT,
	text TEXT,
	msgno TEXT,
	acked_at TEXT
);
`); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS watchdog_resets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	thread TEXT,
	at TEXT
);
`); err != nil {
		return err
	}

	return nil
}

// MarkHeard records that call was heard at t, incrementing the digipeat
// counter when digipeated is true. It upserts on the station's call sign.
func (s *Store) MarkHeard(ctx context.Context, call string, t time.Time, digipeated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := t.UTC().Format(time.RFC3339)
	inc := 0
	if digipeated {
		inc = 1
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO heard_stations (call, first_heard, last_heard, digipeated_count)
VALUES (?, ?, ?, ?)
ON CONFLICT(call) DO UPDATE SET
	last_heard = excluded.last_heard,
	digipeated_count = heard_stations.digipeated_count + ?
`, call, ts, ts, inc, inc)
	return err
}

// RecordMessage logs an inbound message addressed to us, prior to acking.
func (s *Store) RecordMessage(ctx context.Context, fromCall, text, msgNo string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
INSERT INTO dispatched_messages (from_call, text, msgno, acked_at)
VALUES (?, ?, ?, NULL)
`, fromCall, text, msgNo)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MarkAcked stamps the acked_at time for a previously recorded message.
func (s *Store) MarkAcked(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE dispatched_messages SET acked_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id)
	return err
}

// RecordWatchdogReset logs a watchdog-triggered reset attributed to thread.
func (s *Store) RecordWatchdogReset(ctx context.Context, thread string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO watchdog_resets (thread, at) VALUES (?, ?)`,
		thread, at.UTC().Format(time.RFC3339))
	return err
}

// HeardStation is a read-model row of the heard_stations table, used by
// offline inspection tooling.
type HeardStation struct {
	Call            string
	FirstHeard      string
	LastHeard       string
	DigipeatedCount int
}

// ListHeard returns all known heard stations ordered by last_heard descending.
func (s *Store) ListHeard(ctx context.Context) ([]HeardStation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
SELECT call, first_heard, last_heard, digipeated_count
FROM heard_stations
ORDER BY last_heard DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HeardStation
	for rows.Next() {
		var h HeardStation
		if err := rows.Scan(&h.Call, &h.FirstHeard, &h.LastHeard, &h.DigipeatedCount); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
