// Package history provides the SQLite-backed round/link-event journal: a
// durable record of QSPN round transitions and radar link events, kept
// for diagnostics and for the status server's recent-activity view.
package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/teranos/netsukuku/errors"
	"github.com/teranos/netsukuku/logger"
)

const (
	// sqliteJournalMode enables concurrent reads during writes.
	sqliteJournalMode = "WAL"
	// sqliteBusyTimeoutMS bounds how long a write waits for a lock before
	// returning SQLITE_BUSY.
	sqliteBusyTimeoutMS = 5000
)

const schema = `
CREATE TABLE IF NOT EXISTS round_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	level      INTEGER NOT NULL,
	qspn_id    INTEGER NOT NULL,
	phase      TEXT NOT NULL,
	occurred_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_round_events_level ON round_events(level, occurred_at);

CREATE TABLE IF NOT EXISTS link_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	neighbor    INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	rtt_micros  INTEGER NOT NULL,
	occurred_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_link_events_neighbor ON link_events(neighbor, occurred_at);
`

// Store wraps a SQLite connection journaling round and link events.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a SQLite database at path, enables WAL
// mode and a busy timeout, and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create history directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open history database %s", path)
	}

	if _, err := db.Exec("PRAGMA journal_mode = " + sqliteJournalMode); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable WAL journal mode")
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set busy timeout")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply history schema")
	}

	logger.Logger.Debugw("history store opened", "path", path)
	return &Store{db: db}, nil
}

// OpenInMemory opens an in-memory history store, for tests and ephemeral
// runs that don't need a persisted journal.
func OpenInMemory() (*Store, error) {
	return Open("file::memory:?cache=shared")
}

func (s *Store) Close() error { return s.db.Close() }

// RecordRound appends one round-transition entry.
func (s *Store) RecordRound(level int, qspnID uint32, phase string, at time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO round_events (level, qspn_id, phase, occurred_at) VALUES (?, ?, ?, ?)",
		level, qspnID, phase, at.UTC().Format(time.RFC3339Nano),
	)
	return errors.Wrap(err, "record round event")
}

// RecordLinkEvent appends one radar link-transition entry.
func (s *Store) RecordLinkEvent(neighbor uint16, kind string, rttMicros uint32, at time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO link_events (neighbor, kind, rtt_micros, occurred_at) VALUES (?, ?, ?, ?)",
		neighbor, kind, rttMicros, at.UTC().Format(time.RFC3339Nano),
	)
	return errors.Wrap(err, "record link event")
}

// RoundEvent is one journaled round transition.
type RoundEvent struct {
	Level      int
	QSPNID     uint32
	Phase      string
	OccurredAt time.Time
}

// RecentRounds returns the most recent round events, newest first, bounded
// by limit.
func (s *Store) RecentRounds(limit int) ([]RoundEvent, error) {
	rows, err := s.db.Query(
		"SELECT level, qspn_id, phase, occurred_at FROM round_events ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query recent rounds")
	}
	defer rows.Close()

	var out []RoundEvent
	for rows.Next() {
		var e RoundEvent
		var occurredAt string
		if err := rows.Scan(&e.Level, &e.QSPNID, &e.Phase, &occurredAt); err != nil {
			return nil, errors.Wrap(err, "scan round event")
		}
		e.OccurredAt, _ = time.Parse(time.RFC3339Nano, occurredAt)
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "iterate recent rounds")
}
