// Package archive mirrors known gossip messages into an optional SQLite
// database for post-hoc inspection. It is purely observational: nothing in
// internal/gossip or internal/pull ever reads from it to make a protocol
// decision, preserving the durability non-goal from spec.md §1 — a crashed
// node loses its in-memory seen-set and known-messages exactly as before,
// the archive is a side mirror, not a recovery source.
package archive

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/rumormesh/rumornode/internal/domain"
)

// Store receives every known-message the gossip/pull engines record.
// Store must never block the caller on I/O errors; failures are logged and
// swallowed, the same policy spec.md §7 applies to send_error.
type Store interface {
	Store(msg domain.KnownMessage)
	Close() error
}

// Noop implements Store by discarding everything, used when --archive-db
// is unset.
type Noop struct{}

func (Noop) Store(domain.KnownMessage) {}
func (Noop) Close() error              { return nil }

// SQLite mirrors known messages into a single known_messages table.
type SQLite struct {
	db     *sql.DB
	onFail func(error)
}

// Open creates (if needed) the known_messages table at path and returns a
// Store backed by it. onFail is invoked, never fatally, for any write
// error — pass a no-op to fully silence archive failures.
func Open(path string, onFail func(error)) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS known_messages (
	msg_id              TEXT PRIMARY KEY,
	topic               TEXT NOT NULL,
	data                TEXT NOT NULL,
	origin_id           TEXT NOT NULL,
	origin_timestamp_ms INTEGER NOT NULL,
	first_seen_ms       INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create known_messages: %w", err)
	}
	if onFail == nil {
		onFail = func(error) {}
	}
	return &SQLite{db: db, onFail: onFail}, nil
}

// Store inserts or replaces msg. Errors are reported via onFail, never
// returned — the archive mirror must never perturb the protocol path.
func (s *SQLite) Store(msg domain.KnownMessage) {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO known_messages
		 (msg_id, topic, data, origin_id, origin_timestamp_ms, first_seen_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.MsgID, msg.Topic, msg.Data, msg.OriginID, msg.OriginTimestampMs, msg.FirstSeenMs,
	)
	if err != nil {
		s.onFail(fmt.Errorf("archive store %s: %w", msg.MsgID, err))
	}
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
