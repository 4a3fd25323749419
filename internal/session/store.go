package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"scry/internal/logging"
)

// Store is the SQLite-backed event log.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload    TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, seq);
`

// Open opens (creating if needed) the session database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("session: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.SessionDebug("set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.SessionDebug("set journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.SessionDebug("set synchronous=NORMAL: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: initialize schema: %w", err)
	}

	logging.SessionDebug("session store opened at %s", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append writes one event. payload is marshaled to JSON; nil becomes {}.
func (s *Store) Append(sessionID, eventType string, payload any) error {
	raw := []byte("{}")
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("session: marshal %s payload: %w", eventType, err)
		}
	}

	_, err := s.db.Exec(
		"INSERT INTO events (session_id, event_type, payload, created_at) VALUES (?, ?, ?, ?)",
		sessionID, eventType, string(raw), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("session: append %s: %w", eventType, err)
	}
	logging.SessionDebug("event appended: session=%s type=%s", sessionID, eventType)
	return nil
}

// Events returns a session's events in append order.
func (s *Store) Events(sessionID string) ([]Event, error) {
	rows, err := s.db.Query(
		"SELECT seq, session_id, event_type, payload, created_at FROM events WHERE session_id = ? ORDER BY seq",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("session: query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev      Event
			payload string
			created string
		)
		if err := rows.Scan(&ev.Seq, &ev.SessionID, &ev.Type, &payload, &created); err != nil {
			return nil, fmt.Errorf("session: scan event: %w", err)
		}
		ev.Payload = json.RawMessage(payload)
		ev.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("session: parse event time: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Load replays a session's log into its current state. Returns
// (nil, nil) when the session has no events.
func (s *Store) Load(sessionID string) (*State, error) {
	events, err := s.Events(sessionID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return Replay(events)
}

// Info summarizes one session for listings.
type Info struct {
	ID        string
	Topic     string
	Phase     string
	Events    int
	StartedAt time.Time
	UpdatedAt time.Time
}

// List summarizes every session, most recently updated first.
func (s *Store) List() ([]Info, error) {
	rows, err := s.db.Query(
		"SELECT DISTINCT session_id FROM events ORDER BY session_id",
	)
	if err != nil {
		return nil, fmt.Errorf("session: list sessions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("session: scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(ids))
	for _, id := range ids {
		st, err := s.Load(id)
		if err != nil {
			logging.Session("skipping unreplayable session %s: %v", id, err)
			continue
		}
		events, err := s.Events(id)
		if err != nil {
			return nil, err
		}
		infos = append(infos, Info{
			ID:        id,
			Topic:     st.Topic,
			Phase:     st.Phase,
			Events:    len(events),
			StartedAt: st.StartedAt,
			UpdatedAt: st.UpdatedAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].UpdatedAt.After(infos[j].UpdatedAt) })
	return infos, nil
}

// Delete removes a session's events. Deleting an unknown session is not an
// error.
func (s *Store) Delete(sessionID string) error {
	res, err := s.db.Exec("DELETE FROM events WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		logging.Session("deleted session %s (%d events)", sessionID, n)
	}
	return nil
}
