// Package store keeps chat transcripts in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrAmbiguous = errors.New("session id prefix matches more than one session")
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	provider   TEXT NOT NULL,
	model      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	provider   TEXT NOT NULL DEFAULT '',
	model      TEXT NOT NULL DEFAULT '',
	partial    INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
`

// Session is a stored conversation header.
type Session struct {
	ID        string
	Provider  string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  int
	Title     string // first user message
}

// Message is one stored turn.
type Message struct {
	Role      string
	Content   string
	Provider  string
	Model     string
	Partial   bool // the reply was cut short by an interrupt or failure
	CreatedAt time.Time
}

// Store is a transcript database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession creates the session or updates its model and timestamp.
func (s *Store) SaveSession(ctx context.Context, sess Session) error {
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, provider, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			model = excluded.model,
			updated_at = excluded.updated_at`,
		sess.ID, sess.Provider, sess.Model, sess.CreatedAt.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// AppendMessage adds a turn to a saved session.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, role, content, provider, model, partial, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, msg.Role, msg.Content, msg.Provider, msg.Model, msg.Partial, msg.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("append message to %s: %w", sessionID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`,
		msg.CreatedAt.UnixMilli(), sessionID); err != nil {
		return fmt.Errorf("touch session %s: %w", sessionID, err)
	}
	return tx.Commit()
}

// ClearMessages deletes the turns of a session, keeping its header.
func (s *Store) ClearMessages(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear session %s: %w", sessionID, err)
	}
	return nil
}

const sessionColumns = `
	SELECT s.id, s.provider, s.model, s.created_at, s.updated_at,
		(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
		COALESCE((SELECT m.content FROM messages m
			WHERE m.session_id = s.id AND m.role = 'user' ORDER BY m.id LIMIT 1), '')
	FROM sessions s`

// Sessions lists sessions, most recently used first. limit <= 0 lists all.
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	query := sessionColumns + ` ORDER BY s.updated_at DESC, s.id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.querySessions(ctx, query, args...)
}

// FindSession returns the session whose id is or starts with prefix.
func (s *Store) FindSession(ctx context.Context, prefix string) (Session, error) {
	if prefix == "" {
		return Session{}, ErrNotFound
	}
	found, err := s.querySessions(ctx, sessionColumns+` WHERE s.id = ? OR s.id LIKE ? ESCAPE '\' ORDER BY s.id LIMIT 2`,
		prefix, escapeLike(prefix)+"%")
	if err != nil {
		return Session{}, err
	}
	switch {
	case len(found) == 0:
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case len(found) > 1 && found[0].ID != prefix:
		return Session{}, fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
	}
	return found[0], nil
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var created, updated int64
		if err := rows.Scan(&sess.ID, &sess.Provider, &sess.Model, &created, &updated, &sess.Messages, &sess.Title); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.CreatedAt = time.UnixMilli(created)
		sess.UpdatedAt = time.UnixMilli(updated)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Messages returns the turns of a session in order.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, provider, model, partial, created_at
		FROM messages WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var msg Message
		var created int64
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Provider, &msg.Model, &msg.Partial, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt = time.UnixMilli(created)
		out = append(out, msg)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			b = append(b, '\\')
		}
		b = append(b, s[i])
	}
	return string(b)
}
