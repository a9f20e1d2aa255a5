// Package sqlite persists sessions and messages in a local SQLite file
// using the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/PabloGalante/assistant-chat/internal/domain"
)

type Store struct {
	db   *sql.DB
	path string
}

var (
	_ domain.SessionStore = (*Store)(nil)
	_ domain.MessageStore = (*Store)(nil)
)

// Open creates (or opens) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single connection keeps pragmas and writes consistent
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user ON chat_sessions(user_id, updated_at DESC);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		author TEXT NOT NULL,
		content TEXT NOT NULL,
		content_type TEXT NOT NULL DEFAULT 'text',
		metadata_json TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES chat_sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session ON chat_messages(session_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Session operations

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		session.ID = domain.SessionID(ulid.Make().String())
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(session.ID), string(session.Owner), session.Title,
		session.CreatedAt.UnixNano(), session.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite CreateSession: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions WHERE id = ?
	`, string(id))

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite GetSession: %w", err)
	}
	return sess, nil
}

func (s *Store) ListSessionsByOwner(ctx context.Context, owner domain.UserID) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions WHERE user_id = ? ORDER BY updated_at DESC, id DESC
	`, string(owner))
	if err != nil {
		return nil, fmt.Errorf("sqlite ListSessionsByOwner: %w", err)
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite ListSessionsByOwner scan: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) TouchSession(ctx context.Context, id domain.SessionID, at time.Time) error {
	return s.updateSession(ctx, "TouchSession",
		`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, at.UnixNano(), string(id))
}

func (s *Store) RenameSession(ctx context.Context, id domain.SessionID, title string) error {
	return s.updateSession(ctx, "RenameSession",
		`UPDATE chat_sessions SET title = ? WHERE id = ?`, title, string(id))
}

func (s *Store) DeleteSession(ctx context.Context, id domain.SessionID) error {
	return s.updateSession(ctx, "DeleteSession",
		`DELETE FROM chat_sessions WHERE id = ?`, string(id))
}

func (s *Store) updateSession(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite %s: %w", op, err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Message operations

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = domain.MessageID(uuid.NewString())
	}
	contentType := msg.ContentType
	if contentType == "" {
		contentType = "text"
	}

	var metadata sql.NullString
	if len(msg.Metadata) > 0 {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, author, content, content_type, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(msg.ID), string(msg.SessionID), string(msg.Author), msg.Content, contentType, metadata, msg.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite AppendMessage: %w", err)
	}
	return nil
}

func (s *Store) ListMessagesBySession(ctx context.Context, sessionID domain.SessionID) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, author, content, content_type, metadata_json, created_at
		FROM chat_messages WHERE session_id = ? ORDER BY created_at ASC, rowid ASC
	`, string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("sqlite ListMessagesBySession: %w", err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		var (
			m         domain.Message
			id, sid   string
			author    string
			metadata  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&id, &sid, &author, &m.Content, &m.ContentType, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite ListMessagesBySession scan: %w", err)
		}
		m.ID = domain.MessageID(id)
		m.SessionID = domain.SessionID(sid)
		m.Author = domain.Role(author)
		m.CreatedAt = time.Unix(0, createdAt).UTC()
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &m.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", id, err)
			}
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*domain.Session, error) {
	var (
		id, owner, title     string
		createdAt, updatedAt int64
	)
	if err := r.Scan(&id, &owner, &title, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return &domain.Session{
		ID:        domain.SessionID(id),
		Owner:     domain.UserID(owner),
		Title:     title,
		CreatedAt: time.Unix(0, createdAt).UTC(),
		UpdatedAt: time.Unix(0, updatedAt).UTC(),
	}, nil
}
