// Package sessions decides which conversation an owner is in and persists
// its messages. Every read goes through an explicit Cache and every write
// goes through an ordered background queue, so callers never wait on storage
// to show a reply.
package sessions

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/PabloGalante/assistant-chat/internal/domain"
	"github.com/PabloGalante/assistant-chat/internal/observability"
)

// DefaultQueueSize bounds the number of pending writes.
const DefaultQueueSize = 256

type Options struct {
	QueueSize int
	Clock     func() time.Time
	Logger    *slog.Logger
}

type Manager struct {
	sessions domain.SessionStore
	messages domain.MessageStore
	cache    *Cache
	now      func() time.Time
	log      *slog.Logger
	writes   *writer
}

// New starts the write queue. Call Close to drain it.
func New(sessionStore domain.SessionStore, messageStore domain.MessageStore, cache *Cache, opts Options) *Manager {
	if cache == nil {
		cache = NewCache()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = observability.Logger()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	return &Manager{
		sessions: sessionStore,
		messages: messageStore,
		cache:    cache,
		now:      opts.Clock,
		log:      opts.Logger.With("component", "sessions"),
		writes:   newWriter(opts.QueueSize),
	}
}

// Cache exposes the cache the manager reads through.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// NewTemporaryID returns a fresh memory-only session id.
func NewTemporaryID() domain.SessionID {
	return domain.SessionID(domain.TemporarySessionPrefix + ulid.Make().String())
}

// ResolveSession picks the session a new chat continues. Anonymous owners
// always get a temporary id; identified owners continue their most recently
// updated session or get a fresh one. It never fails: when the store cannot
// create a session the chat degrades to a temporary id.
func (m *Manager) ResolveSession(ctx context.Context, owner domain.OwnerIdentity) domain.SessionID {
	if owner.IsAnonymous() {
		return NewTemporaryID()
	}

	key := owner.Key()
	log := m.logger(ctx).With("owner", key)

	list := m.ListSessions(ctx, owner)
	if len(list) > 0 {
		return list[0].ID
	}

	now := m.now()
	session := &domain.Session{
		Owner:     key,
		Title:     domain.DefaultSessionTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.sessions.CreateSession(ctx, session); err != nil {
		id := NewTemporaryID()
		log.Error("failed to create session, continuing with temporary session", "error", err, "session_id", id)
		return id
	}
	m.cache.InvalidateSessions(key)

	log.Info("session created", "session_id", session.ID)
	return session.ID
}

// ListSessions returns the owner's sessions, most recently updated first.
// Read failures yield an empty list and are not cached.
func (m *Manager) ListSessions(ctx context.Context, owner domain.OwnerIdentity) []*domain.Session {
	if owner.IsAnonymous() {
		return []*domain.Session{}
	}

	key := owner.Key()
	if list, ok := m.cache.Sessions(key); ok {
		return list
	}

	st := m.cache.sessionsStamp(key)
	list, err := m.sessions.ListSessionsByOwner(ctx, key)
	if err != nil {
		m.logger(ctx).Error("failed to list sessions", "owner", key, "error", err)
		return []*domain.Session{}
	}
	if list == nil {
		list = []*domain.Session{}
	}
	m.cache.fillSessions(key, list, st)
	return list
}

// ListMessages returns the session's messages, oldest first. Temporary
// sessions never touch the store.
func (m *Manager) ListMessages(ctx context.Context, sessionID domain.SessionID) []*domain.Message {
	if sessionID.IsTemporary() {
		return []*domain.Message{}
	}

	if list, ok := m.cache.Messages(sessionID); ok {
		return list
	}

	st := m.cache.messagesStamp(sessionID)
	list, err := m.messages.ListMessagesBySession(ctx, sessionID)
	if err != nil {
		m.logger(ctx).Error("failed to list messages", "session_id", sessionID, "error", err)
		return []*domain.Message{}
	}
	if list == nil {
		list = []*domain.Message{}
	}
	m.cache.fillMessages(sessionID, list, st)
	return list
}

// AppendMessage queues a message for persistence and returns without waiting
// for storage. Writes are applied in call order. Failures are logged and never
// reach the caller. Messages for temporary sessions are dropped.
func (m *Manager) AppendMessage(ctx context.Context, sessionID domain.SessionID, owner domain.OwnerIdentity, content string, isUser bool) {
	if sessionID.IsTemporary() {
		return
	}

	role := domain.RoleAssistant
	if isUser {
		role = domain.RoleUser
	}
	msg := &domain.Message{
		ID:          domain.MessageID(uuid.NewString()),
		SessionID:   sessionID,
		Author:      role,
		Content:     content,
		CreatedAt:   m.now(),
		ContentType: "text",
	}
	key := owner.Key()

	job := writeJob{
		ctx: context.WithoutCancel(ctx),
		write: func(ctx context.Context) {
			m.persist(ctx, key, msg)
		},
	}
	if err := m.writes.enqueue(ctx, job); err != nil {
		m.logger(ctx).Error("message dropped", "session_id", sessionID, "message_id", msg.ID, "error", err)
	}
}

func (m *Manager) persist(ctx context.Context, owner domain.UserID, msg *domain.Message) {
	log := m.logger(ctx).With("session_id", msg.SessionID, "message_id", msg.ID)

	if err := m.messages.AppendMessage(ctx, msg); err != nil {
		log.Error("failed to save message", "error", err)
		return
	}
	m.cache.InvalidateMessages(msg.SessionID)

	if err := m.sessions.TouchSession(ctx, msg.SessionID, msg.CreatedAt); err != nil {
		log.Warn("failed to update session timestamp", "error", err)
	}
	if owner != "" {
		m.cache.InvalidateSessions(owner)
	}

	log.Debug("message saved")
}

// Flush waits until every write queued before the call has been applied.
func (m *Manager) Flush(ctx context.Context) error {
	return m.writes.flush(ctx)
}

// Close applies pending writes and stops the queue. Later appends are dropped.
func (m *Manager) Close() {
	m.writes.close()
}

// GetSession reads the session record directly from the store.
func (m *Manager) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	if id.IsTemporary() {
		return nil, domain.ErrSessionNotFound
	}
	return m.sessions.GetSession(ctx, id)
}

// RenameSession changes the title. Every session list is invalidated since
// the manager does not track which owner the session belongs to.
func (m *Manager) RenameSession(ctx context.Context, id domain.SessionID, title string) error {
	if err := m.sessions.RenameSession(ctx, id, title); err != nil {
		m.logger(ctx).Error("failed to rename session", "session_id", id, "error", err)
		return err
	}
	m.cache.ClearSessions()
	return nil
}

// DeleteSession removes the session and its messages.
func (m *Manager) DeleteSession(ctx context.Context, id domain.SessionID) error {
	if err := m.sessions.DeleteSession(ctx, id); err != nil {
		m.logger(ctx).Error("failed to delete session", "session_id", id, "error", err)
		return err
	}
	m.cache.InvalidateMessages(id)
	m.cache.ClearSessions()
	return nil
}

func (m *Manager) logger(ctx context.Context) *slog.Logger {
	if id := observability.RequestID(ctx); id != "" {
		return m.log.With("request_id", id)
	}
	return m.log
}
