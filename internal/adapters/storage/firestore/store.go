package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/assistant-chat/internal/domain"
)

type Store struct {
	client *firestore.Client
}

var (
	_ domain.SessionStore = (*Store)(nil)
	_ domain.MessageStore = (*Store)(nil)
)

// NewStore creates a Firestore store.
// Uses the project passed (ASSISTANT_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("chat_sessions")
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) messagesCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("messages")
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type sessionDoc struct {
	UserID    string    `firestore:"user_id"`
	Title     string    `firestore:"title"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type messageDoc struct {
	SessionID   string         `firestore:"session_id"`
	Author      string         `firestore:"author"`
	Content     string         `firestore:"content"`
	ContentType string         `firestore:"content_type"`
	Metadata    map[string]any `firestore:"metadata"`
	CreatedAt   time.Time      `firestore:"created_at"`
}

func (d sessionDoc) toDomain(id string) *domain.Session {
	return &domain.Session{
		ID:        domain.SessionID(id),
		Owner:     domain.UserID(d.UserID),
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	ref := s.sessionsCol().NewDoc()
	if session.ID != "" {
		ref = s.sessionDoc(session.ID)
	}

	doc := sessionDoc{
		UserID:    string(session.Owner),
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}

	if _, err := ref.Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	session.ID = domain.SessionID(ref.ID)
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

// ListSessionsByOwner needs a composite index on (user_id, updated_at desc).
func (s *Store) ListSessionsByOwner(ctx context.Context, owner domain.UserID) ([]*domain.Session, error) {
	q := s.sessionsCol().Where("user_id", "==", string(owner)).OrderBy("updated_at", firestore.Desc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Session
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore ListSessionsByOwner: %w", err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode sessionDoc: %w", err)
		}
		out = append(out, doc.toDomain(snap.Ref.ID))
	}
	return out, nil
}

func (s *Store) TouchSession(ctx context.Context, id domain.SessionID, at time.Time) error {
	return s.updateSession(ctx, "TouchSession", id, firestore.Update{Path: "updated_at", Value: at})
}

func (s *Store) RenameSession(ctx context.Context, id domain.SessionID, title string) error {
	return s.updateSession(ctx, "RenameSession", id, firestore.Update{Path: "title", Value: title})
}

func (s *Store) updateSession(ctx context.Context, op string, id domain.SessionID, u firestore.Update) error {
	if _, err := s.sessionDoc(id).Update(ctx, []firestore.Update{u}); err != nil {
		if notFound(err) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("firestore %s: %w", op, err)
	}
	return nil
}

// DeleteSession removes the messages subcollection first; Firestore does not
// cascade deletes to subcollections.
func (s *Store) DeleteSession(ctx context.Context, id domain.SessionID) error {
	iter := s.messagesCol(id).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("firestore DeleteSession list messages: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("firestore DeleteSession message %s: %w", snap.Ref.ID, err)
		}
	}

	if _, err := s.sessionDoc(id).Delete(ctx, firestore.Exists); err != nil {
		if notFound(err) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("firestore DeleteSession: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	if _, err := s.sessionDoc(msg.SessionID).Get(ctx); err != nil {
		if notFound(err) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	if msg.ID == "" {
		msg.ID = domain.MessageID(uuid.NewString())
	}

	doc := messageDoc{
		SessionID:   string(msg.SessionID),
		Author:      string(msg.Author),
		Content:     msg.Content,
		ContentType: msg.ContentType,
		Metadata:    msg.Metadata,
		CreatedAt:   msg.CreatedAt,
	}

	if _, err := s.messagesCol(msg.SessionID).Doc(string(msg.ID)).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	return nil
}

func (s *Store) ListMessagesBySession(ctx context.Context, sessionID domain.SessionID) ([]*domain.Message, error) {
	iter := s.messagesCol(sessionID).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore ListMessagesBySession: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}

		out = append(out, &domain.Message{
			ID:          domain.MessageID(snap.Ref.ID),
			SessionID:   sessionID,
			Author:      domain.Role(doc.Author),
			Content:     doc.Content,
			ContentType: doc.ContentType,
			Metadata:    doc.Metadata,
			CreatedAt:   doc.CreatedAt,
		})
	}
	return out, nil
}
