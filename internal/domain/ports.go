package domain

import (
	"context"
	"time"
)

// Attachment is a file uploaded alongside a chat message.
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// CompletionRequest is what the core sends to the completion backend.
type CompletionRequest struct {
	Message     string
	Attachments []Attachment
	History     []*Message // most recent turns, oldest first
}

// CompletionClient defines how the core talks to the language-model backend.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// SessionStore defines session persistence.
type SessionStore interface {
	// CreateSession inserts the session. The store assigns session.ID when it is empty.
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
	// ListSessionsByOwner returns the owner's sessions, most recently updated first.
	ListSessionsByOwner(ctx context.Context, owner UserID) ([]*Session, error)
	TouchSession(ctx context.Context, id SessionID, at time.Time) error
	RenameSession(ctx context.Context, id SessionID, title string) error
	// DeleteSession removes the session together with its messages.
	DeleteSession(ctx context.Context, id SessionID) error
}

// MessageStore defines message persistence.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *Message) error
	// ListMessagesBySession returns messages oldest first.
	ListMessagesBySession(ctx context.Context, sessionID SessionID) ([]*Message, error)
}

// Speaker is the text-to-speech collaborator.
// Stop may return ErrSpeechInterrupted, which callers treat as expected.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop() error
}

// Transcriber is the speech-to-text collaborator. Listen returns the single
// final transcript of one listening session.
type Transcriber interface {
	Listen(ctx context.Context) (string, error)
}

// Account is a local pseudo-auth account.
type Account struct {
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// AccountStore persists local accounts and their login tokens.
type AccountStore interface {
	// CreateAccount fails with ErrAccountExists when the username is taken.
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, username string) (*Account, error)
	SaveToken(ctx context.Context, token, username string) error
	// LookupToken returns the username the token was issued to.
	LookupToken(ctx context.Context, token string) (string, error)
	DeleteToken(ctx context.Context, token string) error
}
