// Package memory is a non-persistent implementation of the session and
// message stores, suitable for development and tests.
package memory

import (
	"sync"

	"github.com/PabloGalante/assistant-chat/internal/domain"
)

// Store implements domain.SessionStore and domain.MessageStore.
type Store struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session
	messages map[domain.SessionID][]*domain.Message
}

var (
	_ domain.SessionStore = (*Store)(nil)
	_ domain.MessageStore = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		sessions: make(map[domain.SessionID]*domain.Session),
		messages: make(map[domain.SessionID][]*domain.Message),
	}
}
