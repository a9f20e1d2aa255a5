package domain

import (
	"strings"
	"time"
)

type SessionID string
type UserID string
type MessageID string

// TemporarySessionPrefix marks session ids that only live in memory.
const TemporarySessionPrefix = "temp_"

// IsTemporary reports whether the id belongs to a memory-only session.
// Temporary ids must never reach a SessionStore or MessageStore.
func (id SessionID) IsTemporary() bool {
	return strings.HasPrefix(string(id), TemporarySessionPrefix)
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Timestamp = time.Time
