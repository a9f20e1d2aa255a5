package domain

// Message represents one turn of a conversation (user or assistant).
// Messages are immutable once created.
type Message struct {
	ID        MessageID
	SessionID SessionID
	Author    Role
	Content   string
	CreatedAt Timestamp

	// Metadata holds additional information about the message
	ContentType string // e.g., "text", "voice"
	Metadata    map[string]any
}

// IsUser reports whether the message was written by the user.
func (m *Message) IsUser() bool {
	return m.Author == RoleUser
}

// Session is one conversation thread owned by a user.
type Session struct {
	ID        SessionID
	Owner     UserID
	Title     string
	CreatedAt Timestamp
	UpdatedAt Timestamp
}

// DefaultSessionTitle is used when a session is created implicitly.
const DefaultSessionTitle = "New Chat"
