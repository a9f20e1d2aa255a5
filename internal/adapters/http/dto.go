package httpadapter

import (
	"time"

	"github.com/PabloGalante/assistant-chat/internal/app/conversation"
	"github.com/PabloGalante/assistant-chat/internal/domain"
	"github.com/PabloGalante/assistant-chat/internal/render"
	"github.com/PabloGalante/assistant-chat/internal/segment"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type resolveResponse struct {
	SessionID string            `json:"session_id"`
	Temporary bool              `json:"temporary"`
	Messages  []messageResponse `json:"messages"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Role      string      `json:"role"`
	IsUser    bool        `json:"is_user"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	View      render.View `json:"view"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage messageResponse   `json:"user_message"`
	Reply       messageResponse   `json:"reply"`
	Segments    []segment.Segment `json:"segments"`
	Unreachable bool              `json:"unreachable"`
}

type renameRequest struct {
	Title string `json:"title"`
}

type dayResponse struct {
	Day     string          `json:"day"` // YYYY-MM-DD
	Entries []entryResponse `json:"entries"`
}

type entryResponse struct {
	SessionID    string          `json:"session_id"`
	SessionTitle string          `json:"session_title"`
	Message      messageResponse `json:"message"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountResponse struct {
	Username string `json:"username"`
	Token    string `json:"token,omitempty"`
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:        string(s.ID),
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toSessionsResponse(list []*domain.Session) []sessionResponse {
	out := make([]sessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toSessionResponse(s))
	}
	return out
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:        string(m.ID),
		SessionID: string(m.SessionID),
		Role:      string(m.Author),
		IsUser:    m.IsUser(),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		View:      render.Message(m.Content, m.IsUser()),
	}
}

func toMessagesResponse(msgs []*domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func toHistoryResponse(days []conversation.DayHistory) []dayResponse {
	out := make([]dayResponse, 0, len(days))
	for _, d := range days {
		entries := make([]entryResponse, 0, len(d.Entries))
		for _, e := range d.Entries {
			entries = append(entries, entryResponse{
				SessionID:    string(e.SessionID),
				SessionTitle: e.SessionTitle,
				Message:      toMessageResponse(e.Message),
			})
		}
		out = append(out, dayResponse{Day: d.Day.Format(time.DateOnly), Entries: entries})
	}
	return out
}
