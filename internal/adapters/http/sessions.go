package httpadapter

import (
	"net/http"
	"strings"

	"github.com/PabloGalante/assistant-chat/internal/app/conversation"
	"github.com/PabloGalante/assistant-chat/internal/domain"
)

// /sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	owner := s.resolver.FromRequest(r)
	list := s.sessions.ListSessions(r.Context(), owner)

	writeJSON(w, http.StatusOK, map[string]any{"sessions": toSessionsResponse(list)})
}

// /sessions/resolve
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	owner := s.resolver.FromRequest(r)
	chat, err := s.conv.StartChat(r.Context(), owner)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		SessionID: string(chat.SessionID),
		Temporary: chat.Temporary,
		Messages:  toMessagesResponse(chat.Messages),
	})
}

// authorize reports domain.ErrSessionNotFound unless owner may use id.
// A temporary id must be one the conversation service issued to owner and
// still holds open.
func (s *Server) authorize(r *http.Request, owner domain.OwnerIdentity, id domain.SessionID) error {
	if id.IsTemporary() {
		if s.conv.OwnsTemporary(id, owner) {
			return nil
		}
		return domain.ErrSessionNotFound
	}
	if owner.IsAnonymous() {
		return domain.ErrSessionNotFound
	}

	sess, err := s.sessions.GetSession(r.Context(), id)
	if err != nil {
		return err
	}
	if sess.Owner != owner.Key() {
		return domain.ErrSessionNotFound
	}
	return nil
}

// GET /sessions/{id}/messages
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	owner := s.resolver.FromRequest(r)
	if err := s.authorize(r, owner, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	msgs, ok := s.conv.Transcript(id)
	if !ok {
		msgs = s.sessions.ListMessages(r.Context(), id)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": string(id),
		"messages":   toMessagesResponse(msgs),
	})
}

// POST /sessions/{id}/messages
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	owner := s.resolver.FromRequest(r)
	if err := s.authorize(r, owner, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	text, attachments, err := s.readMessage(w, r, "text")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	out, err := s.conv.Send(r.Context(), conversation.SendInput{
		SessionID:   id,
		Owner:       owner,
		Text:        text,
		Attachments: attachments,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSendResponse(out))
}

// POST /sessions/{id}/voice
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	owner := s.resolver.FromRequest(r)
	if err := s.authorize(r, owner, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	out, err := s.conv.SendVoice(r.Context(), conversation.VoiceInput{SessionID: id, Owner: owner})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSendResponse(out))
}

// PATCH /sessions/{id}
func (s *Server) handleRename(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	owner := s.resolver.FromRequest(r)
	if err := s.authorize(r, owner, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if id.IsTemporary() {
		badRequest(w, "temporary sessions cannot be renamed")
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		badRequest(w, "title is required")
		return
	}

	if err := s.sessions.RenameSession(r.Context(), id, title); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DELETE /sessions/{id}
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	owner := s.resolver.FromRequest(r)
	if err := s.authorize(r, owner, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	// a temporary chat has nothing stored; ending it is the whole delete
	if !id.IsTemporary() {
		if err := s.sessions.DeleteSession(r.Context(), id); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	s.conv.EndChat(r.Context(), id)

	w.WriteHeader(http.StatusNoContent)
}

// GET /history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	owner := s.resolver.FromRequest(r)
	days, err := s.conv.History(r.Context(), owner)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"days": toHistoryResponse(days)})
}

func toSendResponse(out *conversation.SendOutput) sendMessageResponse {
	return sendMessageResponse{
		UserMessage: toMessageResponse(out.UserMessage),
		Reply:       toMessageResponse(out.Reply),
		Segments:    out.Segments,
		Unreachable: out.Unreachable,
	}
}
