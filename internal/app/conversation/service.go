package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/assistant-chat/internal/app/sessions"
	"github.com/PabloGalante/assistant-chat/internal/domain"
	"github.com/PabloGalante/assistant-chat/internal/observability"
	"github.com/PabloGalante/assistant-chat/internal/segment"
)

const (
	// FallbackReply replaces the assistant reply whenever the completion
	// backend fails. The backend's own error text is never shown.
	FallbackReply = "I'm sorry, I'm having trouble connecting right now. Please try again."

	DefaultGreeting     = "Hello! I'm your assistant. I'm here to help you with anything you need. How can I assist you today?"
	DefaultHistoryLimit = 20
	// DefaultIdleTimeout is how long an untouched chat stays in memory.
	DefaultIdleTimeout = 30 * time.Minute

	greetingKey = "greeting"
)

var ErrEmptyMessage = errors.New("message is empty")

type Options struct {
	Greeting     string
	HistoryLimit int
	IdleTimeout  time.Duration
	// VoiceOutput speaks every assistant reply through the Speaker.
	VoiceOutput bool
	Speaker     domain.Speaker
	Transcriber domain.Transcriber
	Clock       func() time.Time
	Logger      *slog.Logger
}

// Service keeps the open chats of the process. The Speaker is process-wide:
// stopping speech for one chat stops it for every chat.
type Service struct {
	completion  domain.CompletionClient
	sessions    *sessions.Manager
	speaker     domain.Speaker
	transcriber domain.Transcriber

	greeting     string
	historyLimit int
	idleTimeout  time.Duration
	voiceOutput  bool
	now          func() time.Time
	log          *slog.Logger

	mu    sync.Mutex
	chats map[domain.SessionID]*chat
}

// chat is the in-memory transcript of one open conversation. It is what the
// user sees, whether or not the writes behind it reached storage.
type chat struct {
	owner      domain.OwnerIdentity
	transcript []*domain.Message
	sending    bool
	lastUsed   time.Time
}

func NewService(completion domain.CompletionClient, manager *sessions.Manager, opts Options) *Service {
	if opts.Greeting == "" {
		opts.Greeting = DefaultGreeting
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = observability.Logger()
	}

	return &Service{
		completion:   completion,
		sessions:     manager,
		speaker:      opts.Speaker,
		transcriber:  opts.Transcriber,
		greeting:     opts.Greeting,
		historyLimit: opts.HistoryLimit,
		idleTimeout:  opts.IdleTimeout,
		voiceOutput:  opts.VoiceOutput,
		now:          opts.Clock,
		log:          opts.Logger.With("component", "conversation"),
		chats:        make(map[domain.SessionID]*chat),
	}
}

type Chat struct {
	SessionID domain.SessionID
	Temporary bool
	Messages  []*domain.Message
}

// StartChat resolves the owner's session and opens its transcript. An empty
// session starts with the greeting, which is shown but never persisted.
func (s *Service) StartChat(ctx context.Context, owner domain.OwnerIdentity) (*Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if n := s.evictIdle(); n > 0 {
		s.logger(ctx).Debug("evicted idle chats", "count", n)
	}

	id := s.sessions.ResolveSession(ctx, owner)
	log := s.logger(ctx).With("session_id", id, "owner_kind", owner.Kind.String())

	c, err := s.open(ctx, id, owner, true)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	msgs := copyMessages(c.transcript)
	s.mu.Unlock()

	log.Info("chat started", "message_count", len(msgs))

	return &Chat{
		SessionID: id,
		Temporary: id.IsTemporary(),
		Messages:  msgs,
	}, nil
}

// open returns the chat for id, seeding it from storage the first time.
// Temporary chats exist only once StartChat issued them; any other
// temporary id is domain.ErrSessionNotFound.
func (s *Service) open(ctx context.Context, id domain.SessionID, owner domain.OwnerIdentity, issue bool) (*chat, error) {
	s.mu.Lock()
	c, ok := s.chats[id]
	if ok {
		c.lastUsed = s.now()
	}
	s.mu.Unlock()
	if ok {
		return c, nil
	}
	if id.IsTemporary() && !issue {
		return nil, domain.ErrSessionNotFound
	}

	transcript := s.sessions.ListMessages(ctx, id)
	if len(transcript) == 0 {
		transcript = []*domain.Message{s.greetingMessage(id)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chats[id]; ok {
		c.lastUsed = s.now()
		return c, nil
	}
	c = &chat{owner: owner, transcript: transcript, lastUsed: s.now()}
	s.chats[id] = c
	return c, nil
}

// evictIdle drops chats nobody touched within the idle timeout. A chat with
// a send in flight is kept.
func (s *Service) evictIdle() int {
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, c := range s.chats {
		if !c.sending && c.lastUsed.Before(cutoff) {
			delete(s.chats, id)
			n++
		}
	}
	return n
}

// OwnsTemporary reports whether id is an open temporary chat issued to owner.
func (s *Service) OwnsTemporary(id domain.SessionID, owner domain.OwnerIdentity) bool {
	if !id.IsTemporary() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[id]
	return ok && c.owner.Kind == owner.Kind && c.owner.Key() == owner.Key()
}

func (s *Service) greetingMessage(id domain.SessionID) *domain.Message {
	return &domain.Message{
		ID:          domain.MessageID(uuid.NewString()),
		SessionID:   id,
		Author:      domain.RoleAssistant,
		Content:     s.greeting,
		CreatedAt:   s.now(),
		ContentType: "text",
		Metadata:    map[string]any{greetingKey: true},
	}
}

type SendInput struct {
	SessionID   domain.SessionID
	Owner       domain.OwnerIdentity
	Text        string
	Attachments []domain.Attachment
}

type SendOutput struct {
	UserMessage *domain.Message
	Reply       *domain.Message
	Segments    []segment.Segment
	// Unreachable is set when Reply is the fallback apology.
	Unreachable bool
}

// Send runs one turn. Only one send per session may be in flight; a second
// one is rejected with domain.ErrSendInFlight before the backend is called.
func (s *Service) Send(ctx context.Context, in SendInput) (*SendOutput, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c, err := s.open(ctx, in.SessionID, in.Owner, false)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if c.sending {
		s.mu.Unlock()
		return nil, domain.ErrSendInFlight
	}
	c.sending = true
	history := s.recentHistory(c.transcript)
	userMsg := &domain.Message{
		ID:          domain.MessageID(uuid.NewString()),
		SessionID:   in.SessionID,
		Author:      domain.RoleUser,
		Content:     text,
		CreatedAt:   s.now(),
		ContentType: "text",
	}
	c.transcript = append(c.transcript, userMsg)
	owner := c.owner
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		c.sending = false
		s.mu.Unlock()
	}()

	log := s.logger(ctx).With("session_id", in.SessionID, "owner_kind", owner.Kind.String())
	log.Info("sending message", "length", len(text), "attachments", len(in.Attachments))

	s.stopSpeaking(log)
	s.sessions.AppendMessage(ctx, in.SessionID, owner, text, true)

	out := &SendOutput{UserMessage: userMsg}

	replyText, err := s.completion.Complete(ctx, domain.CompletionRequest{
		Message:     text,
		Attachments: in.Attachments,
		History:     history,
	})
	if err != nil {
		log.Error("completion failed", "error", err)
		replyText = FallbackReply
		out.Unreachable = true
	}

	reply := &domain.Message{
		ID:          domain.MessageID(uuid.NewString()),
		SessionID:   in.SessionID,
		Author:      domain.RoleAssistant,
		Content:     replyText,
		CreatedAt:   s.now(),
		ContentType: "text",
	}

	s.mu.Lock()
	c.transcript = append(c.transcript, reply)
	c.lastUsed = s.now()
	s.mu.Unlock()

	if !out.Unreachable {
		s.sessions.AppendMessage(ctx, in.SessionID, owner, replyText, false)
		if s.voiceOutput && s.speaker != nil {
			if err := s.speaker.Speak(ctx, replyText); err != nil && !errors.Is(err, domain.ErrSpeechInterrupted) {
				log.Warn("speak failed", "error", err)
			}
		}
	}

	out.Reply = reply
	out.Segments = segment.Split(replyText)

	log.Info("send completed", "unreachable", out.Unreachable, "segments", len(out.Segments))
	return out, nil
}

type VoiceInput struct {
	SessionID domain.SessionID
	Owner     domain.OwnerIdentity
}

// SendVoice listens for one utterance and sends its transcript.
func (s *Service) SendVoice(ctx context.Context, in VoiceInput) (*SendOutput, error) {
	if s.transcriber == nil {
		return nil, domain.ErrVoiceUnavailable
	}

	text, err := s.transcriber.Listen(ctx)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	return s.Send(ctx, SendInput{SessionID: in.SessionID, Owner: in.Owner, Text: text})
}

// Transcript returns what the user currently sees for the session.
func (s *Service) Transcript(id domain.SessionID) ([]*domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[id]
	if !ok {
		return nil, false
	}
	return copyMessages(c.transcript), true
}

// EndChat stops any speech and forgets the in-memory transcript. The
// speaker is shared, so speech started by another chat stops too.
func (s *Service) EndChat(ctx context.Context, id domain.SessionID) {
	s.stopSpeaking(s.logger(ctx).With("session_id", id))

	s.mu.Lock()
	delete(s.chats, id)
	s.mu.Unlock()
}

// recentHistory returns the last turns sent along as context. The greeting
// is display-only. Caller holds s.mu.
func (s *Service) recentHistory(transcript []*domain.Message) []*domain.Message {
	var out []*domain.Message
	for _, m := range transcript {
		if isGreeting(m) {
			continue
		}
		out = append(out, m)
	}
	if len(out) > s.historyLimit {
		out = out[len(out)-s.historyLimit:]
	}
	return copyMessages(out)
}

func (s *Service) stopSpeaking(log *slog.Logger) {
	if s.speaker == nil {
		return
	}
	if err := s.speaker.Stop(); err != nil && !errors.Is(err, domain.ErrSpeechInterrupted) {
		log.Warn("stop speaking failed", "error", err)
	}
}

func (s *Service) logger(ctx context.Context) *slog.Logger {
	if id := observability.RequestID(ctx); id != "" {
		return s.log.With("request_id", id)
	}
	return s.log
}

func isGreeting(m *domain.Message) bool {
	v, _ := m.Metadata[greetingKey].(bool)
	return v
}

func copyMessages(in []*domain.Message) []*domain.Message {
	out := make([]*domain.Message, len(in))
	for i, m := range in {
		cp := *m
		out[i] = &cp
	}
	return out
}
