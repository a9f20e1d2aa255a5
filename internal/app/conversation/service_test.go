package conversation_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/assistant-chat/internal/adapters/llm"
	"github.com/PabloGalante/assistant-chat/internal/adapters/storage/memory"
	"github.com/PabloGalante/assistant-chat/internal/app/conversation"
	"github.com/PabloGalante/assistant-chat/internal/app/sessions"
	"github.com/PabloGalante/assistant-chat/internal/domain"
	"github.com/PabloGalante/assistant-chat/internal/segment"
)

var quiet = slog.New(slog.NewJSONHandler(io.Discard, nil))

// blockingCompletion holds every call until release is closed.
type blockingCompletion struct {
	calls   atomic.Int64
	started chan struct{}
	release chan struct{}
	reply   string
}

func (b *blockingCompletion) Complete(ctx context.Context, _ domain.CompletionRequest) (string, error) {
	b.calls.Add(1)
	b.started <- struct{}{}
	select {
	case <-b.release:
		return b.reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type failingCompletion struct{}

func (failingCompletion) Complete(context.Context, domain.CompletionRequest) (string, error) {
	return "", errors.New("upstream returned 502: bad gateway")
}

type recordingCompletion struct {
	mu       sync.Mutex
	requests []domain.CompletionRequest
	reply    string
}

func (r *recordingCompletion) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return r.reply, nil
}

type fakeSpeaker struct {
	mu      sync.Mutex
	spoken  []string
	stops   int
	stopErr error
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeSpeaker) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.stopErr
}

type fakeTranscriber struct{ text string }

func (f fakeTranscriber) Listen(context.Context) (string, error) {
	return f.text, nil
}

func newFixture(t *testing.T, completion domain.CompletionClient, opts conversation.Options) (*conversation.Service, *sessions.Manager, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	mgr := sessions.New(store, store, sessions.NewCache(), sessions.Options{Logger: quiet})
	t.Cleanup(mgr.Close)
	opts.Logger = quiet
	return conversation.NewService(completion, mgr, opts), mgr, store
}

func TestStartChatAndSend(t *testing.T) {
	ctx := context.Background()
	svc, mgr, _ := newFixture(t, llm.NewMockLLM(), conversation.Options{})
	owner := domain.LocalAccount("u1")

	chat, err := svc.StartChat(ctx, owner)
	require.NoError(t, err)
	require.False(t, chat.Temporary)
	require.Len(t, chat.Messages, 1)
	assert.Equal(t, conversation.DefaultGreeting, chat.Messages[0].Content)

	out, err := svc.Send(ctx, conversation.SendInput{SessionID: chat.SessionID, Owner: owner, Text: "  Hello there  "})
	require.NoError(t, err)
	assert.False(t, out.Unreachable)
	assert.Equal(t, "Hello there", out.UserMessage.Content)
	assert.NotEmpty(t, out.Reply.Content)
	assert.NotEmpty(t, out.Segments)

	transcript, ok := svc.Transcript(chat.SessionID)
	require.True(t, ok)
	require.Len(t, transcript, 3)
	assert.Equal(t, domain.RoleUser, transcript[1].Author)
	assert.Equal(t, domain.RoleAssistant, transcript[2].Author)

	// the greeting is display-only
	require.NoError(t, mgr.Flush(ctx))
	stored := mgr.ListMessages(ctx, chat.SessionID)
	require.Len(t, stored, 2)
	assert.Equal(t, "Hello there", stored[0].Content)
	assert.Equal(t, out.Reply.Content, stored[1].Content)
}

func TestStartChat_ResumesStoredTranscript(t *testing.T) {
	ctx := context.Background()
	svc, mgr, _ := newFixture(t, llm.NewMockLLM(), conversation.Options{})
	owner := domain.ProvidedAccount("p-1", "p@example.com")

	first, err := svc.StartChat(ctx, owner)
	require.NoError(t, err)
	_, err = svc.Send(ctx, conversation.SendInput{SessionID: first.SessionID, Owner: owner, Text: "remember me"})
	require.NoError(t, err)
	require.NoError(t, mgr.Flush(ctx))
	svc.EndChat(ctx, first.SessionID)

	second, err := svc.StartChat(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	require.Len(t, second.Messages, 2)
	assert.Equal(t, "remember me", second.Messages[0].Content)
}

func TestSend_AnonymousStaysInMemory(t *testing.T) {
	ctx := context.Background()
	svc, mgr, store := newFixture(t, llm.NewMockLLM(), conversation.Options{})

	chat, err := svc.StartChat(ctx, domain.Anonymous())
	require.NoError(t, err)
	require.True(t, chat.Temporary)

	_, err = svc.Send(ctx, conversation.SendInput{SessionID: chat.SessionID, Text: "hi"})
	require.NoError(t, err)
	require.NoError(t, mgr.Flush(ctx))

	transcript, _ := svc.Transcript(chat.SessionID)
	assert.Len(t, transcript, 3)
	msgs, err := store.ListMessagesBySession(ctx, chat.SessionID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSend_RejectsBlankText(t *testing.T) {
	svc, _, _ := newFixture(t, llm.NewMockLLM(), conversation.Options{})

	_, err := svc.Send(context.Background(), conversation.SendInput{SessionID: "temp_x", Text: " \n\t"})
	assert.ErrorIs(t, err, conversation.ErrEmptyMessage)
}

func TestSend_SecondSendWhileInFlightIsRejected(t *testing.T) {
	ctx := context.Background()
	completion := &blockingCompletion{
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
		reply:   "done",
	}
	svc, _, _ := newFixture(t, completion, conversation.Options{})
	chat, err := svc.StartChat(ctx, domain.Anonymous())
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := svc.Send(ctx, conversation.SendInput{SessionID: chat.SessionID, Text: "first"})
		errc <- err
	}()

	select {
	case <-completion.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first send never reached the backend")
	}

	_, err = svc.Send(ctx, conversation.SendInput{SessionID: chat.SessionID, Text: "second"})
	assert.ErrorIs(t, err, domain.ErrSendInFlight)
	assert.Equal(t, int64(1), completion.calls.Load())

	close(completion.release)
	require.NoError(t, <-errc)

	// the guard is released once the first send completes
	_, err = svc.Send(ctx, conversation.SendInput{SessionID: chat.SessionID, Text: "third"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), completion.calls.Load())
}

func TestSend_BackendFailureUsesFallback(t *testing.T) {
	ctx := context.Background()
	svc, mgr, _ := newFixture(t, failingCompletion{}, conversation.Options{})
	owner := domain.LocalAccount("u1")
	chat, err := svc.StartChat(ctx, owner)
	require.NoError(t, err)

	out, err := svc.Send(ctx, conversation.SendInput{SessionID: chat.SessionID, Owner: owner, Text: "hello"})
	require.NoError(t, err)
	assert.True(t, out.Unreachable)
	assert.Equal(t, conversation.FallbackReply, out.Reply.Content)
	assert.NotContains(t, out.Reply.Content, "502")
	assert.Equal(t, []segment.Segment{{Kind: segment.KindProse, Text: conversation.FallbackReply}}, out.Segments)

	require.NoError(t, mgr.Flush(ctx))
	stored := mgr.ListMessages(ctx, chat.SessionID)
	require.Len(t, stored, 1)
	assert.Equal(t, "hello", stored[0].Content)
}

func TestSend_SegmentsCodeReplies(t *testing.T) {
	ctx := context.Background()
	completion := &recordingCompletion{reply: "before\n```js\nconst x=1;\n```\nafter"}
	svc, _, _ := newFixture(t, completion, conversation.Options{})
	chat, err := svc.StartChat(ctx, domain.Anonymous())
	require.NoError(t, err)

	out, err := svc.Send(ctx, conversation.SendInput{SessionID: chat.SessionID, Text: "code please"})
	require.NoError(t, err)
	require.Len(t, out.Segments, 3)
	assert.Equal(t, segment.KindCode, out.Segments[1].Kind)
	assert.Equal(t, "js", out.Segments[1].Language)
}

func TestSend_HistoryExcludesGreetingAndIsBounded(t *testing.T) {
	ctx := context.Background()
	completion := &recordingCompletion{reply: "ok"}
	svc, _, _ := newFixture(t, completion, conversation.Options{HistoryLimit: 3})
	chat, err := svc.StartChat(ctx, domain.Anonymous())
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.Send(ctx, conversation.SendInput{SessionID: chat.SessionID, Text: text})
		require.NoError(t, err)
	}

	require.Len(t, completion.requests, 3)
	assert.Empty(t, completion.requests[0].History)

	last := completion.requests[2]
	assert.Equal(t, "three", last.Message)
	require.Len(t, last.History, 3)
	assert.Equal(t, "ok", last.History[0].Content)
	assert.Equal(t, "two", last.History[1].Content)
	assert.Equal(t, "ok", last.History[2].Content)
}

func TestSend_VoiceOutput(t *testing.T) {
	ctx := context.Background()
	speaker := &fakeSpeaker{stopErr: domain.ErrSpeechInterrupted}
	svc, _, _ := newFixture(t, &recordingCompletion{reply: "spoken reply"}, conversation.Options{
		VoiceOutput: true,
		Speaker:     speaker,
	})

	chat, err := svc.StartChat(ctx, domain.Anonymous())
	require.NoError(t, err)

	_, err = svc.Send(ctx, conversation.SendInput{SessionID: chat.SessionID, Text: "talk to me"})
	require.NoError(t, err)
	svc.EndChat(ctx, chat.SessionID)

	assert.Equal(t, []string{"spoken reply"}, speaker.spoken)
	assert.Equal(t, 2, speaker.stops)
	_, ok := svc.Transcript(chat.SessionID)
	assert.False(t, ok)
}

func TestSendVoice(t *testing.T) {
	ctx := context.Background()

	svc, _, _ := newFixture(t, llm.NewMockLLM(), conversation.Options{})
	_, err := svc.SendVoice(ctx, conversation.VoiceInput{SessionID: "temp_1"})
	assert.ErrorIs(t, err, domain.ErrVoiceUnavailable)

	completion := &recordingCompletion{reply: "heard you"}
	svc, _, _ = newFixture(t, completion, conversation.Options{Transcriber: fakeTranscriber{text: "what time is it"}})
	chat, err := svc.StartChat(ctx, domain.Anonymous())
	require.NoError(t, err)
	out, err := svc.SendVoice(ctx, conversation.VoiceInput{SessionID: chat.SessionID})
	require.NoError(t, err)
	assert.Equal(t, "what time is it", out.UserMessage.Content)
	assert.Equal(t, "heard you", out.Reply.Content)
}

func TestHistory_GroupsByDay(t *testing.T) {
	ctx := context.Background()
	day1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)

	store := memory.NewStore()
	owner := domain.LocalAccount("u1")
	sess := &domain.Session{Owner: owner.Key(), Title: "Trip", CreatedAt: day1, UpdatedAt: day2}
	require.NoError(t, store.CreateSession(ctx, sess))
	for _, m := range []*domain.Message{
		{SessionID: sess.ID, Author: domain.RoleUser, Content: "a", CreatedAt: day1},
		{SessionID: sess.ID, Author: domain.RoleAssistant, Content: "b", CreatedAt: day1.Add(time.Minute)},
		{SessionID: sess.ID, Author: domain.RoleUser, Content: "c", CreatedAt: day2},
	} {
		require.NoError(t, store.AppendMessage(ctx, m))
	}

	mgr := sessions.New(store, store, nil, sessions.Options{Logger: quiet})
	t.Cleanup(mgr.Close)
	svc := conversation.NewService(llm.NewMockLLM(), mgr, conversation.Options{Logger: quiet})

	days, err := svc.History(ctx, owner)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), days[0].Day)
	require.Len(t, days[0].Entries, 1)
	assert.Equal(t, "c", days[0].Entries[0].Message.Content)
	require.Len(t, days[1].Entries, 2)
	assert.Equal(t, "a", days[1].Entries[0].Message.Content)
	assert.Equal(t, "Trip", days[1].Entries[0].SessionTitle)

	anon, err := svc.History(ctx, domain.Anonymous())
	require.NoError(t, err)
	assert.Empty(t, anon)
}

func TestGreetingIsConfigurable(t *testing.T) {
	svc, _, _ := newFixture(t, llm.NewMockLLM(), conversation.Options{Greeting: "Hi!"})

	chat, err := svc.StartChat(context.Background(), domain.Anonymous())
	require.NoError(t, err)
	require.Len(t, chat.Messages, 1)
	assert.True(t, strings.HasPrefix(chat.Messages[0].Content, "Hi!"))
}

func TestSend_UnissuedTemporaryIDIsUnknown(t *testing.T) {
	ctx := context.Background()
	completion := &recordingCompletion{reply: "ok"}
	svc, _, _ := newFixture(t, completion, conversation.Options{})

	_, err := svc.Send(ctx, conversation.SendInput{SessionID: "temp_made_up", Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Empty(t, completion.requests)
	_, ok := svc.Transcript("temp_made_up")
	assert.False(t, ok)

	chat, err := svc.StartChat(ctx, domain.Anonymous())
	require.NoError(t, err)
	assert.True(t, svc.OwnsTemporary(chat.SessionID, domain.Anonymous()))
	assert.False(t, svc.OwnsTemporary(chat.SessionID, domain.LocalAccount("u1")))

	svc.EndChat(ctx, chat.SessionID)
	assert.False(t, svc.OwnsTemporary(chat.SessionID, domain.Anonymous()))
	_, err = svc.Send(ctx, conversation.SendInput{SessionID: chat.SessionID, Text: "still there?"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSend_AfterDeleteStartsFreshTranscript(t *testing.T) {
	ctx := context.Background()
	svc, mgr, _ := newFixture(t, llm.NewMockLLM(), conversation.Options{})
	owner := domain.LocalAccount("u1")

	chat, err := svc.StartChat(ctx, owner)
	require.NoError(t, err)
	_, err = svc.Send(ctx, conversation.SendInput{SessionID: chat.SessionID, Owner: owner, Text: "first life"})
	require.NoError(t, err)
	require.NoError(t, mgr.Flush(ctx))

	require.NoError(t, mgr.DeleteSession(ctx, chat.SessionID))
	svc.EndChat(ctx, chat.SessionID)

	_, err = svc.Send(ctx, conversation.SendInput{SessionID: chat.SessionID, Owner: owner, Text: "second life"})
	require.NoError(t, err)

	transcript, ok := svc.Transcript(chat.SessionID)
	require.True(t, ok)
	require.Len(t, transcript, 3)
	assert.Equal(t, conversation.DefaultGreeting, transcript[0].Content)
	assert.Equal(t, "second life", transcript[1].Content)
	for _, m := range transcript {
		assert.NotEqual(t, "first life", m.Content)
	}
}

func TestStartChat_EvictsIdleChats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, _, _ := newFixture(t, llm.NewMockLLM(), conversation.Options{
		IdleTimeout: time.Minute,
		Clock:       func() time.Time { return now },
	})

	stale, err := svc.StartChat(ctx, domain.Anonymous())
	require.NoError(t, err)
	now = now.Add(30 * time.Second)
	kept, err := svc.StartChat(ctx, domain.Anonymous())
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	_, err = svc.StartChat(ctx, domain.Anonymous())
	require.NoError(t, err)

	_, ok := svc.Transcript(stale.SessionID)
	assert.False(t, ok, "untouched for longer than the idle timeout")
	_, ok = svc.Transcript(kept.SessionID)
	assert.True(t, ok)
}

func TestSpeakerIsSharedAcrossChats(t *testing.T) {
	ctx := context.Background()
	speaker := &fakeSpeaker{}
	svc, _, _ := newFixture(t, &recordingCompletion{reply: "ok"}, conversation.Options{Speaker: speaker})

	first, err := svc.StartChat(ctx, domain.Anonymous())
	require.NoError(t, err)
	second, err := svc.StartChat(ctx, domain.Anonymous())
	require.NoError(t, err)

	_, err = svc.Send(ctx, conversation.SendInput{SessionID: first.SessionID, Text: "hi"})
	require.NoError(t, err)
	svc.EndChat(ctx, second.SessionID)

	assert.Equal(t, 2, speaker.stops, "one speaker serves every chat")
	_, ok := svc.Transcript(first.SessionID)
	assert.True(t, ok)
}
