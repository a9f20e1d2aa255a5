package sessions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/assistant-chat/internal/domain"
)

func TestCache_EntriesAreCopies(t *testing.T) {
	c := NewCache()
	in := []*domain.Message{{ID: "m1", Content: "original"}}
	c.SetMessages("s1", in)

	in[0].Content = "mutated by caller"
	out, ok := c.Messages("s1")
	require.True(t, ok)
	assert.Equal(t, "original", out[0].Content)

	out[0].Content = "mutated by reader"
	again, _ := c.Messages("s1")
	assert.Equal(t, "original", again[0].Content)
}

func TestCache_InvalidateAndClear(t *testing.T) {
	c := NewCache()
	c.SetSessions("a", []*domain.Session{{ID: "s1"}})
	c.SetSessions("b", []*domain.Session{{ID: "s2"}})

	c.InvalidateSessions("a")
	_, ok := c.Sessions("a")
	assert.False(t, ok)
	_, ok = c.Sessions("b")
	assert.True(t, ok)

	c.ClearSessions()
	_, ok = c.Sessions("b")
	assert.False(t, ok)

	c.SetMessages("s1", nil)
	list, ok := c.Messages("s1")
	assert.True(t, ok)
	assert.Empty(t, list)

	c.Reset()
	_, ok = c.Messages("s1")
	assert.False(t, ok)
}

func TestCache_StaleFillIsDiscarded(t *testing.T) {
	c := NewCache()

	msgs := c.messagesStamp("s1")
	owners := c.sessionsStamp("u1")
	c.InvalidateMessages("s1")
	c.InvalidateSessions("u1")

	assert.False(t, c.fillMessages("s1", []*domain.Message{{ID: "old"}}, msgs))
	assert.False(t, c.fillSessions("u1", []*domain.Session{{ID: "old"}}, owners))
	_, ok := c.Messages("s1")
	assert.False(t, ok)

	assert.True(t, c.fillMessages("s1", []*domain.Message{{ID: "new"}}, c.messagesStamp("s1")))
}

func TestCache_InvalidationOnlyDiscardsItsOwnKey(t *testing.T) {
	c := NewCache()

	a := c.sessionsStamp("a")
	b := c.sessionsStamp("b")
	c.InvalidateSessions("a")

	assert.False(t, c.fillSessions("a", []*domain.Session{{ID: "s1"}}, a))
	assert.True(t, c.fillSessions("b", []*domain.Session{{ID: "s2"}}, b))

	s1 := c.messagesStamp("s1")
	s2 := c.messagesStamp("s2")
	c.InvalidateMessages("s1")
	assert.False(t, c.fillMessages("s1", nil, s1))
	assert.True(t, c.fillMessages("s2", nil, s2))
}

func TestCache_ClearDiscardsEveryPendingFill(t *testing.T) {
	c := NewCache()

	b := c.sessionsStamp("b")
	c.InvalidateSessions("a")
	c.ClearSessions()
	assert.False(t, c.fillSessions("b", []*domain.Session{{ID: "s2"}}, b))

	// stamps taken after the clear never equal ones taken before it
	assert.NotEqual(t, b, c.sessionsStamp("b"))

	s1 := c.messagesStamp("s1")
	c.Reset()
	assert.False(t, c.fillMessages("s1", nil, s1))
}
