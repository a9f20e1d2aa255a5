package sessions

import (
	"sync"

	"github.com/PabloGalante/assistant-chat/internal/domain"
)

// Cache holds the read-through session-list and message-list entries.
// It has no TTL: entries live until explicitly invalidated. Entries are
// always replaced whole and copied on the way in and out, so a reader never
// observes a partially updated list.
type Cache struct {
	mu       sync.RWMutex
	sessions map[domain.UserID][]domain.Session
	messages map[domain.SessionID][]domain.Message

	// A read-through fill carries the stamp of its key taken before the
	// store read. Invalidating the key or clearing the whole map moves the
	// stamp, and a fill holding an older one is discarded.
	sessionsEpoch uint64
	messagesEpoch uint64
	sessionsGen   map[domain.UserID]uint64
	messagesGen   map[domain.SessionID]uint64
}

type stamp struct {
	epoch, gen uint64
}

func NewCache() *Cache {
	return &Cache{
		sessions:    make(map[domain.UserID][]domain.Session),
		messages:    make(map[domain.SessionID][]domain.Message),
		sessionsGen: make(map[domain.UserID]uint64),
		messagesGen: make(map[domain.SessionID]uint64),
	}
}

func (c *Cache) Sessions(owner domain.UserID) ([]*domain.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.sessions[owner]
	if !ok {
		return nil, false
	}
	out := make([]*domain.Session, len(entry))
	for i := range entry {
		s := entry[i]
		out[i] = &s
	}
	return out, true
}

func (c *Cache) SetSessions(owner domain.UserID, list []*domain.Session) {
	c.fillSessions(owner, list, c.sessionsStamp(owner))
}

func (c *Cache) sessionsStamp(owner domain.UserID) stamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return stamp{epoch: c.sessionsEpoch, gen: c.sessionsGen[owner]}
}

func (c *Cache) fillSessions(owner domain.UserID, list []*domain.Session, st stamp) bool {
	entry := make([]domain.Session, len(list))
	for i, s := range list {
		entry[i] = *s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if st != (stamp{epoch: c.sessionsEpoch, gen: c.sessionsGen[owner]}) {
		return false
	}
	c.sessions[owner] = entry
	return true
}

func (c *Cache) InvalidateSessions(owner domain.UserID) {
	c.mu.Lock()
	delete(c.sessions, owner)
	c.sessionsGen[owner]++
	c.mu.Unlock()
}

// ClearSessions drops every owner's session list.
func (c *Cache) ClearSessions() {
	c.mu.Lock()
	c.clearSessionsLocked()
	c.mu.Unlock()
}

func (c *Cache) clearSessionsLocked() {
	c.sessions = make(map[domain.UserID][]domain.Session)
	c.sessionsGen = make(map[domain.UserID]uint64)
	c.sessionsEpoch++
}

func (c *Cache) Messages(id domain.SessionID) ([]*domain.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.messages[id]
	if !ok {
		return nil, false
	}
	out := make([]*domain.Message, len(entry))
	for i := range entry {
		m := entry[i]
		out[i] = &m
	}
	return out, true
}

func (c *Cache) SetMessages(id domain.SessionID, list []*domain.Message) {
	c.fillMessages(id, list, c.messagesStamp(id))
}

func (c *Cache) messagesStamp(id domain.SessionID) stamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return stamp{epoch: c.messagesEpoch, gen: c.messagesGen[id]}
}

func (c *Cache) fillMessages(id domain.SessionID, list []*domain.Message, st stamp) bool {
	entry := make([]domain.Message, len(list))
	for i, m := range list {
		entry[i] = *m
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if st != (stamp{epoch: c.messagesEpoch, gen: c.messagesGen[id]}) {
		return false
	}
	c.messages[id] = entry
	return true
}

func (c *Cache) InvalidateMessages(id domain.SessionID) {
	c.mu.Lock()
	delete(c.messages, id)
	c.messagesGen[id]++
	c.mu.Unlock()
}

// Reset empties both caches.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.clearSessionsLocked()
	c.messages = make(map[domain.SessionID][]domain.Message)
	c.messagesGen = make(map[domain.SessionID]uint64)
	c.messagesEpoch++
	c.mu.Unlock()
}
