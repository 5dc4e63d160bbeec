package chat

import (
	"sync"
	"time"
)

// Session is the record of one live connection's identity and current room.
type Session struct {
	ConnectionID string
	Username     string
	Room         string
	JoinedAt     time.Time
}

// SessionTable maps live connections to their sessions. It is safe for
// concurrent use.
type SessionTable struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewSessionTable creates an empty table.
func NewSessionTable() *SessionTable {
	return &SessionTable{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// Register creates or overwrites the session for connID.
func (t *SessionTable) Register(connID, username, room string) Session {
	return t.RegisterAt(connID, username, room, t.now())
}

// RegisterAt is Register with an explicit join time.
func (t *SessionTable) RegisterAt(connID, username, room string, joinedAt time.Time) Session {
	s := Session{
		ConnectionID: connID,
		Username:     username,
		Room:         room,
		JoinedAt:     joinedAt,
	}

	t.mu.Lock()
	t.sessions[connID] = s
	t.mu.Unlock()
	return s
}

// Get returns the session for connID.
func (t *SessionTable) Get(connID string) (Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[connID]
	return s, ok
}

// Remove deletes the session for connID. Removing an absent session is a no-op.
func (t *SessionTable) Remove(connID string) {
	t.mu.Lock()
	delete(t.sessions, connID)
	t.mu.Unlock()
}

// Len returns the number of live sessions.
func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
