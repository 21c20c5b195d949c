package mcp

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session pairs one protocol server instance with its transport identity.
// Valid only within a single process: multiple instances behind a load
// balancer need sticky routing or a shared store behind SessionStore.
type Session struct {
	ID        string
	Server    *Server
	CreatedAt time.Time
}

// NewSession creates a session with a fresh opaque id.
func NewSession(server *Server) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Server:    server,
		CreatedAt: time.Now(),
	}
}

// SessionStore abstracts the session map so stateful deployments can later
// swap the in-memory map for a shared store without touching handler logic.
type SessionStore interface {
	Get(id string) (*Session, bool)
	Set(session *Session)
	Delete(id string)
	Len() int
	All() []*Session
}

// memorySessionStore is the default single-process store.
type memorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemorySessionStore builds an empty in-memory session store.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{sessions: make(map[string]*Session)}
}

func (s *memorySessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *memorySessionStore) Set(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

func (s *memorySessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *memorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *memorySessionStore) All() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		all = append(all, session)
	}
	return all
}
