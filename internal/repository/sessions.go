package store

import (
	"sync"

	"github.com/xiaot623/fieldwise/internal/domain"
)

// SessionRegistry keeps live sessions in memory, keyed by session id.
// Sessions do not survive a restart; only filed reports do.
//
// The turn counter of a deleted session is remembered, and a later session
// created under the same id continues from it so audio artifact names are
// never reused.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	nextTurn map[string]int
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*domain.Session),
		nextTurn: make(map[string]int),
	}
}

// Get returns the session with the given id.
func (r *SessionRegistry) Get(id string) (*domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// GetOrCreate returns the session with the given id, registering the one
// built by create when none exists. created reports which case happened.
func (r *SessionRegistry) GetOrCreate(id string, create func() *domain.Session) (s *domain.Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, false
	}
	s = create()
	if n := r.nextTurn[id]; n > s.TurnID {
		s.TurnID = n
	}
	r.sessions[id] = s
	return s, true
}

// Delete drops the session if it is still the registered one and
// remembers its turn counter for the id.
func (r *SessionRegistry) Delete(s *domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.ID]; ok && cur == s {
		delete(r.sessions, s.ID)
		r.nextTurn[s.ID] = s.TurnID
	}
}

// Count returns the number of live sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
