/*
store.go - Session persistence

PURPOSE:
  SessionStore is the keyed store the surrounding service manages.
  Sessions are small JSON-friendly values; implementations only need
  get/put/delete, no scanning.
*/
package dialog

import (
	"context"
	"sync"
)

// SessionStore holds active conversation sessions.
type SessionStore interface {
	// Get returns the session and whether it exists.
	Get(ctx context.Context, id string) (*Session, bool, error)

	// Put stores or replaces a session.
	Put(ctx context.Context, s *Session) error

	// Delete removes a session (no-op when absent).
	Delete(ctx context.Context, id string) error
}

// =============================================================================
// MEMORY SESSION STORE
// =============================================================================

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false, nil
	}
	copied := s
	return &copied, true, nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports the number of stored sessions (used by metrics).
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
