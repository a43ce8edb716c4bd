package auth

import (
	"context"
	"sync"
)

// MemoryStore is the in-process session store used when no redis address is
// configured, and by tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return Session{UserID: userID, State: StateUnauthenticated}, nil
	}
	return s, nil
}

func (m *MemoryStore) Put(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s
	return nil
}
