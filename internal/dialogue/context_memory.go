package dialogue

import (
	"context"
	"sync"
)

// MemoryContextStore keeps conversation windows in process memory.
type MemoryContextStore struct {
	mu     sync.RWMutex
	window int
	byUser map[string][]Turn
}

func NewMemoryContextStore(window int) *MemoryContextStore {
	if window <= 0 {
		window = 20
	}
	return &MemoryContextStore{window: window, byUser: make(map[string][]Turn)}
}

func (m *MemoryContextStore) Window(_ context.Context, userID string) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turns := m.byUser[userID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MemoryContextStore) Append(_ context.Context, userID string, turns ...Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq := append(m.byUser[userID], turns...)
	if over := len(seq) - m.window; over > 0 {
		seq = append([]Turn(nil), seq[over:]...)
	}
	m.byUser[userID] = seq
	return nil
}
