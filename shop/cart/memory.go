package cart

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu    sync.RWMutex
	carts map[int64][]Line
}

// NewMemoryStore keeps carts in process memory. This is the default backend;
// carts do not survive a restart, matching the per-session lifetime they had
// in the chat anyway.
func NewMemoryStore() Store {
	return &memoryStore{carts: make(map[int64][]Line)}
}

func (m *memoryStore) Get(_ context.Context, sessionID int64) ([]Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lines := m.carts[sessionID]
	out := make([]Line, len(lines))
	copy(out, lines)
	return out, nil
}

func (m *memoryStore) Put(_ context.Context, sessionID int64, lines []Line) error {
	stored := make([]Line, len(lines))
	copy(stored, lines)
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(stored) == 0 {
		delete(m.carts, sessionID)
		return nil
	}
	m.carts[sessionID] = stored
	return nil
}

func (m *memoryStore) Clear(_ context.Context, sessionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}
