package fixedwindow

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-process Store used in unit tests.
type MemStore struct {
	mu      sync.Mutex
	windows map[string]windowState
}

type windowState struct {
	count     int64
	expiresAt time.Time
}

// NewMemStore builds an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{windows: map[string]windowState{}}
}

// Incr mirrors incrScript's semantics, keyed by wall-clock time.Now of the
// caller rather than Redis's own clock.
func (m *MemStore) Incr(ctx context.Context, key string, window time.Duration) (Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	state, ok := m.windows[key]
	if !ok || now.After(state.expiresAt) {
		state = windowState{count: 0, expiresAt: now.Add(window)}
	}
	state.count++
	m.windows[key] = state

	ttl := state.expiresAt.Sub(now)
	if ttl < 0 {
		ttl = 0
	}
	return Step{Count: state.count, TTLSeconds: int64(ttl.Seconds())}, nil
}
