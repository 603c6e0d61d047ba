package rlconfig

import (
	"context"
	"encoding/json"
	"sync"
)

// MemStore is an in-process Store for unit tests, backed by the same
// JSON-encoded field layout RedisStore uses so corrupt-value behavior can
// be exercised without a Redis connection.
type MemStore struct {
	mu     sync.Mutex
	fields map[string]string
}

// NewMemStore builds an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{fields: map[string]string{}}
}

func (m *MemStore) Get(ctx context.Context, apiKey string, defaults Config) (Config, error) {
	m.mu.Lock()
	raw, ok := m.fields[apiKey]
	m.mu.Unlock()
	if !ok {
		return asDefault(apiKey, defaults), nil
	}
	var v storedValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return asDefault(apiKey, defaults), nil
	}
	return Config{APIKey: apiKey, Capacity: v.Capacity, RefillRate: v.RefillRate}, nil
}

func (m *MemStore) Set(ctx context.Context, cfg Config) error {
	raw, err := json.Marshal(storedValue{Capacity: cfg.Capacity, RefillRate: cfg.RefillRate})
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.fields[cfg.APIKey] = string(raw)
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Delete(ctx context.Context, apiKey string) error {
	m.mu.Lock()
	delete(m.fields, apiKey)
	m.mu.Unlock()
	return nil
}

func (m *MemStore) List(ctx context.Context) ([]Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Config, 0, len(m.fields))
	for apiKey, raw := range m.fields {
		var v storedValue
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			continue
		}
		out = append(out, Config{APIKey: apiKey, Capacity: v.Capacity, RefillRate: v.RefillRate})
	}
	return out, nil
}

// SetCorrupt writes an unparseable field directly, for tests exercising
// the isDefault-on-corrupt-value fallback.
func (m *MemStore) SetCorrupt(apiKey, raw string) {
	m.mu.Lock()
	m.fields[apiKey] = raw
	m.mu.Unlock()
}
