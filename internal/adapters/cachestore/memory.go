package cachestore

import (
	"context"
	"sync"
)

// Memory is the default cache store: a process-local map. Values are copied
// on both sides so callers cannot alias the stored slice.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, found := m.values[key]
	if !found {
		return nil, false, nil
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = stored
	return nil
}

// Len reports the number of cached entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
