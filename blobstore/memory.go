package blobstore

import (
	"context"
	"sync"

	"github.com/eggybyte-technology/slotx"
)

// Memory is an in-memory backing store. It doubles as a slotx.WriteBatch,
// which is convenient for tests that want to inspect a drain set.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get returns a copy of the stored bytes for key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

// Set stores a copy of value under key.
func (m *Memory) Set(key string, value []byte) {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.mu.Lock()
	m.data[key] = stored
	m.mu.Unlock()
}

// Apply stores every pair in batch.
func (m *Memory) Apply(_ context.Context, batch slotx.MapBatch) error {
	for key, value := range batch {
		m.Set(key, value)
	}
	return nil
}

// Delete removes key from the store.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
