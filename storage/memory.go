package storage

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check to ensure MemoryStore implements Storage
var _ Storage = (*MemoryStore)(nil)

// MemoryStore keeps values in process memory. A zero maxBytes disables the
// quota.
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string][]byte
	used     int64
	maxBytes int64
}

func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{
		values:   make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.used - int64(len(m.values[key])) + int64(len(value))
	if m.maxBytes > 0 && next > m.maxBytes {
		return ErrQuotaExceeded
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored
	m.used = next
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.values[key]; ok {
		m.used -= int64(len(v))
		delete(m.values, key)
	}
	return nil
}

func (m *MemoryStore) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
