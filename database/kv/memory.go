package kv

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryNamespace keeps all keys in process memory.
type MemoryNamespace struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryNamespace() *MemoryNamespace {
	return &MemoryNamespace{data: make(map[string][]byte)}
}

func (m *MemoryNamespace) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (m *MemoryNamespace) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(value)
	return nil
}

func (m *MemoryNamespace) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// List returns the matching keys in sorted order.
func (m *MemoryNamespace) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0)
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (m *MemoryNamespace) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *MemoryNamespace) Close() error { return nil }
