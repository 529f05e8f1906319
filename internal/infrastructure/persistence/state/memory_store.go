package state

import (
	"context"
	"slices"
	"sync"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
)

// MemoryStore is a process-local backend. State is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) LoadKey(_ context.Context, namespace, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[string(compositeKey(namespace, key))]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return slices.Clone(value), nil
}

func (m *MemoryStore) SaveKey(_ context.Context, namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(compositeKey(namespace, key))] = slices.Clone(value)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
