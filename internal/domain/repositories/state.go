// Package repositories defines the persistence contracts the tracker depends
// on. Implementations live under internal/infrastructure/persistence.
package repositories

import (
	"context"
	"errors"
)

// Keys under which per-browser state is persisted.
const (
	KeyVisitorData = "visitorData"
	KeyLeadSession = "leadSession"
)

// ErrNotFound is returned by StateStore.Load when no value exists for a key.
var ErrNotFound = errors.New("state not found")

// StateStore is the durable key-value store holding one browser's state. It
// stands in for the browser's local storage and survives restarts.
type StateStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// KeyedStateStore is a shared backend that stores many browsers' state under
// a per-browser namespace.
type KeyedStateStore interface {
	LoadKey(ctx context.Context, namespace, key string) ([]byte, error)
	SaveKey(ctx context.Context, namespace, key string, value []byte) error
	Close() error
}

// ScopedState binds a KeyedStateStore to one browser namespace.
type ScopedState struct {
	backend   KeyedStateStore
	namespace string
}

// Scope returns the StateStore for a single browser.
func Scope(backend KeyedStateStore, namespace string) *ScopedState {
	return &ScopedState{backend: backend, namespace: namespace}
}

func (s *ScopedState) Load(ctx context.Context, key string) ([]byte, error) {
	return s.backend.LoadKey(ctx, s.namespace, key)
}

func (s *ScopedState) Save(ctx context.Context, key string, value []byte) error {
	return s.backend.SaveKey(ctx, s.namespace, key, value)
}
