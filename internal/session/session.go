// Package session defines the key-value store that holds the in-progress
// wizard session between runs, and an in-memory implementation.
package session

import (
	"context"
	"maps"
	"sync"
)

// Keys persisted by the wizard.
const (
	KeyUserID        = "userId"
	KeyUserName      = "userName"
	KeySelectedSport = "selectedSport"
	KeyStage         = "stage"
)

// DefaultNamespace is used by single-user front ends (CLI, MCP).
const DefaultNamespace = "default"

// Store is a durable per-user key-value store. Values have no expiry.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes key. Rewriting the same value is harmless.
	Set(ctx context.Context, key, value string) error
	// Clear removes every key of this store. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error
	// Replace atomically clears the store and writes kv. On error the
	// previous contents are left untouched.
	Replace(ctx context.Context, kv map[string]string) error
}

// Factory hands out stores partitioned by namespace (one per browser or installation).
type Factory interface {
	Scope(namespace string) Store
}

// Memory is an in-memory Factory. Stores obtained for the same namespace share data.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

// NewMemory creates an empty in-memory factory.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

// Compile-time check: *Memory satisfies Factory.
var _ Factory = (*Memory)(nil)

// Scope returns the store for namespace.
func (m *Memory) Scope(namespace string) Store {
	return &memoryStore{m: m, ns: namespace}
}

type memoryStore struct {
	m  *Memory
	ns string
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	v, ok := s.m.data[s.ns][key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.data[s.ns] == nil {
		s.m.data[s.ns] = make(map[string]string)
	}
	s.m.data[s.ns][key] = value
	return nil
}

func (s *memoryStore) Clear(_ context.Context) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.data, s.ns)
	return nil
}

func (s *memoryStore) Replace(_ context.Context, kv map[string]string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.data[s.ns] = maps.Clone(kv)
	return nil
}
