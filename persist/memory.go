// ABOUTME: In-memory document backend
// ABOUTME: Used for ephemeral sessions and as the test double for the writer
package persist

import (
	"sync"
)

// MemoryBackend keeps documents in a map. It never fails unless FailWith is set.
type MemoryBackend struct {
	mu    sync.Mutex
	docs  map[string][]byte
	saves map[string]int
	fail  error
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		docs:  make(map[string][]byte),
		saves: make(map[string]int),
	}
}

func (m *MemoryBackend) Load(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrNoDocument
	}
	return append([]byte(nil), doc...), nil
}

func (m *MemoryBackend) Save(key string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.docs[key] = append([]byte(nil), doc...)
	m.saves[key]++
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}

// FailWith makes every Save return err until called again with nil.
func (m *MemoryBackend) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Saves returns how many successful writes key has received.
func (m *MemoryBackend) Saves(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[key]
}
