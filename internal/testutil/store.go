package testutil

import (
	"context"
	"sync"

	"github.com/turtacn/ChemXGen/internal/domain/task"
)

// MemStore is a task.Store backed by a map with injectable failures.
type MemStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	saves    int
	LoadErr  error
	SaveErr  error
	ClearErr error
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (s *MemStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, task.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.data[key] = append([]byte(nil), data...)
	s.saves++
	return nil
}

func (s *MemStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ClearErr != nil {
		return s.ClearErr
	}
	delete(s.data, key)
	return nil
}

// Put seeds raw bytes under key.
func (s *MemStore) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
}

// Get returns the raw bytes under key.
func (s *MemStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Saves counts successful Save calls.
func (s *MemStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
