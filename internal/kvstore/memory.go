package kvstore

import (
	"sync"
)

// MemoryStore is an in-process Store with no durability. Used by tests and
// by contexts that have no persistent storage at all.
type MemoryStore struct {
	mu          sync.Mutex
	m           map[string]string
	unavailable bool
}

// NewMemoryStore creates an empty, available in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

// SetAvailable toggles the availability probe result.
func (s *MemoryStore) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = !available
}

func (s *MemoryStore) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.unavailable
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return "", false
	}
	v, ok := s.m[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return false
	}
	s.m[key] = value
	return true
}

func (s *MemoryStore) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return false
	}
	delete(s.m, key)
	return true
}

func (s *MemoryStore) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return false
	}
	s.m = make(map[string]string)
	return true
}
