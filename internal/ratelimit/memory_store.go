package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. Records are never evicted.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
	}
}

// Hit applies the fixed-window transition for key under the store lock
func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, policy Policy) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.records[key]
	next, allowed := apply(current, exists, now, policy)
	s.records[key] = next

	return next, allowed, nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Len returns the number of tracked clients
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
