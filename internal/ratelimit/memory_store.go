package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/schoolgate/schoolgate/internal/model"
)

// MemoryStore keeps rate limit entries in process memory. Lockouts do not
// survive restarts; meant for tests and single-instance deployments running
// without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	entry    model.RateLimitEntry
	expireAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Get retrieves an entry, or (nil, nil) when none exists or the TTL elapsed
func (s *MemoryStore) Get(_ context.Context, key string) (*model.RateLimitEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if time.Now().After(stored.expireAt) {
		delete(s.entries, key)
		return nil, nil
	}
	entry := stored.entry
	return &entry, nil
}

// Put stores an entry with the given TTL
func (s *MemoryStore) Put(_ context.Context, key string, entry *model.RateLimitEntry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{entry: *entry, expireAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes an entry
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of live entries. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
