package ratelimit

import (
	"context"
	"sync"
	"time"

	"PosterIntake/internal/ports"
)

// MemoryStore keeps recency keys in a process-local map. It is only correct for
// a single instance or sticky routing; use RedisStore otherwise.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

var _ ports.RecencyStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. Expired keys are removed by Prune.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]time.Time)}
}

func (s *MemoryStore) SeenWithin(_ context.Context, key string, now time.Time, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.seen[key]
	return ok && now.Sub(at) < window, nil
}

func (s *MemoryStore) Mark(_ context.Context, key string, now time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen[key] = now
	return nil
}

// Prune deletes keys older than window and reports how many were removed.
func (s *MemoryStore) Prune(_ context.Context, now time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	removed := 0
	for k, at := range s.seen {
		if !at.After(cutoff) {
			delete(s.seen, k)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
