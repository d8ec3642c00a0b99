package idempotency

import (
	"context"
	"sync"
	"time"
)

// memoryStore is a development-only in-memory idempotency store.
// WARNING: state is lost on restart and is not shared across instances.
type memoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func newMemoryStore(ttl time.Duration) *memoryStore {
	return &memoryStore{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

func (s *memoryStore) Check(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if at, ok := s.seen[key]; ok && now.Sub(at) < s.ttl {
		return true, nil
	}
	s.seen[key] = now
	return false, nil
}
