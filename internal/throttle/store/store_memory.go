package store

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// InMemory keeps failure counters in a TTL cache. Each counter expires one
// window after its first failure.
type InMemory struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

func NewInMemory() *InMemory {
	return &InMemory{cache: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (s *InMemory) RecordFailure(_ context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache.Get(key); !ok {
		s.cache.Set(key, 1, window)
		return 1, nil
	}
	n, err := s.cache.IncrementInt(key, 1)
	if err != nil {
		// expired between Get and IncrementInt
		s.cache.Set(key, 1, window)
		return 1, nil
	}
	return n, nil
}

func (s *InMemory) Clear(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
