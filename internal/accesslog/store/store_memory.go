package store

import (
	"context"
	"sort"
	"sync"

	"umid/internal/accesslog"
	id "umid/pkg/domain"
	"umid/pkg/platform/sentinel"
)

// InMemory is an append-only in-memory access-log store.
type InMemory struct {
	mu      sync.RWMutex
	entries map[id.UMIDID][]accesslog.Entry
	ids     map[id.AccessLogID]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{
		entries: make(map[id.UMIDID][]accesslog.Entry),
		ids:     make(map[id.AccessLogID]struct{}),
	}
}

func (s *InMemory) Append(_ context.Context, entry accesslog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[entry.ID]; dup {
		return sentinel.ErrAlreadyUsed
	}
	s.ids[entry.ID] = struct{}{}
	s.entries[entry.UMIDID] = append(s.entries[entry.UMIDID], entry.Clone())
	return nil
}

// ListByUMID returns up to limit entries, newest first. Entries with equal
// access times keep reverse insertion order.
func (s *InMemory) ListByUMID(_ context.Context, umidID id.UMIDID, limit int) ([]accesslog.Entry, error) {
	s.mu.RLock()
	stored := s.entries[umidID]
	out := make([]accesslog.Entry, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i].Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AccessTime.After(out[j].AccessTime)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListIDsByUMID returns entry ids in insertion order.
func (s *InMemory) ListIDsByUMID(_ context.Context, umidID id.UMIDID) ([]id.AccessLogID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.entries[umidID]
	out := make([]id.AccessLogID, len(stored))
	for i, e := range stored {
		out[i] = e.ID
	}
	return out, nil
}
