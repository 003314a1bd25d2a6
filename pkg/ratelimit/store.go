package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Entry is one fixed window for one key.
type Entry struct {
	Count     int
	ExpiresAt time.Time
}

// A window is closed from its ExpiresAt instant on.
func (e Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store keeps window counters. Hit must be atomic per key: it opens a fresh
// window with count 1 when none exists or the current one has expired, and
// increments otherwise. A process-local map satisfies it; a shared store can
// be plugged in for multi-process deployments.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (Entry, error)
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration, now time.Time) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.expired(now) {
		e = &Entry{Count: 1, ExpiresAt: now.Add(window)}
		s.entries[key] = e
		return *e, nil
	}
	e.Count++
	return *e, nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
