// Package session holds the key-value stores captcha answers live in.
//
// Both stores keep integer values with a per-key TTL and report 0 for a
// key that is missing or expired.
package session

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value    int
	expireAt time.Time // zero => no TTL
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// MemoryStore is an in-process store for single-instance deployments and
// tests. Expired entries are dropped lazily on Get and in bulk by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, nil
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return 0, nil
	}
	return e.value, nil
}

// GetDel returns the value under key and removes it under a single lock.
func (s *MemoryStore) GetDel(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, nil
	}
	delete(s.entries, key)
	if e.expired(s.now()) {
		return 0, nil
	}
	return e.value, nil
}

// Set stores value under key. A non-positive ttl keeps the entry until it
// is deleted.
func (s *MemoryStore) Set(_ context.Context, key string, value int, ttl time.Duration) error {
	e := entry{value: value}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl > 0 {
		e.expireAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Sweep removes expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Len reports the number of entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
