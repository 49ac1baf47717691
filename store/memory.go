package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value  string
	expire time.Time
}

// Memory is an in-process session store. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory returns an empty [Memory] store. A nil now uses time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}

	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// Get returns the value stored under key.
func (s *Memory) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	if !e.expire.IsZero() && !s.now().Before(e.expire) {
		delete(s.entries, key)
		return "", ErrNotFound
	}

	return e.value, nil
}

// Put stores all entries under a single lock.
func (s *Memory) Put(_ context.Context, entries map[string]string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expire time.Time
	if ttl > 0 {
		expire = s.now().Add(ttl)
	}
	for k, v := range entries {
		s.entries[k] = memoryEntry{value: v, expire: expire}
	}

	return nil
}

// Delete removes keys.
func (s *Memory) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.entries, k)
	}

	return nil
}

// Len returns the number of stored entries, expired or not.
func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}
