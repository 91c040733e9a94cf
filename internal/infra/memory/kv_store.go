package memory

import (
	"context"
	"sync"
	"time"
)

// KVStore is an in-memory implementation of app.KVStore, useful for
// tests and single-process demos.
type KVStore struct {
	mu    sync.Mutex
	clock func() time.Time
	data  map[string]kvEntry
}

type kvEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func NewKVStore() *KVStore {
	return NewKVStoreWithClock(time.Now)
}

// NewKVStoreWithClock allows deterministic expiry in tests.
func NewKVStoreWithClock(clock func() time.Time) *KVStore {
	return &KVStore{clock: clock, data: make(map[string]kvEntry)}
}

func (s *KVStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveLocked(key)
	if !ok {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *KVStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = kvEntry{value: value, expiresAt: s.deadlineLocked(ttl)}
	return nil
}

func (s *KVStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveLocked(key)
	if !ok {
		return nil
	}
	entry.expiresAt = s.deadlineLocked(ttl)
	s.data[key] = entry
	return nil
}

// Update holds the store lock across the read-modify-write, which gives
// the same lost-update protection the Redis implementation gets from
// WATCH/MULTI.
func (s *KVStore) Update(_ context.Context, key string, ttl time.Duration, fn func(current string, found bool) (string, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, found := s.liveLocked(key)
	next, err := fn(entry.value, found)
	if err != nil {
		return "", err
	}
	s.data[key] = kvEntry{value: next, expiresAt: s.deadlineLocked(ttl)}
	return next, nil
}

func (s *KVStore) liveLocked(key string) (kvEntry, bool) {
	entry, ok := s.data[key]
	if !ok {
		return kvEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock()) {
		delete(s.data, key)
		return kvEntry{}, false
	}
	return entry, true
}

func (s *KVStore) deadlineLocked(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.clock().Add(ttl)
}
