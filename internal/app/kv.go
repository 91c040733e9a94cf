package app

import (
	"context"
	"time"
)

// KVStore is the key-value surface all core state lives behind. Keys are
// deterministic strings composed of a namespace, the day or week key,
// and the user id. A zero TTL means the key never expires.
type KVStore interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes key to value, applying ttl when non-zero.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Expire resets the TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Update applies fn to the current value of key under a per-key
	// compare-and-swap, so overlapping read-modify-write cycles cannot
	// drop each other's writes. fn receives the current value (and
	// whether the key exists) and returns the value to store; an error
	// from fn aborts the update and is returned unchanged. The stored
	// value is returned.
	Update(ctx context.Context, key string, ttl time.Duration, fn func(current string, found bool) (string, error)) (string, error)
}
