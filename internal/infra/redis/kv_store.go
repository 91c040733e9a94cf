package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// updateRetries bounds the optimistic-lock retry loop in Update.
const updateRetries = 16

// KVStore implements app.KVStore on a Redis client. All core state is
// stored as serialized records under deterministic string keys.
type KVStore struct {
	client *redis.Client
}

func NewKVStore(client *redis.Client) *KVStore {
	return &KVStore{client: client}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis expire %s: %w", key, err)
	}
	return nil
}

// Update runs fn under WATCH so a concurrent write to the same key
// aborts the transaction and the read-modify-write is retried. Errors
// returned by fn pass through unchanged.
func (s *KVStore) Update(ctx context.Context, key string, ttl time.Duration, fn func(current string, found bool) (string, error)) (string, error) {
	var stored string
	for attempt := 0; attempt < updateRetries; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, key).Result()
			found := true
			if errors.Is(err, redis.Nil) {
				current, found = "", false
			} else if err != nil {
				return fmt.Errorf("redis get %s: %w", key, err)
			}

			next, err := fn(current, found)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, next, ttl)
				return nil
			})
			if err == nil {
				stored = next
			}
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return "", err
		}
		return stored, nil
	}
	return "", fmt.Errorf("redis update %s: gave up after %d conflicts", key, updateRetries)
}
