package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a session store backed by a Redis client.
type Redis struct {
	redis redis.UniversalClient
}

// NewRedis returns a [Redis] store using client. Key namespacing is left to
// the caller.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{redis: client}
}

// Get returns the value stored under key.
//
//	Performance: 1 Redis GET.
func (s *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return v, nil
}

// Put stores all entries in one MULTI/EXEC transaction. A zero ttl keeps the
// keys until they are deleted.
//
//	Performance: 1 round trip (pipelined SET per entry).
func (s *Redis) Put(ctx context.Context, entries map[string]string, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}
	if ttl < 0 {
		ttl = 0
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, k, v, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Delete removes keys. Missing keys are not an error.
func (s *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Ping measures the round-trip latency to Redis.
func (s *Redis) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return time.Since(start), nil
}
