package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

// IdempotencyStore remembers which order a client-supplied key produced.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func idempotencyKey(scope, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", scope, key)
}

// Reserve claims key for scope. When the key was already used it returns the
// stored result, or pending=true while the first request is still running.
func (s *IdempotencyStore) Reserve(ctx context.Context, scope, key string) (reserved bool, result string, pending bool, err error) {
	k := idempotencyKey(scope, key)
	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return false, "", false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return true, "", false, nil
	}

	value, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls; try once more
		return s.Reserve(ctx, scope, key)
	}
	if err != nil {
		return false, "", false, fmt.Errorf("read idempotency key: %w", err)
	}
	if value == pendingMarker {
		return false, "", true, nil
	}
	return false, value, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, scope, key, result string) error {
	if err := s.client.Set(ctx, idempotencyKey(scope, key), result, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	return s.client.Del(ctx, idempotencyKey(scope, key)).Err()
}
