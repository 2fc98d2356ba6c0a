// internal/pkg/storage/redis.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	xerrors "voucher-portal/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore stores values under portal:<scope>:<key>. A positive ttl is
// refreshed on every write to that key.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, scope, key string) (string, error) {
	v, err := s.client.Get(ctx, redisKey(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", xerrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s from redis: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, scope, key, value string) error {
	if err := s.client.Set(ctx, redisKey(scope, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s in redis: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, scope string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, redisKey(scope, key))
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

func redisKey(scope, key string) string {
	return "portal:" + scopedKey(scope, key)
}
