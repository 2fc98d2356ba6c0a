// internal/pkg/storage/memory.go
package storage

import (
	"context"
	"time"

	xerrors "voucher-portal/internal/pkg/errors"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps scoped values in process memory. Entries expire after
// the idle TTL; a zero TTL keeps them until deleted.
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl
	}
	return &MemoryStore{
		cache: cache.New(expiration, cleanup),
		ttl:   ttl,
	}
}

func (s *MemoryStore) Get(_ context.Context, scope, key string) (string, error) {
	v, ok := s.cache.Get(scopedKey(scope, key))
	if !ok {
		return "", xerrors.ErrNotFound
	}
	str, ok := v.(string)
	if !ok {
		return "", xerrors.ErrNotFound
	}
	return str, nil
}

func (s *MemoryStore) Set(_ context.Context, scope, key, value string) error {
	s.cache.Set(scopedKey(scope, key), value, cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, scope string, keys ...string) error {
	for _, key := range keys {
		s.cache.Delete(scopedKey(scope, key))
	}
	return nil
}

// Len returns the number of live entries across all scopes.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}
