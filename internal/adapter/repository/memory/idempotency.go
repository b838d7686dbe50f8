package memory

import (
	"context"
	"time"

	"github.com/iho/ioutracker/internal/usecase"
)

const processingMarker = "processing"

// IdempotencyStore implements usecase.IdempotencyStore on top of Cache.
type IdempotencyStore struct {
	cache *Cache
}

// NewIdempotencyStore creates an empty IdempotencyStore.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{cache: NewCache()}
}

// CheckAndSet claims key, or returns the value stored under it.
func (s *IdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	if item, ok := s.cache.items[key]; ok {
		if item.expiresAt.IsZero() || s.cache.now().Before(item.expiresAt) {
			return true, append([]byte(nil), item.value...), nil
		}
	}

	value := response
	if value == nil {
		value = []byte(processingMarker)
	}
	item := cacheItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = s.cache.now().Add(ttl)
	}
	s.cache.items[key] = item
	return false, nil, nil
}

func (s *IdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return s.cache.Set(ctx, key, response, ttl)
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}

var _ usecase.IdempotencyStore = (*IdempotencyStore)(nil)
