// Package cartref stores the single cart reference written before the
// shopper is redirected to the payment gateway. The reference is read at
// return time and deleted only after a successful finalization, so a failed
// run never loses cart identity.
package cartref

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkalinowski/storefront-finalizer/internal/application"
)

const keyPrefix = "cartref:"

// References are short-lived by nature; a gateway return later than a day
// after redirect has no cart to go back to anyway.
const referenceTTL = 24 * time.Hour

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

var _ application.CartReferenceStore = (*RedisStore)(nil)

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	cartID, err := s.rdb.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", application.ErrReferenceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading cart reference %s: %w", key, err)
	}
	return cartID, nil
}

func (s *RedisStore) Set(ctx context.Context, key, cartID string) error {
	if err := s.rdb.Set(ctx, keyPrefix+key, cartID, referenceTTL).Err(); err != nil {
		return fmt.Errorf("writing cart reference %s: %w", key, err)
	}
	return nil
}

// Delete is idempotent: removing an absent reference is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("deleting cart reference %s: %w", key, err)
	}
	return nil
}
