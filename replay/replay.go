// Package replay remembers callback nonces so a captured callback cannot be
// delivered twice inside the acceptance window.
package replay

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store records nonces. Remember returns fresh=false when nonce was already
// recorded and has not expired.
type Store interface {
	Remember(ctx context.Context, nonce string, ttl time.Duration) (fresh bool, err error)
}

// RedisStore keeps nonces as expiring keys.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore stores keys as prefix+nonce. An empty prefix uses "wxpay:nonce:".
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "wxpay:nonce:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Remember(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, s.prefix+nonce, 1, ttl).Result()
}
