package replay

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	store := NewRedisStore(rdb, "")

	fresh, err := store.Remember(ctx, "nonce-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = store.Remember(ctx, "nonce-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, fresh)

	assert.True(t, mr.Exists("wxpay:nonce:nonce-1"))
	assert.Equal(t, time.Minute, mr.TTL("wxpay:nonce:nonce-1"))

	mr.FastForward(time.Minute + time.Second)
	assert.False(t, mr.Exists("wxpay:nonce:nonce-1"))

	fresh, err = store.Remember(ctx, "nonce-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh, "expired nonce is fresh again")
}

// Runs against a real server when REDIS_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	prefix := "wxpay-test:" + time.Now().Format("150405.000000") + ":"
	store := NewRedisStore(rdb, prefix)

	fresh, err := store.Remember(ctx, "nonce-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = store.Remember(ctx, "nonce-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, fresh)

	fresh, err = store.Remember(ctx, "nonce-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	ttl, err := rdb.TTL(ctx, prefix+"nonce-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisStoreUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	_, err := NewRedisStore(rdb, "").Remember(context.Background(), "n", time.Minute)
	assert.Error(t, err)
}

func TestDefaultPrefix(t *testing.T) {
	s := NewRedisStore(nil, "")
	assert.Equal(t, "wxpay:nonce:", s.prefix)
}
