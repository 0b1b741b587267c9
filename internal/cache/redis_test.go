package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T, prefix string) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: mr.Addr(), KeyPrefix: prefix})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCacheGetSetDelete(t *testing.T) {
	c, mr := newRedisCache(t, "pit")
	ctx := context.Background()

	_, err := c.Get(ctx, "admin:token:abc")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "admin:token:abc", []byte(`{"issued_at":1}`), time.Minute))
	assert.True(t, mr.Exists("pit:admin:token:abc"), "keys are namespaced by prefix")
	assert.Equal(t, time.Minute, mr.TTL("pit:admin:token:abc"))

	got, err := c.Get(ctx, "admin:token:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"issued_at":1}`), got)

	require.NoError(t, c.Delete(ctx, "admin:token:abc"))
	_, err = c.Get(ctx, "admin:token:abc")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Delete(ctx, "admin:token:abc"))

	assert.NoError(t, c.Ping(ctx))
}

func TestRedisCacheExpiry(t *testing.T) {
	c, mr := newRedisCache(t, "pit")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCacheDefaultPrefix(t *testing.T) {
	c, mr := newRedisCache(t, "")

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("prstocks:k"))
}

func TestRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestRedisCachePingAfterServerLoss(t *testing.T) {
	c, mr := newRedisCache(t, "pit")
	mr.Close()

	assert.Error(t, c.Ping(context.Background()))
}
