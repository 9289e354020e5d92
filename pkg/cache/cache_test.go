package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Helpers -------------------------------------------------------------

func mustLocalConfig() LocalConfig {
	return LocalConfig{
		MaxSize:           128,
		DefaultExpiration: 200 * time.Millisecond,
		CleanupInterval:   50 * time.Millisecond,
	}
}

func mustRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "127.0.0.1:6379",
		PoolSize:     10,
		MinIdleConns: 1,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		IdleTimeout:  10 * time.Second,
		Prefix:       "lingsearch-test:",
	}
}

func requireRedisOrSkip(t *testing.T) Cache {
	t.Helper()
	c, err := NewRedisCache(mustRedisConfig())
	if err != nil {
		t.Skipf("skip: redis not available at %s: %v", mustRedisConfig().Addr, err)
	}
	return c
}

// exerciseCache runs the behaviour every implementation shares.
func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.Clear(ctx))

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute))
	v, ok := c.Get(ctx, "k1")
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), v)
	assert.True(t, c.Exists(ctx, "k1"))

	require.NoError(t, c.Delete(ctx, "k1"))
	assert.False(t, c.Exists(ctx, "k1"))

	require.NoError(t, c.Set(ctx, "short", []byte("x"), 100*time.Millisecond))
	time.Sleep(1100 * time.Millisecond)
	assert.False(t, c.Exists(ctx, "short"))

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, c.Clear(ctx))
	assert.False(t, c.Exists(ctx, "a"))
	assert.False(t, c.Exists(ctx, "b"))
}

// --- Implementations -----------------------------------------------------

func TestLRUCache(t *testing.T) {
	c := NewLRUCache(LRUCacheConfig(mustLocalConfig()))
	defer c.Close()
	exerciseCache(t, c)
}

func TestLocalCache(t *testing.T) {
	c := NewLocalCache(mustLocalConfig())
	defer c.Close()
	exerciseCache(t, c)
}

func TestRedisCache(t *testing.T) {
	c := requireRedisOrSkip(t)
	defer c.Close()
	exerciseCache(t, c)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache(LRUCacheConfig{MaxSize: 2})
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), []byte{byte(i)}, 0))
	}
	assert.False(t, c.Exists(ctx, "k0"))
	assert.True(t, c.Exists(ctx, "k1"))
	assert.True(t, c.Exists(ctx, "k2"))
}

func TestLRUCache_BackgroundCleanup(t *testing.T) {
	c := NewLRUCache(LRUCacheConfig{MaxSize: 10, CleanupInterval: 20 * time.Millisecond})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 30*time.Millisecond))
	assert.Eventually(t, func() bool {
		return c.(*lruCacheImpl).cache.Len() == 0
	}, time.Second, 20*time.Millisecond)
}

func TestLocalCache_DefaultExpiration(t *testing.T) {
	c := NewLocalCache(mustLocalConfig())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	assert.True(t, c.Exists(ctx, "k"))
	time.Sleep(300 * time.Millisecond)
	assert.False(t, c.Exists(ctx, "k"))
}

// --- Factory tests -------------------------------------------------------

func TestNewCache_Factory(t *testing.T) {
	c, err := NewCache(Config{Type: KindLocal, Local: mustLocalConfig()})
	require.NoError(t, err)
	_, ok := c.(*localCache)
	assert.True(t, ok, "expect *localCache for KindLocal")

	c, err = NewCache(Config{Type: KindLRU, Local: mustLocalConfig()})
	require.NoError(t, err)
	_, ok = c.(*lruCacheImpl)
	assert.True(t, ok, "expect *lruCacheImpl for KindLRU")
	_ = c.Close()

	_, err = NewCache(Config{Type: "memcached"})
	assert.Error(t, err)
}

func TestJSONHelpers(t *testing.T) {
	c := NewLocalCache(LocalConfig{})
	ctx := context.Background()

	type stats struct {
		DocumentCount uint64 `json:"documentCount"`
	}
	require.NoError(t, SetJSON(ctx, c, "stats:hotels", stats{DocumentCount: 7}, time.Minute))

	got, ok := GetJSON[stats](ctx, c, "stats:hotels")
	assert.True(t, ok)
	assert.Equal(t, uint64(7), got.DocumentCount)

	require.NoError(t, c.Set(ctx, "bad", []byte("{"), time.Minute))
	_, ok = GetJSON[stats](ctx, c, "bad")
	assert.False(t, ok)
}
