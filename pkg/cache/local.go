package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// LocalConfig 本地缓存配置
type LocalConfig struct {
	MaxSize           int
	DefaultExpiration time.Duration
	CleanupInterval   time.Duration
}

type localCache struct {
	c *gocache.Cache
}

// NewLocalCache 创建基于 go-cache 的进程内缓存
func NewLocalCache(cfg LocalConfig) Cache {
	exp := cfg.DefaultExpiration
	if exp <= 0 {
		exp = gocache.NoExpiration
	}
	return &localCache{c: gocache.New(exp, cfg.CleanupInterval)}
}

func (l *localCache) Get(ctx context.Context, key string) ([]byte, bool) {
	v, ok := l.c.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (l *localCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = gocache.DefaultExpiration
	}
	l.c.Set(key, value, expiration)
	return nil
}

func (l *localCache) Delete(ctx context.Context, key string) error {
	l.c.Delete(key)
	return nil
}

func (l *localCache) Exists(ctx context.Context, key string) bool {
	_, ok := l.c.Get(key)
	return ok
}

func (l *localCache) Clear(ctx context.Context) error {
	l.c.Flush()
	return nil
}

func (l *localCache) Close() error { return nil }
