// Package cache provides byte-oriented caches with expiry: an in-process
// LRU, go-cache, and redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	KindLRU   = "lru"
	KindLocal = "local"
	KindRedis = "redis"
)

// Cache 缓存接口
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
	Clear(ctx context.Context) error
	Close() error
}

type Config struct {
	Type  string
	Redis RedisConfig
	Local LocalConfig
}

// NewCache 根据配置创建缓存
func NewCache(cfg Config) (Cache, error) {
	switch cfg.Type {
	case KindLRU:
		return NewLRUCache(LRUCacheConfig(cfg.Local)), nil
	case KindLocal, "":
		return NewLocalCache(cfg.Local), nil
	case KindRedis:
		return NewRedisCache(cfg.Redis)
	}
	return nil, fmt.Errorf("cache: unknown type %q", cfg.Type)
}

// GetJSON decodes a cached JSON value into T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var v T
	raw, ok := c.Get(ctx, key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

// SetJSON stores v encoded as JSON.
func SetJSON(ctx context.Context, c Cache, key string, v any, expiration time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw, expiration)
}
