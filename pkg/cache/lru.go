package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCacheConfig LRU缓存配置
type LRUCacheConfig struct {
	// 最大缓存项数
	MaxSize int
	// 默认过期时间
	DefaultExpiration time.Duration
	// 清理间隔
	CleanupInterval time.Duration
}

type lruCacheImpl struct {
	cache     *lru.Cache[string, lruCacheItem]
	config    LRUCacheConfig
	mu        sync.Mutex
	stopChan  chan struct{}
	closeOnce sync.Once
}

type lruCacheItem struct {
	value      []byte
	expiration time.Time
}

func (i lruCacheItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewLRUCache 创建基于hashicorp/golang-lru的缓存
func NewLRUCache(config LRUCacheConfig) Cache {
	if config.MaxSize <= 0 {
		config.MaxSize = 1000
	}
	c, _ := lru.New[string, lruCacheItem](config.MaxSize)
	lc := &lruCacheImpl{
		cache:    c,
		config:   config,
		stopChan: make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go lc.startCleanup()
	}
	return lc
}

func (lc *lruCacheImpl) Get(ctx context.Context, key string) ([]byte, bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	item, ok := lc.cache.Get(key)
	if !ok {
		return nil, false
	}
	if item.expired(time.Now()) {
		lc.cache.Remove(key)
		return nil, false
	}
	return item.value, true
}

func (lc *lruCacheImpl) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = lc.config.DefaultExpiration
	}
	var exp time.Time
	if expiration > 0 {
		exp = time.Now().Add(expiration)
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.cache.Add(key, lruCacheItem{value: value, expiration: exp})
	return nil
}

func (lc *lruCacheImpl) Delete(ctx context.Context, key string) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.cache.Remove(key)
	return nil
}

func (lc *lruCacheImpl) Exists(ctx context.Context, key string) bool {
	_, ok := lc.Get(ctx, key)
	return ok
}

func (lc *lruCacheImpl) Clear(ctx context.Context) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.cache.Purge()
	return nil
}

func (lc *lruCacheImpl) Close() error {
	lc.closeOnce.Do(func() { close(lc.stopChan) })
	return nil
}

// startCleanup 定期清理过期项
func (lc *lruCacheImpl) startCleanup() {
	ticker := time.NewTicker(lc.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			lc.removeExpired()
		case <-lc.stopChan:
			return
		}
	}
}

func (lc *lruCacheImpl) removeExpired() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	now := time.Now()
	for _, key := range lc.cache.Keys() {
		if item, ok := lc.cache.Peek(key); ok && item.expired(now) {
			lc.cache.Remove(key)
		}
	}
}
