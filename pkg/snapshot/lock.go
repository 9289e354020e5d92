package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/code-100-precent/LingSearch/pkg/cache"
)

// Lock keeps scheduled exports of several instances from overlapping.
type Lock interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// setNX is implemented by caches with an atomic set-if-absent (redis).
type setNX interface {
	SetNX(ctx context.Context, key string, value []byte, expiration time.Duration) (bool, error)
}

// CacheLock implements Lock on a cache. With redis the lock is shared by
// every instance; other caches only guard the local process.
type CacheLock struct {
	cache cache.Cache
	mu    sync.Mutex
}

func NewCacheLock(c cache.Cache) *CacheLock {
	return &CacheLock{cache: c}
}

func lockKey(key string) string {
	return "snapshot:lock:" + key
}

func (l *CacheLock) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if nx, ok := l.cache.(setNX); ok {
		return nx.SetNX(ctx, lockKey(key), []byte("locked"), ttl)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cache.Exists(ctx, lockKey(key)) {
		return false, nil
	}
	if err := l.cache.Set(ctx, lockKey(key), []byte("locked"), ttl); err != nil {
		return false, err
	}
	return true, nil
}

func (l *CacheLock) Unlock(ctx context.Context, key string) error {
	return l.cache.Delete(ctx, lockKey(key))
}
