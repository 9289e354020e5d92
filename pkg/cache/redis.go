package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig Redis配置
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// 键前缀，Clear 只删除带前缀的键
	Prefix string
}

type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache 连接 redis，连接失败时返回错误
func NewRedisCache(cfg RedisConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ConnMaxIdleTime: cfg.IdleTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "lingsearch:"
	}
	return &redisCache{client: client, prefix: prefix}, nil
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, expiration).Err()
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	err := r.client.Del(ctx, r.prefix+key).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (r *redisCache) Exists(ctx context.Context, key string) bool {
	n, err := r.client.Exists(ctx, r.prefix+key).Result()
	return err == nil && n > 0
}

func (r *redisCache) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (r *redisCache) Close() error { return r.client.Close() }

// SetNX sets key only when it is absent
func (r *redisCache) SetNX(ctx context.Context, key string, value []byte, expiration time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.prefix+key, value, expiration).Result()
}
