package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/code-100-precent/LingSearch/pkg/utils"
	"github.com/code-100-precent/LingSearch/pkg/utils/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimiterConfig 限流配置
type RateLimiterConfig struct {
	// Rate 形如 100-S, 1000-M, 10000-H
	Rate string
	// Identifier 为 ip 或 api-key
	Identifier     string
	SkipPaths      []string
	WhitelistCIDRs []string
	BlacklistCIDRs []string
}

// RateLimitObserver receives every limiter decision
type RateLimitObserver interface {
	OnAllow(route, key string)
	OnDeny(route, key string)
}

type RateLimiter struct {
	mu       sync.RWMutex
	cfg      RateLimiterConfig
	store    limiter.Store
	instance *limiter.Limiter
	white    []*net.IPNet
	black    []*net.IPNet
	observer RateLimitObserver
}

// NewRateLimiter builds a limiter on store; nil store means in-memory
func NewRateLimiter(cfg RateLimiterConfig, store limiter.Store) (*RateLimiter, error) {
	if store == nil {
		store = memory.NewStore()
	}
	rl := &RateLimiter{store: store}
	if err := rl.UpdateConfig(cfg); err != nil {
		return nil, err
	}
	return rl, nil
}

// NewRedisLimiterStore shares counters between instances through redis
func NewRedisLimiterStore(client *redis.Client, prefix string) (limiter.Store, error) {
	if prefix == "" {
		prefix = "lingsearch:limiter"
	}
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
}

func (rl *RateLimiter) WithObserver(o RateLimitObserver) *RateLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.observer = o
	return rl
}

// UpdateConfig swaps rate and ip lists at runtime
func (rl *RateLimiter) UpdateConfig(cfg RateLimiterConfig) error {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return fmt.Errorf("rate limiter: invalid rate %q: %w", cfg.Rate, err)
	}
	white, err := parseCIDRs(cfg.WhitelistCIDRs)
	if err != nil {
		return err
	}
	black, err := parseCIDRs(cfg.BlacklistCIDRs)
	if err != nil {
		return err
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cfg = cfg
	rl.instance = limiter.New(rl.store, rate)
	rl.white, rl.black = white, black
	return nil
}

func parseCIDRs(list []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(list))
	for _, s := range list {
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			return nil, fmt.Errorf("rate limiter: invalid cidr %q: %w", s, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

func contains(nets []*net.IPNet, ip net.IP) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (rl *RateLimiter) key(c *gin.Context) string {
	if rl.cfg.Identifier == "api-key" {
		if k := extractAPIKey(c); k != "" {
			return "key:" + k
		}
	}
	return "ip:" + c.ClientIP()
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rl.mu.RLock()
		cfg, instance, observer := rl.cfg, rl.instance, rl.observer
		white, black := rl.white, rl.black
		rl.mu.RUnlock()

		path := c.Request.URL.Path
		for _, p := range cfg.SkipPaths {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}
		route := c.FullPath()
		ip := net.ParseIP(c.ClientIP())
		if ip != nil && contains(white, ip) {
			c.Next()
			return
		}
		key := rl.key(c)
		if ip != nil && contains(black, ip) {
			if observer != nil {
				observer.OnDeny(route, key)
			}
			response.Error(c, http.StatusTooManyRequests, utils.ErrTooManyRequests)
			return
		}

		lctx, err := instance.Get(c.Request.Context(), key)
		if err != nil {
			// 存储不可用时放行
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
		if lctx.Reached {
			if observer != nil {
				observer.OnDeny(route, key)
			}
			response.Error(c, http.StatusTooManyRequests, utils.ErrTooManyRequests)
			return
		}
		if observer != nil {
			observer.OnAllow(route, key)
		}
		c.Next()
	}
}
