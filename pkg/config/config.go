package config

import (
	"log"
	"os"
	"time"

	"github.com/code-100-precent/LingSearch/pkg/cache"
	"github.com/code-100-precent/LingSearch/pkg/logger"
	stores "github.com/code-100-precent/LingSearch/pkg/storage"
	"github.com/code-100-precent/LingSearch/pkg/utils"
)

// Config represents the service configuration
type Config struct {
	Addr      string `env:"ADDR"`
	Mode      string `env:"MODE"`
	APIPrefix string `env:"API_PREFIX"`
	// APIKey enables the api-key header check when set
	APIKey   string `env:"API_KEY"`
	DBDriver string `env:"DB_DRIVER"`
	DSN      string `env:"DSN"`
	Log      logger.LogConfig

	SearchPath         string        `env:"SEARCH_PATH"`
	SearchBatchSize    int           `env:"SEARCH_BATCH_SIZE"`
	SearchQueryTimeout time.Duration `env:"SEARCH_QUERY_TIMEOUT"`

	Cache cache.Config
	// RateLimit uses ulule/limiter formatted rates, e.g. 100-S or 1000-M
	RateLimit string `env:"RATE_LIMIT"`

	SnapshotEnabled  bool   `env:"SNAPSHOT_ENABLED"`
	SnapshotSchedule string `env:"SNAPSHOT_SCHEDULE"`
	Storage          stores.Config
}

// GlobalConfig is the global configuration instance
var GlobalConfig *Config

// Load loads configuration from environment variables
func Load() error {
	// Load .env file based on APP_ENV
	env := os.Getenv("APP_ENV")
	if err := utils.LoadEnv(env); err != nil {
		// .env is optional
		log.Printf("Note: .env file not found or failed to load: %v (using default values)", err)
	}
	GlobalConfig = FromEnv()
	return nil
}

// FromEnv builds a Config from the current environment
func FromEnv() *Config {
	return &Config{
		Addr:      getStringOrDefault("ADDR", ":7072"),
		Mode:      getStringOrDefault("MODE", "development"),
		APIPrefix: getStringOrDefault("API_PREFIX", "/api"),
		APIKey:    getStringOrDefault("API_KEY", ""),
		DBDriver:  getStringOrDefault("DB_DRIVER", "sqlite"),
		DSN:       getStringOrDefault("DSN", "./lingsearch.db"),
		Log: logger.LogConfig{
			Level:      getStringOrDefault("LOG_LEVEL", "info"),
			Filename:   getStringOrDefault("LOG_FILENAME", "./logs/search.log"),
			MaxSize:    getIntOrDefault("LOG_MAX_SIZE", 100),
			MaxAge:     getIntOrDefault("LOG_MAX_AGE", 30),
			MaxBackups: getIntOrDefault("LOG_MAX_BACKUPS", 5),
			Daily:      getBoolOrDefault("LOG_DAILY", true),
		},
		SearchPath:         getStringOrDefault("SEARCH_PATH", "./search"),
		SearchBatchSize:    getIntOrDefault("SEARCH_BATCH_SIZE", 100),
		SearchQueryTimeout: getDurationOrDefault("SEARCH_QUERY_TIMEOUT", 10*time.Second),
		Cache:              loadCacheConfig(),
		RateLimit:          getStringOrDefault("RATE_LIMIT", "100-S"),
		SnapshotEnabled:    getBoolOrDefault("SNAPSHOT_ENABLED", false),
		SnapshotSchedule:   getStringOrDefault("SNAPSHOT_SCHEDULE", "0 2 * * *"),
		Storage:            stores.ConfigFromEnv(),
	}
}

// IsDev reports whether the service runs in development mode
func (c *Config) IsDev() bool {
	return c.Mode == "dev" || c.Mode == "development"
}

// getStringOrDefault gets environment variable value, returns default if empty
func getStringOrDefault(key, defaultValue string) string {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getBoolOrDefault gets boolean environment variable value, returns default if empty
func getBoolOrDefault(key string, defaultValue bool) bool {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return utils.GetBoolEnv(key)
}

// getIntOrDefault gets integer environment variable value, returns default if zero
func getIntOrDefault(key string, defaultValue int) int {
	value := utils.GetIntEnv(key)
	if value == 0 {
		return defaultValue
	}
	return int(value)
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	return parseDuration(utils.GetEnv(key), defaultValue)
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// loadCacheConfig loads cache configuration with all default values
func loadCacheConfig() cache.Config {
	cacheType := getStringOrDefault("CACHE_TYPE", cache.KindLocal)

	return cache.Config{
		Type: cacheType,
		Redis: cache.RedisConfig{
			Addr:         getStringOrDefault("REDIS_ADDR", "localhost:6379"),
			Password:     utils.GetEnv("REDIS_PASSWORD"),
			DB:           int(utils.GetIntEnv("REDIS_DB")), // 0 is valid
			PoolSize:     getIntOrDefault("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntOrDefault("REDIS_MIN_IDLE_CONNS", 5),
			DialTimeout:  getDurationOrDefault("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationOrDefault("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationOrDefault("REDIS_WRITE_TIMEOUT", 3*time.Second),
			IdleTimeout:  getDurationOrDefault("REDIS_IDLE_TIMEOUT", 5*time.Minute),
			Prefix:       getStringOrDefault("REDIS_PREFIX", "lingsearch:"),
		},
		Local: cache.LocalConfig{
			MaxSize:           getIntOrDefault("LOCAL_CACHE_MAX_SIZE", 1000),
			DefaultExpiration: getDurationOrDefault("LOCAL_CACHE_DEFAULT_EXPIRATION", 5*time.Minute),
			CleanupInterval:   getDurationOrDefault("LOCAL_CACHE_CLEANUP_INTERVAL", 10*time.Minute),
		},
	}
}
