package bootstrap

import (
	"fmt"
	"os"
	"strings"

	"github.com/code-100-precent/LingSearch/pkg/config"
	"github.com/code-100-precent/LingSearch/pkg/logger"
	"go.uber.org/zap"
)

// LogConfigInfo prints the loaded configuration; secrets are only reported as set or unset
func LogConfigInfo(cfg *config.Config) {
	logger.Info("system config load finished")
	logger.Info("base config",
		zap.String("addr", cfg.Addr),
		zap.String("mode", cfg.Mode),
		zap.String("api_prefix", cfg.APIPrefix),
		zap.Bool("api_key_set", cfg.APIKey != ""),
		zap.String("db_driver", cfg.DBDriver),
		zap.String("rate_limit", cfg.RateLimit),
	)

	logger.Info("log config",
		zap.String("log_level", cfg.Log.Level),
		zap.String("log_filename", cfg.Log.Filename),
		zap.Int("log_max_size", cfg.Log.MaxSize),
		zap.Int("log_max_age", cfg.Log.MaxAge),
		zap.Int("log_max_backups", cfg.Log.MaxBackups),
	)

	logger.Info("search config",
		zap.String("search_path", cfg.SearchPath),
		zap.Int("search_batch_size", cfg.SearchBatchSize),
		zap.Duration("search_query_timeout", cfg.SearchQueryTimeout),
		zap.String("cache_type", cfg.Cache.Type),
	)
	logger.Info("snapshot config",
		zap.Bool("snapshot_enabled", cfg.SnapshotEnabled),
		zap.String("snapshot_schedule", cfg.SnapshotSchedule),
		zap.String("storage_kind", cfg.Storage.Kind),
	)
}

// PrintBannerFromFile Read file and print
func PrintBannerFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")

	colors := []string{
		"\x1b[38;5;39m",
		"\x1b[38;5;45m",
		"\x1b[38;5;51m",
		"\x1b[38;5;87m",
		"\x1b[38;5;123m",
		"\x1b[38;5;159m",
	}

	for i, line := range lines {
		color := colors[i%len(colors)]
		fmt.Println(color + line + "\x1b[0m")
	}
	return nil
}
