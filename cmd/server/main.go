package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/code-100-precent/LingSearch/cmd/bootstrap"
	"github.com/code-100-precent/LingSearch/internal/handlers"
	"github.com/code-100-precent/LingSearch/internal/models"
	"github.com/code-100-precent/LingSearch/pkg/cache"
	"github.com/code-100-precent/LingSearch/pkg/config"
	"github.com/code-100-precent/LingSearch/pkg/logger"
	"github.com/code-100-precent/LingSearch/pkg/metrics"
	"github.com/code-100-precent/LingSearch/pkg/middleware"
	"github.com/code-100-precent/LingSearch/pkg/search"
	"github.com/code-100-precent/LingSearch/pkg/snapshot"
	stores "github.com/code-100-precent/LingSearch/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

type SearchApp struct {
	cfg      *config.Config
	manager  *search.Manager
	cache    cache.Cache
	metrics  *metrics.Metrics
	exporter *snapshot.Exporter
}

func main() {
	// 1. Print Banner
	if err := bootstrap.PrintBannerFromFile("banner.txt"); err != nil {
		fmt.Fprintln(os.Stderr, "banner.txt not found, skipping banner")
	}

	// 2. Parse Command Line Parameters
	mode := flag.String("mode", "", "running environment (development, test, production)")
	initSQL := flag.String("init-sql", "", "path to database init .sql script (optional)")
	restore := flag.String("restore", "", "restore definitions from a snapshot key, or \"latest\", then exit")
	flag.Parse()

	if *mode != "" {
		os.Setenv("APP_ENV", *mode)
	}

	// 3. Load Global Configuration
	if err := config.Load(); err != nil {
		panic("config load failed: " + err.Error())
	}
	cfg := config.GlobalConfig

	// 4. Load Log Configuration
	if err := logger.Init(&cfg.Log, cfg.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()
	bootstrap.LogConfigInfo(cfg)

	// 5. Load Data Source
	db, err := bootstrap.SetupDatabase(cfg, os.Stdout, &bootstrap.Options{
		InitSQLPath: *initSQL,
		AutoMigrate: true,
	})
	if err != nil {
		logger.Fatal("database setup failed", zap.Error(err))
	}

	// 6. Open Indexes
	manager := search.NewManager(search.Config{
		IndexPath:    cfg.SearchPath,
		BatchSize:    cfg.SearchBatchSize,
		QueryTimeout: cfg.SearchQueryTimeout,
	}, models.NewDefinitionStore(db), logger.Named("search"))
	if err := manager.Open(context.Background()); err != nil {
		logger.Fatal("open indexes failed", zap.Error(err))
	}

	app := &SearchApp{cfg: cfg, manager: manager, metrics: metrics.New()}
	defer app.Close()

	// 7. Cache
	app.cache, err = cache.NewCache(cfg.Cache)
	if err != nil {
		logger.Warn("cache unavailable, falling back to local cache", zap.String("type", cfg.Cache.Type), zap.Error(err))
		app.cache = cache.NewLocalCache(cfg.Cache.Local)
	}

	// 8. Snapshot Store
	if cfg.SnapshotEnabled || *restore != "" {
		store, err := stores.New(cfg.Storage)
		if err != nil {
			logger.Fatal("init snapshot store failed", zap.Error(err))
		}
		app.exporter = snapshot.NewExporter(manager, store, logger.Lg)
		if *restore != "" {
			if err := app.Restore(context.Background(), store, *restore); err != nil {
				logger.Fatal("restore snapshot failed", zap.String("key", *restore), zap.Error(err))
			}
			return
		}
		app.exporter.WithLock(snapshot.NewCacheLock(app.cache), 0)
		if err := app.exporter.Schedule(cfg.SnapshotSchedule); err != nil {
			logger.Fatal("schedule snapshots failed", zap.Error(err))
		}
	}

	// 9. Initialize Gin Routing
	r, err := app.Router()
	if err != nil {
		logger.Fatal("init router failed", zap.Error(err))
	}

	// 10. Start HTTP Server
	httpServer := &http.Server{
		Addr:           cfg.Addr,
		Handler:        r,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server run failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

// Router builds the gin engine with the middleware chain and API routes
func (app *SearchApp) Router() (*gin.Engine, error) {
	if app.cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	skip := []string{"/health", "/metrics"}

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware(logger.Lg))
	r.Use(middleware.RecoveryMiddleware(logger.Lg))
	r.Use(middleware.MetricsMiddleware(app.metrics))
	r.Use(middleware.CorsMiddleware())
	r.Use(middleware.CompressionMiddleware(middleware.DefaultCompressionConfig()))

	limiterStore, err := app.limiterStore()
	if err != nil {
		return nil, err
	}
	rl, err := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:       app.cfg.RateLimit,
		Identifier: "ip",
		SkipPaths:  skip,
	}, limiterStore)
	if err != nil {
		return nil, err
	}
	r.Use(rl.WithObserver(app.metrics).Middleware())
	r.Use(middleware.APIKeyMiddleware(app.cfg.APIKey, skip...))

	handlers.NewHandlers(app.manager,
		handlers.WithCache(app.cache, 0),
		handlers.WithMetrics(app.metrics),
		handlers.WithLogger(logger.Lg),
	).Register(r, app.cfg.APIPrefix)
	return r, nil
}

// limiterStore shares rate limit counters through redis when the cache does
func (app *SearchApp) limiterStore() (limiter.Store, error) {
	if app.cfg.Cache.Type != cache.KindRedis {
		return nil, nil
	}
	rc := app.cfg.Cache.Redis
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	return middleware.NewRedisLimiterStore(client, rc.Prefix+"ratelimit:")
}

// Restore loads a snapshot into the manager; key "latest" picks the newest one
func (app *SearchApp) Restore(ctx context.Context, store stores.Store, key string) error {
	if key == "latest" {
		latest, err := app.exporter.Latest(ctx)
		if err != nil {
			return err
		}
		if latest == "" {
			return errors.New("no snapshots found")
		}
		key = latest
	}
	res, err := snapshot.Restore(ctx, store, key, app.manager)
	if err != nil {
		return err
	}
	logger.Info("snapshot restored",
		zap.String("key", key),
		zap.Int("indexes", res.Indexes),
		zap.Int("synonym_maps", res.SynonymMaps))
	return nil
}

func (app *SearchApp) Close() {
	if app.exporter != nil {
		app.exporter.Stop()
	}
	if app.cache != nil {
		_ = app.cache.Close()
	}
	if err := app.manager.Close(); err != nil {
		logger.Error("close indexes failed", zap.Error(err))
	}
}
