package handlers

import (
	"net/http"
	"time"

	"github.com/code-100-precent/LingSearch/pkg/cache"
	"github.com/code-100-precent/LingSearch/pkg/metrics"
	"github.com/code-100-precent/LingSearch/pkg/search"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	headerIfMatch = "If-Match"
	headerETag    = "ETag"

	defaultStatsTTL = 10 * time.Second
)

type Handlers struct {
	manager  *search.Manager
	cache    cache.Cache
	metrics  *metrics.Metrics
	logger   *zap.Logger
	statsTTL time.Duration
}

type Option func(*Handlers)

// WithCache caches index statistics in c
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(h *Handlers) {
		h.cache = c
		if ttl > 0 {
			h.statsTTL = ttl
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handlers) { h.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Handlers) { h.logger = l }
}

func NewHandlers(manager *search.Manager, opts ...Option) *Handlers {
	h := &Handlers{
		manager:  manager,
		logger:   zap.L(),
		statsTTL: defaultStatsTTL,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("handlers")
	return h
}

// Register mounts the API under prefix plus /health and /metrics at the root
func (h *Handlers) Register(engine *gin.Engine, prefix string) {
	engine.GET("/health", h.handleHealth)
	if h.metrics != nil {
		engine.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	r := engine.Group(prefix)

	indexes := r.Group("/indexes")
	indexes.GET("", h.handleListIndexes)
	indexes.PUT("/:name", h.handleCreateOrUpdateIndex)
	indexes.GET("/:name", h.handleGetIndex)
	indexes.DELETE("/:name", h.handleDeleteIndex)
	indexes.GET("/:name/stats", h.handleIndexStatistics)

	indexes.POST("/:name/docs/index", h.handleIndexDocuments)
	indexes.GET("/:name/docs/:key", h.handleGetDocument)
	indexes.POST("/:name/docs/search", h.handleSearch)
	indexes.POST("/:name/docs/autocomplete", h.handleAutocomplete)

	synonyms := r.Group("/synonymmaps")
	synonyms.GET("", h.handleListSynonymMaps)
	synonyms.PUT("/:name", h.handleCreateOrUpdateSynonymMap)
	synonyms.GET("/:name", h.handleGetSynonymMap)
	synonyms.DELETE("/:name", h.handleDeleteSynonymMap)
}

func (h *Handlers) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"indexes": len(h.manager.ListIndexes()),
	})
}

func (h *Handlers) observeOperation(op string, err error) {
	if h.metrics != nil {
		h.metrics.IndexOperation(op, err)
	}
}
