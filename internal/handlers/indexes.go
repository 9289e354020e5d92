package handlers

import (
	"fmt"

	"github.com/code-100-precent/LingSearch/pkg/cache"
	"github.com/code-100-precent/LingSearch/pkg/schema"
	"github.com/code-100-precent/LingSearch/pkg/search"
	"github.com/code-100-precent/LingSearch/pkg/utils/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func statsKey(name string) string {
	return "stats:" + name
}

// handleCreateOrUpdateIndex PUT /indexes/:name
func (h *Handlers) handleCreateOrUpdateIndex(c *gin.Context) {
	var idx schema.SearchIndex
	if err := c.ShouldBindJSON(&idx); err != nil {
		h.badRequest(c, err)
		return
	}
	name := c.Param("name")
	if idx.Name != "" && idx.Name != name {
		h.badRequest(c, fmt.Errorf("index name %q does not match path %q", idx.Name, name))
		return
	}
	idx.Name = name

	saved, created, err := h.manager.CreateOrUpdateIndex(c.Request.Context(), idx, c.GetHeader(headerIfMatch))
	h.observeOperation("create_or_update_index", err)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.invalidateStats(c, name)
	c.Header(headerETag, saved.ETag)
	if created {
		h.logger.Info("index created", zap.String("index", name), zap.Int("fields", len(saved.Fields)))
		response.Created(c, "index created", saved)
		return
	}
	response.Success(c, "index updated", saved)
}

func (h *Handlers) handleGetIndex(c *gin.Context) {
	idx, err := h.manager.GetIndex(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header(headerETag, idx.ETag)
	response.Success(c, "success", idx)
}

func (h *Handlers) handleListIndexes(c *gin.Context) {
	response.Success(c, "success", h.manager.ListIndexes())
}

func (h *Handlers) handleDeleteIndex(c *gin.Context) {
	name := c.Param("name")
	err := h.manager.DeleteIndex(c.Request.Context(), name, c.GetHeader(headerIfMatch))
	h.observeOperation("delete_index", err)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.invalidateStats(c, name)
	h.logger.Info("index deleted", zap.String("index", name))
	response.Success(c, "index deleted", nil)
}

// handleIndexStatistics GET /indexes/:name/stats, served from cache when configured
func (h *Handlers) handleIndexStatistics(c *gin.Context) {
	name := c.Param("name")
	ctx := c.Request.Context()
	if h.cache != nil {
		if stats, ok := cache.GetJSON[search.IndexStatistics](ctx, h.cache, statsKey(name)); ok {
			response.Success(c, "success", stats)
			return
		}
	}
	stats, err := h.manager.Statistics(ctx, name)
	if err != nil {
		h.fail(c, err)
		return
	}
	if h.cache != nil {
		if err := cache.SetJSON(ctx, h.cache, statsKey(name), stats, h.statsTTL); err != nil {
			h.logger.Warn("cache index statistics failed", zap.String("index", name), zap.Error(err))
		}
	}
	response.Success(c, "success", stats)
}

func (h *Handlers) invalidateStats(c *gin.Context, name string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Delete(c.Request.Context(), statsKey(name)); err != nil {
		h.logger.Warn("invalidate index statistics failed", zap.String("index", name), zap.Error(err))
	}
}

// handleCreateOrUpdateSynonymMap PUT /synonymmaps/:name
func (h *Handlers) handleCreateOrUpdateSynonymMap(c *gin.Context) {
	var sm schema.SynonymMap
	if err := c.ShouldBindJSON(&sm); err != nil {
		h.badRequest(c, err)
		return
	}
	name := c.Param("name")
	if sm.Name != "" && sm.Name != name {
		h.badRequest(c, fmt.Errorf("synonym map name %q does not match path %q", sm.Name, name))
		return
	}
	sm.Name = name

	saved, created, err := h.manager.CreateOrUpdateSynonymMap(c.Request.Context(), sm, c.GetHeader(headerIfMatch))
	h.observeOperation("create_or_update_synonym_map", err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header(headerETag, saved.ETag)
	if created {
		response.Created(c, "synonym map created", saved)
		return
	}
	response.Success(c, "synonym map updated", saved)
}

func (h *Handlers) handleGetSynonymMap(c *gin.Context) {
	sm, err := h.manager.GetSynonymMap(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header(headerETag, sm.ETag)
	response.Success(c, "success", sm)
}

func (h *Handlers) handleListSynonymMaps(c *gin.Context) {
	response.Success(c, "success", h.manager.ListSynonymMaps())
}

func (h *Handlers) handleDeleteSynonymMap(c *gin.Context) {
	err := h.manager.DeleteSynonymMap(c.Request.Context(), c.Param("name"), c.GetHeader(headerIfMatch))
	h.observeOperation("delete_synonym_map", err)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, "synonym map deleted", nil)
}
