package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/code-100-precent/LingSearch/pkg/search"
	"github.com/code-100-precent/LingSearch/pkg/utils/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleIndexDocuments POST /indexes/:name/docs/index
// Returns 207 when only part of the batch succeeded.
func (h *Handlers) handleIndexDocuments(c *gin.Context) {
	name := c.Param("name")
	docs, err := h.manager.Documents(name)
	if err != nil {
		h.fail(c, err)
		return
	}
	var batch search.IndexBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		h.badRequest(c, err)
		return
	}
	if len(batch.Actions) == 0 {
		h.badRequest(c, errors.New("batch must contain at least one action"))
		return
	}

	results, err := docs.Index(c.Request.Context(), batch.Actions)
	h.observeOperation("index_documents", err)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.invalidateStats(c, name)

	succeeded := 0
	for _, r := range results {
		if r.Succeeded {
			succeeded++
		}
	}
	if h.metrics != nil {
		h.metrics.DocumentsIndexed(name, succeeded)
	}
	h.logger.Debug("documents indexed",
		zap.String("index", name),
		zap.Int("actions", len(results)),
		zap.Int("succeeded", succeeded))

	body := gin.H{"value": results}
	if succeeded < len(results) {
		response.Result(c, http.StatusMultiStatus, http.StatusMultiStatus, "some actions failed", body)
		return
	}
	response.Success(c, "success", body)
}

// handleGetDocument GET /indexes/:name/docs/:key?select=a,b
func (h *Handlers) handleGetDocument(c *gin.Context) {
	docs, err := h.manager.Documents(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	doc, err := docs.Get(c.Request.Context(), c.Param("key"), splitList(c.Query("select"))...)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, "success", doc)
}

// handleSearch POST /indexes/:name/docs/search
func (h *Handlers) handleSearch(c *gin.Context) {
	name := c.Param("name")
	docs, err := h.manager.Documents(name)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req search.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	start := time.Now()
	result, err := docs.Search(c.Request.Context(), req)
	if h.metrics != nil {
		h.metrics.ObserveSearch(name, time.Since(start))
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, "success", result)
}

// handleAutocomplete POST /indexes/:name/docs/autocomplete
func (h *Handlers) handleAutocomplete(c *gin.Context) {
	docs, err := h.manager.Documents(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var req search.AutocompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	suggestions, err := docs.Autocomplete(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, "success", gin.H{"value": suggestions})
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
