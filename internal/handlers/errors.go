package handlers

import (
	"errors"
	"net/http"

	"github.com/code-100-precent/LingSearch/pkg/middleware"
	"github.com/code-100-precent/LingSearch/pkg/schema"
	"github.com/code-100-precent/LingSearch/pkg/search"
	"github.com/code-100-precent/LingSearch/pkg/utils/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusOf maps domain errors onto HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, schema.ErrInvalidIndex),
		errors.Is(err, schema.ErrInvalidConfiguration),
		errors.Is(err, search.ErrInvalidRequest),
		errors.Is(err, search.ErrInvalidDocument),
		errors.Is(err, search.ErrUnknownSynonymMap),
		errors.Is(err, search.ErrSuggesterNotDefined):
		return http.StatusBadRequest
	case errors.Is(err, search.ErrIndexNotFound),
		errors.Is(err, search.ErrDocumentNotFound),
		errors.Is(err, search.ErrSynonymMapNotFound):
		return http.StatusNotFound
	case errors.Is(err, search.ErrIndexConflict),
		errors.Is(err, search.ErrIndexExists),
		errors.Is(err, search.ErrSynonymMapInUse):
		return http.StatusConflict
	case errors.Is(err, search.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, search.ErrManagerClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
	}
	response.Error(c, status, err)
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, err)
}
