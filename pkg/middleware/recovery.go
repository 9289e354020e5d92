package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/code-100-precent/LingSearch/pkg/utils/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errInternal = errors.New("internal server error")

// RecoveryMiddleware recovers from panics and logs the error
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.String("request_id", GetRequestID(c)),
					zap.String("stack", string(debug.Stack())),
				)
				response.Error(c, http.StatusInternalServerError, errInternal)
			}
		}()

		c.Next()
	}
}
