package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/code-100-precent/LingSearch/pkg/utils"
	"github.com/code-100-precent/LingSearch/pkg/utils/response"
	"github.com/gin-gonic/gin"
)

// APIKeyHeader carries the service key
const APIKeyHeader = "api-key"

// APIKeyMiddleware rejects requests without the configured key. An empty key
// disables the check.
func APIKeyMiddleware(key string, skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		for _, p := range skipPaths {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}
		got := extractAPIKey(c)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			response.Error(c, http.StatusUnauthorized, utils.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// extractAPIKey reads the api-key header, then a Bearer token
func extractAPIKey(c *gin.Context) string {
	if v := c.GetHeader(APIKeyHeader); v != "" {
		return v
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
