package middleware

import (
	"bytes"
	stdgzip "compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressionRouter(config *CompressionConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CompressionMiddleware(config))
	payload := strings.Repeat("hotel ", 500)
	r.GET("/api/indexes", func(c *gin.Context) {
		c.String(http.StatusOK, payload)
	})
	r.POST("/api/indexes/hotels/docs/index", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(body))
	})
	r.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, payload)
	})
	return r
}

func TestDefaultCompressionConfig(t *testing.T) {
	config := DefaultCompressionConfig()
	assert.Equal(t, gzip.DefaultCompression, config.Level)
	assert.True(t, config.DecompressRequests)
	assert.Contains(t, config.ExcludePaths, "/metrics")
	assert.Contains(t, config.ExcludePaths, "/health")
}

func TestCompressionMiddleware_Gzip(t *testing.T) {
	for _, level := range []int{1, 6, 9} {
		r := compressionRouter(&CompressionConfig{Level: level})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/indexes", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "level %d", level)
		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"), "level %d", level)
	}
}

func TestCompressionMiddleware_WithoutAcceptEncoding(t *testing.T) {
	r := compressionRouter(nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/indexes", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func TestCompressionMiddleware_ExcludedPath(t *testing.T) {
	r := compressionRouter(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func TestCompressionMiddleware_DecompressRequest(t *testing.T) {
	var buf bytes.Buffer
	zw := stdgzip.NewWriter(&buf)
	_, err := zw.Write([]byte(`{"value":[]}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	r := compressionRouter(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/indexes/hotels/docs/index", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"value":[]}`, w.Body.String())
}
