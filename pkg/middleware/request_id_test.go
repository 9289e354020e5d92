package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func requestIDRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})
	return r
}

func TestRequestIDMiddleware_WithHeader(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, "custom-request-id")
	requestIDRouter().ServeHTTP(w, req)

	assert.Equal(t, "custom-request-id", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "custom-request-id", w.Body.String())
}

func TestRequestIDMiddleware_Generated(t *testing.T) {
	r := requestIDRouter()
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestRequestIDMiddleware_RejectsInvalid(t *testing.T) {
	for _, bad := range []string{"has space", strings.Repeat("x", 200), "tab\tid"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, bad)
		requestIDRouter().ServeHTTP(w, req)

		id := w.Header().Get(RequestIDHeader)
		assert.NotEqual(t, bad, id)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	}
}

func TestGetRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetRequestID(c))

	c.Set("request_id", 12345)
	assert.Empty(t, GetRequestID(c))

	c.Set("request_id", "test-request-id")
	assert.Equal(t, "test-request-id", GetRequestID(c))
}
