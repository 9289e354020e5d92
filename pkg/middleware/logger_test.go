package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fieldMap(entry observer.LoggedEntry) map[string]zapcore.Field {
	fields := make(map[string]zapcore.Field, len(entry.Context))
	for _, f := range entry.Context {
		fields[f.Key] = f
	}
	return fields
}

func TestLoggerMiddleware_Fields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggerMiddleware(zap.New(core)))
	r.POST("/api/indexes/hotels/docs/search", func(c *gin.Context) {
		time.Sleep(2 * time.Millisecond)
		c.String(http.StatusOK, `{"value":[]}`)
	})

	req := httptest.NewRequest("POST", "/api/indexes/hotels/docs/search?select=id&top=5", nil)
	req.Header.Set("User-Agent", "lingsearch-client/1.0")
	// gin.ClientIP 优先取 X-Forwarded-For
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Request", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

	fields := fieldMap(entries[0])
	assert.Equal(t, int64(http.StatusOK), fields["status"].Integer)
	assert.Equal(t, "POST", fields["method"].String)
	assert.Equal(t, "/api/indexes/hotels/docs/search", fields["path"].String)
	assert.Contains(t, fields["query"].String, "select=id")
	assert.Contains(t, fields["query"].String, "top=5")
	assert.Equal(t, "203.0.113.7", fields["ip"].String)
	assert.Equal(t, "lingsearch-client/1.0", fields["user-agent"].String)
	assert.Equal(t, "req-42", fields["request_id"].String)
	assert.Equal(t, zapcore.DurationType, fields["latency"].Type)
	assert.Greater(t, fields["latency"].Integer, int64(0))
}

func TestLoggerMiddleware_ServerErrorLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(LoggerMiddleware(zap.New(core)))
	r.PUT("/api/indexes/hotels", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("PUT", "/api/indexes/hotels", nil))

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	fields := fieldMap(entries[0])
	assert.Equal(t, "", fields["query"].String)
	_, hasIP := fields["ip"]
	assert.True(t, hasIP)
}

func TestLoggerMiddleware_Levels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggerMiddleware(zap.New(core)))
	r.GET("/api/indexes", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/indexes/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, p := range []string{"/api/indexes", "/api/indexes/missing", "/health"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", p, nil))
	}

	entries := recorded.All()
	if !assert.Len(t, entries, 2) {
		t.FailNow()
	}
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.NotEmpty(t, entries[1].ContextMap()["request_id"])
}

func TestLoggerMiddleware_InfoSkipsGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(LoggerMiddleware(zap.New(core)))
	r.GET("/api/indexes", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/indexes", nil))

	assert.Empty(t, recorded.All())
}
