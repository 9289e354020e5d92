package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecoveryMiddleware_NoPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(RecoveryMiddleware(zap.New(core)))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, recorded.All())
}

func TestRecoveryMiddleware_PanicValues(t *testing.T) {
	values := []any{"string panic", assert.AnError, 42}
	for _, v := range values {
		gin.SetMode(gin.TestMode)
		core, recorded := observer.New(zap.ErrorLevel)

		r := gin.New()
		r.Use(RequestIDMiddleware(), RecoveryMiddleware(zap.New(core)))
		r.POST("/test", func(c *gin.Context) {
			panic(v)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/test", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "Panic recovered", logs[0].Message)
		fields := logs[0].ContextMap()
		for _, k := range []string{"path", "method", "error", "stack", "request_id"} {
			assert.Contains(t, fields, k)
		}
	}
}

func TestRecoveryMiddleware_ResponseBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryMiddleware(zap.NewNop()))
	r.GET("/test", func(c *gin.Context) {
		panic("secret detail")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(500), body["code"])
	assert.Equal(t, "internal server error", body["msg"])
	assert.NotContains(t, w.Body.String(), "secret detail")
}
