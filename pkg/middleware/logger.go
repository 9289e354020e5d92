package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerMiddleware 请求日志中间件
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		method := c.Request.Method

		c.Next()

		// 监控与探活路径不记录
		if strings.HasSuffix(path, "/metrics") || strings.HasSuffix(path, "/health") {
			return
		}

		// GET 只在 debug 级别记录，错误响应总是记录
		level := zapcore.InfoLevel
		status := c.Writer.Status()
		switch {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		case method == "GET":
			level = zapcore.DebugLevel
		}
		if ce := logger.Check(level, "Request"); ce != nil {
			ce.Write(
				zap.Int("status", status),
				zap.String("method", method),
				zap.String("path", path),
				zap.String("query", query),
				zap.String("ip", c.ClientIP()),
				zap.String("user-agent", c.Request.UserAgent()),
				zap.String("request_id", GetRequestID(c)),
				zap.Duration("latency", time.Since(start)),
			)
		}
	}
}
