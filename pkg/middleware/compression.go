package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// CompressionConfig represents compression middleware configuration
type CompressionConfig struct {
	// Compression level (1-9, default: 6)
	Level int
	// Exclude paths from compression
	ExcludePaths []string
	// DecompressRequests 解压 Content-Encoding: gzip 的请求体，批量写文档时有用
	DecompressRequests bool
}

// DefaultCompressionConfig returns default compression configuration
func DefaultCompressionConfig() *CompressionConfig {
	return &CompressionConfig{
		Level:              gzip.DefaultCompression,
		ExcludePaths:       []string{"/metrics", "/health"},
		DecompressRequests: true,
	}
}

// CompressionMiddleware creates compression middleware
func CompressionMiddleware(config *CompressionConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultCompressionConfig()
	}
	opts := []gzip.Option{gzip.WithExcludedPaths(config.ExcludePaths)}
	if config.DecompressRequests {
		opts = append(opts, gzip.WithDecompressFn(gzip.DefaultDecompressHandle))
	}
	return gzip.Gzip(config.Level, opts...)
}
