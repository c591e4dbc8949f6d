package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/licitaware/procura/pkg/logger"
)

// RequestIDMiddleware adds a unique request ID to each request. The ID is
// echoed in the response header and stored in the request context under the
// key the logger picks up.
func RequestIDMiddleware(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(header)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header(header, requestID)
		ctx := context.WithValue(c.Request.Context(), "request_id", requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// LoggingMiddleware logs each request with method, path, status and latency.
func LoggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.WithContext(c.Request.Context()).WithFields(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":  c.ClientIP(),
		}).Info("request completed")
	}
}

// MaxRequestSizeMiddleware rejects request bodies larger than the limit.
func MaxRequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.AbortWithStatusJSON(413, gin.H{
				"error":   "REQUEST_TOO_LARGE",
				"details": "request body exceeds the size limit",
			})
			return
		}
		c.Next()
	}
}
