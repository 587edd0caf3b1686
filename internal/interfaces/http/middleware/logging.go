// Package middleware holds the gin middleware shared across routes.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"blocklotto/internal/shared/logger"
)

// RequestLogging logs each request with latency and status.
func RequestLogging(log logger.Interface) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}

		switch {
		case status >= 500:
			log.Errorw("request failed", fields...)
		case status >= 400:
			log.Warnw("request rejected", fields...)
		default:
			log.Debugw("request served", fields...)
		}
	}
}
