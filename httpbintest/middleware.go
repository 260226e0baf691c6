package httpbintest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/courier/logger"
)

const headerRequestID = "X-Request-Id"

// requestID echoes the caller's X-Request-Id or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(logger.FieldRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// recovery turns a handler panic into a 500 with an httpbin-style body.
func recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprint(r),
					"path", c.Request.URL.Path,
					logger.FieldMethod, c.Request.Method,
				))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{"code": "INTERNAL_ERROR", "message": "Internal server error"},
				})
			}
		}()
		c.Next()
	}
}

// requestLogger logs each request, at warn for 4xx and error for 5xx.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := logger.Fields(
			logger.FieldMethod, c.Request.Method,
			"path", c.Request.URL.Path,
			logger.FieldStatusCode, status,
			logger.FieldDuration, time.Since(start).Milliseconds(),
			logger.FieldRequestID, c.GetString(logger.FieldRequestID),
		)
		switch {
		case status >= 500:
			log.Error("request completed", fields)
		case status >= 400:
			log.Warn("request completed", fields)
		default:
			log.Debug("request completed", fields)
		}
	}
}
