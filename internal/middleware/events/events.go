// Package events provides middleware for request tracing and logging
package events

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/urna-api/internal/logger"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// CreateEvent returns a middleware function that logs request details
func CreateEvent() gin.HandlerFunc {
	log := logger.HTTP()

	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		log.Debug("Request started",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"remote_addr", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)

		c.Next()

		latency := time.Since(startTime)
		status := c.Writer.Status()

		logLevel := log.Info
		if status >= 500 {
			logLevel = log.Error
		} else if status >= 400 {
			logLevel = log.Warn
		}

		// route template, so ids do not end up in the log key space
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		logLevel("Request completed",
			"request_id", requestID,
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency", latency,
			"size", c.Writer.Size(),
		)
	}
}
