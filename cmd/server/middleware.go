// Package main provides the campus chatbot server entry point.
package main

import (
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/campusbot/campus-chatbot-go/internal/logger"
	"github.com/campusbot/campus-chatbot-go/internal/sentry"
)

// securityHeadersMiddleware adds security headers to all responses
// Reference: https://gin-gonic.com/en/docs/examples/security-headers
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent MIME type sniffing
		c.Header("X-Content-Type-Options", "nosniff")
		// Prevent clickjacking
		c.Header("X-Frame-Options", "DENY")
		// Enable XSS filter in browsers
		c.Header("X-XSS-Protection", "1; mode=block")
		// Strict referrer policy
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		// Restrict permissions
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		// Log request
		duration := time.Since(start)
		status := c.Writer.Status()

		entry := log.WithField("method", method).
			WithField("path", path).
			WithField("status", status).
			WithField("duration_ms", duration.Milliseconds()).
			WithField("ip", c.ClientIP())

		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Error("Request completed with errors")
		} else {
			switch {
			case status >= 500:
				entry.Error("Request failed")
			case status >= 400:
				entry.Warn("Request completed with client error")
			default:
				entry.Debug("Request completed")
			}
		}
	}
}

// errorTrackingMiddleware reports handler panics to Sentry. A no-op
// passthrough when error tracking is not configured.
func errorTrackingMiddleware() gin.HandlerFunc {
	if !sentry.IsEnabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return sentrygin.New(sentrygin.Options{
		Repanic: true, // gin.Recovery() runs outside and produces the 500
	})
}
