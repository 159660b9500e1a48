// Package main provides the campus chatbot server entry point.
package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusbot/campus-chatbot-go/internal/classifier"
	"github.com/campusbot/campus-chatbot-go/internal/config"
	"github.com/campusbot/campus-chatbot-go/internal/dialog"
	"github.com/campusbot/campus-chatbot-go/internal/storage"
	"github.com/campusbot/campus-chatbot-go/internal/web"
)

// setupRoutes configures all HTTP routes
func setupRoutes(router *gin.Engine, handler *web.Handler, db *storage.DB, model *classifier.Model, sessions *dialog.SessionManager, registry *prometheus.Registry, cfg *config.Config) {
	// Health check endpoints
	// Liveness probe - only that the process is running, never dependencies
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/healthz", healthHandler)
	router.HEAD("/healthz", healthHandler)

	// Readiness probe - full dependency check
	readyHandler := func(c *gin.Context) {
		if err := db.Conn().PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"database":   "connected",
			"classifier": model.Trained(),
			"sessions":   sessions.Len(),
		})
	}
	router.GET("/ready", readyHandler)
	router.HEAD("/ready", readyHandler)

	// Chat and feedback API
	router.POST("/chat", handler.Chat)
	router.POST("/feedback", handler.PostFeedback)
	router.GET("/feedback", handler.ListFeedback)

	// Synthesized reply audio
	router.Static(strings.TrimSuffix(web.AudioURLPrefix, "/"), cfg.AudioDir())

	// Prometheus metrics endpoint, behind Basic Auth when a password is set
	metricsHandler := gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if cfg.MetricsPassword != "" {
		authorized := router.Group("/", gin.BasicAuth(gin.Accounts{
			cfg.MetricsUsername: cfg.MetricsPassword,
		}))
		authorized.GET("/metrics", metricsHandler)
	} else {
		router.GET("/metrics", metricsHandler)
	}
}
