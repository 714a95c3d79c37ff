package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/delivery/http/middleware"
	"github.com/lordalex/botilito/internal/notify"
	"github.com/lordalex/botilito/internal/registry"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	Registry    *registry.Registry
	Synthesizer *notify.Synthesizer
	Logger      *zap.Logger
}

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(deps *RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		healthHandler := NewHealthHandler(deps.Registry, deps.Logger)
		v1.GET("/health", healthHandler.Health)

		sessionHandler := NewSessionHandler(deps.Registry, deps.Logger)
		v1.PUT("/session", sessionHandler.Set)

		jobHandler := NewJobHandler(deps.Registry, deps.Logger)
		v1.POST("/jobs", jobHandler.Submit)
		v1.GET("/jobs", jobHandler.List)
		v1.GET("/jobs/:id", jobHandler.GetByID)
		v1.DELETE("/jobs", jobHandler.Clear)

		// WebSocket for real-time updates
		wsHandler := NewWebSocketHandler(deps.Registry, deps.Logger)
		v1.GET("/jobs/:id/stream", wsHandler.Stream)

		taskHandler := NewTaskHandler(deps.Synthesizer, deps.Logger)
		v1.POST("/tasks", taskHandler.Register)
		v1.GET("/tasks", taskHandler.List)
		v1.GET("/tasks/:id/result", taskHandler.Result)

		noteHandler := NewNotificationHandler(deps.Synthesizer, deps.Logger)
		v1.GET("/notifications", noteHandler.List)
		v1.POST("/notifications/read", noteHandler.MarkRead)
	}

	return router
}
