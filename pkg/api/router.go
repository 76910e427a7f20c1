package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openclaw/agentcore/pkg/database"
)

// HealthChecker is the narrow surface RegisterRoutes needs for /healthz and
// /readyz, satisfied by *sql.DB via database.Health.
type HealthChecker func(ctx context.Context) (*database.HealthStatus, error)

// RegisterRoutes mounts the full control-plane surface (spec §6) on r,
// including the LLM gateway under /api/llm (the fixed mount
// pkg/agentstep's composeEnv hardcodes as LLM_ROUTER_URL) and the image
// builder under /api/build.
func (s *Server) RegisterRoutes(r *gin.Engine, health HealthChecker) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		status, err := health(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": status, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "database": status})
	})

	api := r.Group("/api")

	tasks := api.Group("/tasks")
	tasks.POST("", s.handleCreateTask)
	tasks.GET("", s.handleListTasks)
	tasks.GET("/:id", s.handleGetTask)
	tasks.GET("/:id/outputs", s.handleListOutputs)
	tasks.GET("/:id/messages", s.handleListMessages)
	tasks.POST("/:id/messages", s.handlePostMessage)
	tasks.POST("/:id/start", s.handleStartTask)
	tasks.POST("/:id/pause", s.handlePauseTask)
	tasks.POST("/:id/resume", s.handleResumeTask)
	tasks.POST("/:id/continue", s.handleContinueTask)

	caps := api.Group("/capabilities")
	caps.GET("/:id", s.handleGetCapability)
	caps.POST("/:id/review", s.handleReviewCapability)

	deploys := api.Group("/deployments")
	deploys.GET("/:id", s.handleGetDeployment)
	deploys.POST("/:id/approve", s.handleApproveDeployment)
	deploys.POST("/:id/start", s.handleStartDeployment)
	deploys.POST("/:id/stop", s.handleStopDeployment)

	if s.LLMGateway != nil {
		s.LLMGateway.RegisterRoutes(api.Group("/llm"))
	}
	if s.ImageBuilder != nil {
		s.ImageBuilder.RegisterRoutes(api.Group("/build"))
	}
}
