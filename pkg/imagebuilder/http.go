package imagebuilder

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// buildResponse is the wire shape returned by both POST /build and
// GET /builds/{id} (spec §4.B).
type buildResponse struct {
	BuildID  string `json:"build_id"`
	ImageTag string `json:"image_tag"`
	Status   BuildStatus `json:"status"`
	Digest   string `json:"digest,omitempty"`
	Error    string `json:"error,omitempty"`
	Logs     string `json:"logs,omitempty"`
}

func toResponse(b *Build) buildResponse {
	return buildResponse{
		BuildID:  b.ID,
		ImageTag: b.ImageTag,
		Status:   b.Status,
		Digest:   b.Digest,
		Error:    b.Error,
		Logs:     b.Logs,
	}
}

// RegisterRoutes mounts the image builder's HTTP contract (spec §4.B) on r.
func (b *Builder) RegisterRoutes(r gin.IRouter) {
	r.POST("/build", b.handleBuild)
	r.GET("/builds/:id", b.handleGetBuild)
	r.POST("/build-deployment", b.handleBuildDeployment)
}

func (b *Builder) handleBuild(c *gin.Context) {
	var req BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TaskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_id is required"})
		return
	}

	build, err := b.Build(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, toResponse(build))
}

func (b *Builder) handleGetBuild(c *gin.Context) {
	build, err := b.GetBuild(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toResponse(build))
}

func (b *Builder) handleBuildDeployment(c *gin.Context) {
	var req DeploymentBuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DeploymentID == "" || req.TaskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deployment_id and task_id are required"})
		return
	}

	build, err := b.BuildDeployment(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, toResponse(build))
}
