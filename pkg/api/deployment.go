package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openclaw/agentcore/pkg/apierrors"
)

func (s *Server) handleGetDeployment(c *gin.Context) {
	d, err := s.DeploymentDB.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

type approveDeploymentRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes"`
}

// handleApproveDeployment implements `POST /api/deployments/:id/approve`
// (spec §4.F "Approve"). Approval synchronously kicks off the build; the
// caller polls GET /:id for the resulting state.
func (s *Server) handleApproveDeployment(c *gin.Context) {
	var req approveDeploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Deployments.Approve(c.Request.Context(), c.Param("id"), req.Approved, req.Notes); err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	d, err := s.DeploymentDB.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

// handleStartDeployment implements `POST /api/deployments/:id/start` (spec
// §4.F "Start"): binds the built image to the lowest free host port in the
// configured range and runs it detached.
func (s *Server) handleStartDeployment(c *gin.Context) {
	id := c.Param("id")
	if err := s.Deployments.Start(c.Request.Context(), id); err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	d, err := s.DeploymentDB.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

// handleStopDeployment implements `POST /api/deployments/:id/stop` (spec
// §4.F "Stop").
func (s *Server) handleStopDeployment(c *gin.Context) {
	id := c.Param("id")
	if err := s.Deployments.Stop(c.Request.Context(), id); err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	d, err := s.DeploymentDB.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}
