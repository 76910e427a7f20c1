package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openclaw/agentcore/pkg/apierrors"
	"github.com/openclaw/agentcore/pkg/store"
)

func (s *Server) handleGetCapability(c *gin.Context) {
	req, err := s.Capabilities.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, req)
}

type reviewCapabilityRequest struct {
	Approved bool `json:"approved"`
}

// handleReviewCapability implements `POST /api/capabilities/:id/review`
// (spec §4.E "Approving" state, §8 "Signal uniqueness"). It records the
// CapabilityRequest's terminal state and, independently, delivers the
// approve_capability signal to whichever workflow instance is waiting on
// it; the two can race harmlessly since Manager.ApproveCapability is a
// best-effort, at-most-once delivery and a request that's already timed
// out simply has no listener left.
func (s *Server) handleReviewCapability(c *gin.Context) {
	var req reviewCapabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	newState := store.CapabilityDenied
	if req.Approved {
		newState = store.CapabilityApproved
	}
	if err := s.Capabilities.Decide(c.Request.Context(), id, newState); err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}

	delivered := s.Workflows.ApproveCapability(id, req.Approved)
	c.JSON(http.StatusOK, gin.H{"capability_id": id, "state": newState, "delivered": delivered})
}
