package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openclaw/agentcore/pkg/apierrors"
	"github.com/openclaw/agentcore/pkg/store"
	"github.com/openclaw/agentcore/pkg/workflow"
)

// nextWorkflowID names the workflow instance a Start or Continue call
// launches (spec §8 scenario 6: "a new workflow task-workflow-{id}-cont-1
// starts"); Resume keeps the workflow id already recorded on the task. This
// mirrors the naming a durable workflow engine would assign
// for free, computed here since this tree runs workflows as plain
// goroutines (DESIGN.md, Open Question #1).
func nextWorkflowID(task *store.Task) string {
	base := "task-workflow-" + task.ID
	if task.WorkflowID == "" {
		return base
	}
	n := 0
	if idx := strings.LastIndex(task.WorkflowID, "-cont-"); idx >= 0 {
		if v, err := strconv.Atoi(task.WorkflowID[idx+len("-cont-"):]); err == nil {
			n = v
		}
	}
	return fmt.Sprintf("%s-cont-%d", base, n+1)
}

type createTaskRequest struct {
	Name   string `json:"name" binding:"required"`
	Prompt string `json:"prompt" binding:"required"`
	Model  string `json:"model"`
}

// handleCreateTask implements `POST /api/tasks` (spec §3 "Task"). The task
// is created in TaskStateCreated; the caller issues a separate
// `POST /:id/start` to launch its workflow, mirroring the split between
// "CapabilityRequest created" and "decision delivered" used elsewhere in
// this tree.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task := &store.Task{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Prompt:      req.Prompt,
		Model:       req.Model,
		State:       store.TaskStateCreated,
		WorkspaceID: uuid.NewString(),
	}
	if err := s.Tasks.Create(c.Request.Context(), task); err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.Tasks.List(c.Request.Context())
	if err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.Tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleListOutputs(c *gin.Context) {
	outputs, err := s.Outputs.ListForTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, outputs)
}

func (s *Server) handleListMessages(c *gin.Context) {
	msgs, err := s.Messages.ListForTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

type postMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *Server) handlePostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg := &store.TaskMessage{
		ID:      uuid.NewString(),
		TaskID:  c.Param("id"),
		Role:    store.MessageRoleUser,
		Content: req.Content,
	}
	if err := s.Messages.Append(c.Request.Context(), msg); err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// handleStartTask implements `POST /api/tasks/:id/start` (spec §4.E). A
// task not in TaskStateCreated cannot be (re-)started this way; use
// /resume or /continue instead (spec §7 "StateConflict").
func (s *Server) handleStartTask(c *gin.Context) {
	task, err := s.Tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	if task.State != store.TaskStateCreated {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("task %s is in state %s, not created", task.ID, task.State)})
		return
	}
	workflowID := nextWorkflowID(task)
	if err := s.Tasks.SetWorkflow(c.Request.Context(), task.ID, workflowID, uuid.NewString()); err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	s.Workflows.Start(workflow.StartRequest{Task: task, ControlPlaneURL: s.ControlPlaneURL, OllamaURL: s.OllamaURL})
	c.JSON(http.StatusAccepted, gin.H{"task_id": task.ID, "workflow_id": workflowID, "state": store.TaskStateRunning})
}

// handlePauseTask implements `POST /api/tasks/:id/pause`, cancelling the
// in-flight workflow goroutine without marking the task failed (spec §4.E
// "Pause").
func (s *Server) handlePauseTask(c *gin.Context) {
	id := c.Param("id")
	if !s.Workflows.Pause(id) {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("task %s has no running workflow", id)})
		return
	}
	errMsg := "paused by reviewer"
	if err := s.Tasks.SetState(c.Request.Context(), id, store.TaskStatePaused, &errMsg); err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": id, "state": store.TaskStatePaused})
}

// handleResumeTask restarts a paused task's workflow from its last stored
// iteration (spec §4.E "startIteration resolved from outputs").
func (s *Server) handleResumeTask(c *gin.Context) {
	task, err := s.Tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	if task.State != store.TaskStatePaused {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("task %s is in state %s, not paused", task.ID, task.State)})
		return
	}
	s.Workflows.Start(workflow.StartRequest{Task: task, ControlPlaneURL: s.ControlPlaneURL, OllamaURL: s.OllamaURL})
	c.JSON(http.StatusAccepted, gin.H{"task_id": task.ID, "state": store.TaskStateRunning})
}

type continueTaskRequest struct {
	FollowUp string `json:"follow_up" binding:"required"`
}

// handleContinueTask implements spec §8 scenario 6: a follow-up on a
// completed task starts a fresh workflow run seeded with the prior
// iteration's current image and a continuation preamble.
func (s *Server) handleContinueTask(c *gin.Context) {
	var req continueTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := s.Tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	if task.State != store.TaskStateCompleted && task.State != store.TaskStateFailed {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("task %s is in state %s, not terminal", task.ID, task.State)})
		return
	}
	workflowID := nextWorkflowID(task)
	if err := s.Tasks.SetWorkflow(c.Request.Context(), task.ID, workflowID, uuid.NewString()); err != nil {
		c.JSON(apierrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	s.Workflows.Start(workflow.StartRequest{Task: task, FollowUp: req.FollowUp, ControlPlaneURL: s.ControlPlaneURL, OllamaURL: s.OllamaURL})
	c.JSON(http.StatusAccepted, gin.H{"task_id": task.ID, "workflow_id": workflowID, "state": store.TaskStateRunning})
}
