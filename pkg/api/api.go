// Package api implements the HTTP control plane (spec §6): the surface a
// human reviewer or calling service uses to create tasks, review capability
// requests, and manage deployments. It mounts the LLM gateway's and image
// builder's own routers (pkg/llmgateway, pkg/imagebuilder) alongside its own
// handlers on one gin.Engine per process rather than one process per
// service.
package api

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/openclaw/agentcore/pkg/store"
	"github.com/openclaw/agentcore/pkg/workflow"
)

// workflowManager is the narrow surface handlers need from *workflow.Manager.
type workflowManager interface {
	Start(req workflow.StartRequest)
	Pause(taskID string) bool
	IsRunning(taskID string) bool
	ApproveCapability(requestID string, approved bool) bool
}

// deploymentManager is the narrow surface handlers need from *deployment.Manager.
type deploymentManager interface {
	Approve(ctx context.Context, id string, approved bool, notes string) error
	Build(ctx context.Context, id string) error
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
}

type taskStore interface {
	Create(ctx context.Context, t *store.Task) error
	Get(ctx context.Context, id string) (*store.Task, error)
	List(ctx context.Context) ([]*store.Task, error)
	SetState(ctx context.Context, id string, state store.TaskState, errMsg *string) error
	SetWorkflow(ctx context.Context, id, workflowID, runID string) error
}

type outputStore interface {
	ListForTask(ctx context.Context, taskID string) ([]*store.TaskOutput, error)
}

type messageStore interface {
	Append(ctx context.Context, m *store.TaskMessage) error
	ListForTask(ctx context.Context, taskID string) ([]*store.TaskMessage, error)
}

type capabilityStore interface {
	Get(ctx context.Context, id string) (*store.CapabilityRequest, error)
	Decide(ctx context.Context, id string, newState store.CapabilityState) error
}

type deploymentStore interface {
	Create(ctx context.Context, d *store.Deployment) error
	Get(ctx context.Context, id string) (*store.Deployment, error)
}

// routeRegistrar mounts an already-built sub-router (the LLM gateway's or image
// builder's own RegisterRoutes) onto the control plane's gin.Engine.
type routeRegistrar interface {
	RegisterRoutes(r gin.IRouter)
}

// Server holds every dependency the control plane's handlers call into. It
// is deliberately built from narrow interfaces rather than concrete types
// so it can be exercised with fakes in tests the way pkg/workflow and
// pkg/deployment already are.
type Server struct {
	Workflows    workflowManager
	Deployments  deploymentManager
	Tasks        taskStore
	Outputs      outputStore
	Messages     messageStore
	Capabilities capabilityStore
	DeploymentDB deploymentStore

	LLMGateway   routeRegistrar
	ImageBuilder routeRegistrar

	ControlPlaneURL string
	OllamaURL       string

	logger *slog.Logger
}

// New constructs a Server. Any Register* caller wires it onto a *gin.Engine
// via Server.RegisterRoutes.
func New(s Server) *Server {
	s.logger = slog.Default()
	return &s
}
