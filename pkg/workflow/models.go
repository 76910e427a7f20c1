// Package workflow implements the Task Workflow (spec §4.E): a durable
// per-task state machine driving the agent iteration loop, capability
// approval, and finalization.
//
// No durable workflow-engine dependency is used; the closest available
// shape is pkg/queue's Worker/WorkerPool, which polls for claimable
// sessions and carries each one through to a terminal status with a
// cancel-registry for external signals. This package keeps that shape —
// one goroutine per task, a registry of pending signals — but drives it
// off task creation directly rather than a claim-queue poll, since tasks
// here are synchronously started on the HTTP path.
package workflow

import (
	"context"

	"github.com/openclaw/agentcore/pkg/agentstep"
	"github.com/openclaw/agentcore/pkg/imagebuilder"
	"github.com/openclaw/agentcore/pkg/llmgateway"
	"github.com/openclaw/agentcore/pkg/store"
)

// StartRequest carries everything a workflow run needs beyond the task row
// itself: a continuation follow-up (empty for a fresh task) and the
// environment URLs the agent step controller injects into the container.
type StartRequest struct {
	Task            *store.Task
	FollowUp        string
	OllamaURL       string
	ControlPlaneURL string
}

// stepRunner is the narrow surface Manager needs from *agentstep.Controller
// (spec §4.D), mirroring the "accept interfaces" shape used throughout this
// tree.
type stepRunner interface {
	Run(ctx context.Context, req agentstep.Request) (*agentstep.Result, []llmgateway.Turn, error)
}

// imageBuilder is the narrow surface Manager needs from *imagebuilder.Builder.
type imageBuilder interface {
	Build(ctx context.Context, req imagebuilder.BuildRequest) (*imagebuilder.Build, error)
	GetBuild(id string) (*imagebuilder.Build, error)
}

// taskStore is the narrow surface Manager needs from *store.TaskRepository.
type taskStore interface {
	SetState(ctx context.Context, id string, state store.TaskState, errMsg *string) error
	SetCurrentImage(ctx context.Context, id, imageTag string, policyVersion int) error
}

// outputStore is the narrow surface Manager needs from *store.OutputRepository.
type outputStore interface {
	MaxIteration(ctx context.Context, taskID string) (int, error)
	Append(ctx context.Context, o *store.TaskOutput) error
	ListForTask(ctx context.Context, taskID string) ([]*store.TaskOutput, error)
}

// capabilityStore is the narrow surface Manager needs from *store.CapabilityRepository.
type capabilityStore interface {
	Create(ctx context.Context, c *store.CapabilityRequest) error
	Decide(ctx context.Context, id string, newState store.CapabilityState) error
}

// policyStore is the narrow surface Manager needs from *store.PolicyRepository.
type policyStore interface {
	NextVersion(ctx context.Context, taskID string) (int, error)
	Create(ctx context.Context, p *store.Policy) error
}

// deploymentStore is the narrow surface Manager needs from *store.DeploymentRepository.
type deploymentStore interface {
	Create(ctx context.Context, d *store.Deployment) error
}
