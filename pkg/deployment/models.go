// Package deployment implements the Deployment Lifecycle (spec §4.F):
// Create -> Approve -> Build -> Start -> Stop for long-running containers
// built from a completed task's workspace.
//
// The closest available shape for "promote a workspace to a running
// service" is pkg/queue's claim-and-execute pattern, generalized here to a
// handful of short-lived, independently invoked operations instead of one
// long-running loop, since each lifecycle step is triggered synchronously
// from the HTTP surface rather than polled.
package deployment

import (
	"context"
	"time"

	"github.com/docker/docker/api/types/container"

	"github.com/openclaw/agentcore/pkg/containerengine"
	"github.com/openclaw/agentcore/pkg/imagebuilder"
	"github.com/openclaw/agentcore/pkg/store"
)

// containerEngine is the narrow surface Manager needs from *containerengine.Engine.
type containerEngine interface {
	RunDetached(ctx context.Context, spec containerengine.RunSpec) (string, error)
	Stop(ctx context.Context, containerID string, grace time.Duration) error
	Remove(ctx context.Context, containerID string) error
	Inspect(ctx context.Context, containerID string) (container.InspectResponse, error)
}

// imageBuilder is the narrow surface Manager needs from *imagebuilder.Builder.
type imageBuilder interface {
	BuildDeployment(ctx context.Context, req imagebuilder.DeploymentBuildRequest) (*imagebuilder.Build, error)
	GetBuild(id string) (*imagebuilder.Build, error)
}

// deploymentStore is the narrow surface Manager needs from *store.DeploymentRepository.
type deploymentStore interface {
	Get(ctx context.Context, id string) (*store.Deployment, error)
	SetState(ctx context.Context, id string, state store.DeploymentState, notes string) error
	SetImage(ctx context.Context, id, imageTag string) error
	SetRunning(ctx context.Context, id, containerID string, hostPort int, url string) error
	ClearRuntime(ctx context.Context, id string) error
	UsedHostPorts(ctx context.Context) (map[int]struct{}, error)
}
