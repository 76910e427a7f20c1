package deployment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/openclaw/agentcore/pkg/config"
	"github.com/openclaw/agentcore/pkg/imagebuilder"
	"github.com/openclaw/agentcore/pkg/store"
)

// stopGrace is the time Stop waits after SIGTERM before Remove forces
// container teardown (spec §4.F "Stop").
const stopGrace = 10 * time.Second

// buildPollInterval bounds how often Build polls the image builder for a
// terminal status.
const buildPollInterval = 3 * time.Second

// Manager drives the deployment lifecycle. A single instance is shared by
// every HTTP handler that touches deployments.
type Manager struct {
	engine  containerEngine
	builder imageBuilder
	store   deploymentStore
	ports   config.DeploymentPortRange

	// portScan deduplicates concurrent Start calls racing to read the
	// current host-port usage, the same way the container engine's own
	// pullMu collapses concurrent pulls of one image reference.
	portScan singleflight.Group

	logger *slog.Logger
}

// New constructs a Manager.
func New(engine containerEngine, builder imageBuilder, repo deploymentStore, ports config.DeploymentPortRange) *Manager {
	return &Manager{
		engine:  engine,
		builder: builder,
		store:   repo,
		ports:   ports,
		logger:  slog.Default(),
	}
}

// Approve implements `POST /deployments/{id}/approve` (spec §4.F
// "Approve"). A denial moves the deployment straight to failed with the
// reviewer's note; an approval runs Build, which returns only once the
// image builder reports a terminal status.
func (m *Manager) Approve(ctx context.Context, id string, approved bool, notes string) error {
	if !approved {
		return m.store.SetState(ctx, id, store.DeploymentFailed, notes)
	}
	if err := m.store.SetState(ctx, id, store.DeploymentApproved, notes); err != nil {
		return err
	}
	return m.Build(ctx, id)
}

// Build calls the image builder's deployment endpoint and polls it to a
// terminal status, storing the resulting image tag on success (spec §4.F
// "Build"). A build failure leaves the deployment in failed with the
// builder's error recorded as notes.
func (m *Manager) Build(ctx context.Context, id string) error {
	d, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := m.store.SetState(ctx, id, store.DeploymentBuilding, ""); err != nil {
		return err
	}

	build, err := m.builder.BuildDeployment(ctx, imagebuilder.DeploymentBuildRequest{
		DeploymentID: d.ID,
		TaskID:       d.TaskID,
		Entrypoint:   d.Entrypoint,
		Port:         d.Port,
		Files:        d.Files,
	})
	if err != nil {
		_ = m.store.SetState(ctx, id, store.DeploymentFailed, err.Error())
		return err
	}

	final := m.pollBuild(ctx, build.ID)
	if final == nil {
		_ = m.store.SetState(ctx, id, store.DeploymentFailed, "build timed out or was interrupted")
		return fmt.Errorf("deployment %s: build %s did not reach a terminal status", id, build.ID)
	}
	if final.Status != imagebuilder.BuildSuccess {
		_ = m.store.SetState(ctx, id, store.DeploymentFailed, final.Error)
		return fmt.Errorf("deployment %s: build %s failed: %s", id, build.ID, final.Error)
	}

	return m.store.SetImage(ctx, id, final.ImageTag)
}

func (m *Manager) pollBuild(ctx context.Context, buildID string) *imagebuilder.Build {
	ticker := time.NewTicker(buildPollInterval)
	defer ticker.Stop()
	for {
		b, err := m.builder.GetBuild(buildID)
		if err == nil && (b.Status == imagebuilder.BuildSuccess || b.Status == imagebuilder.BuildFailed) {
			return b
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
