package deployment

import (
	"context"
	"fmt"

	"github.com/openclaw/agentcore/pkg/containerengine"
)

// ErrNoFreePort is returned by Start when every port in the configured
// range is already held by a running deployment (spec §4.F "Start", §5
// "error if none free").
var ErrNoFreePort = fmt.Errorf("deployment: no free host port in range")

// portScanKey is constant: every Start call contends over the same global
// port range, so a single singleflight key collapses concurrent scans.
const portScanKey = "scan"

// Start runs the built deployment image detached, binding its declared
// port to the lowest free host port in the configured range (spec §4.F
// "Start"). The scan-and-pick is not transactional with the eventual bind:
// a second writer racing for the same port is expected to fail the
// container run and can safely retry (spec §5 "Shared-resource policy").
func (m *Manager) Start(ctx context.Context, id string) error {
	d, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if d.ImageTag == "" {
		return fmt.Errorf("deployment %s: no built image to start", id)
	}

	hostPort, err := m.pickFreePort(ctx)
	if err != nil {
		return err
	}

	containerID, err := m.engine.RunDetached(ctx, containerengine.RunSpec{
		Image:         d.ImageTag,
		PortBindings:  map[int]int{d.Port: hostPort},
		RestartPolicy: "unless-stopped",
		Labels: map[string]string{
			"agentcore.deployment_id": d.ID,
			"agentcore.task_id":       d.TaskID,
		},
	})
	if err != nil {
		return err
	}

	info, err := m.engine.Inspect(ctx, containerID)
	if err != nil || !info.State.Running {
		_ = m.engine.Remove(ctx, containerID)
		if err == nil {
			err = fmt.Errorf("deployment %s: container %s exited immediately after start", id, containerID)
		}
		return err
	}

	url := fmt.Sprintf("http://localhost:%d", hostPort)
	return m.store.SetRunning(ctx, id, containerID, hostPort, url)
}

// pickFreePort reads the host ports the store records for running
// deployments and returns the lowest free one in the configured range. It
// does not scan the container daemon, so a port held by a container the
// store does not know about is not seen as taken.
func (m *Manager) pickFreePort(ctx context.Context) (int, error) {
	v, err, _ := m.portScan.Do(portScanKey, func() (interface{}, error) {
		return m.store.UsedHostPorts(ctx)
	})
	if err != nil {
		return 0, err
	}
	used := v.(map[int]struct{})
	for p := m.ports.Min; p <= m.ports.Max; p++ {
		if _, taken := used[p]; !taken {
			return p, nil
		}
	}
	return 0, ErrNoFreePort
}

// Stop sends SIGTERM with a grace period, removes the container, and clears
// the deployment's runtime fields (spec §4.F "Stop").
func (m *Manager) Stop(ctx context.Context, id string) error {
	d, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if d.ContainerID == "" {
		return m.store.ClearRuntime(ctx, id)
	}

	if err := m.engine.Stop(ctx, d.ContainerID, stopGrace); err != nil {
		m.logger.Warn("failed to stop deployment container", "deployment_id", id, "container_id", d.ContainerID, "error", err)
	}
	if err := m.engine.Remove(ctx, d.ContainerID); err != nil {
		m.logger.Warn("failed to remove deployment container", "deployment_id", id, "container_id", d.ContainerID, "error", err)
	}

	return m.store.ClearRuntime(ctx, id)
}
