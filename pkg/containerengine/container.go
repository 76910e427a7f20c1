package containerengine

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

// RunSpec describes a container to launch. It is intentionally narrow: the
// agent step controller and deployment lifecycle are the only two callers,
// and neither needs the full surface of container.Config.
type RunSpec struct {
	Image       string
	Env         []string
	WorkspaceDir string // host path mounted into the container
	MountPath    string // in-container mount point for WorkspaceDir
	HostNetwork  bool
	PortBindings map[int]int // container port -> host port, ignored when HostNetwork is set
	Labels       map[string]string
	RestartPolicy string // "", or "unless-stopped" for long-running deployments
}

// RunDetached launches a container and returns its id without waiting for
// it to exit (spec §4.D "Launch detached").
func (e *Engine) RunDetached(ctx context.Context, spec RunSpec) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultOperationTimeout)
	defer cancel()

	cfg := &container.Config{
		Image:  spec.Image,
		Env:    spec.Env,
		Labels: spec.Labels,
	}

	hostCfg := &container.HostConfig{
		Tmpfs: map[string]string{"/tmp": "rw,size=512m"},
	}
	if spec.RestartPolicy != "" {
		hostCfg.RestartPolicy = container.RestartPolicy{Name: container.RestartPolicyMode(spec.RestartPolicy)}
	}
	if spec.HostNetwork {
		hostCfg.NetworkMode = "host"
	} else if len(spec.PortBindings) > 0 {
		cfg.ExposedPorts = nat.PortSet{}
		hostCfg.PortBindings = nat.PortMap{}
		for containerPort, hostPort := range spec.PortBindings {
			port := nat.Port(fmt.Sprintf("%d/tcp", containerPort))
			cfg.ExposedPorts[port] = struct{}{}
			hostCfg.PortBindings[port] = []nat.PortBinding{
				{HostIP: "0.0.0.0", HostPort: fmt.Sprintf("%d", hostPort)},
			}
		}
	}
	if spec.WorkspaceDir != "" {
		hostCfg.Mounts = []mount.Mount{{
			Type:   mount.TypeBind,
			Source: spec.WorkspaceDir,
			Target: spec.MountPath,
		}}
	}

	created, err := e.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		if isNotFoundErr(err) {
			return "", fmt.Errorf("%w: %s: %v", ErrImageNotFound, spec.Image, err)
		}
		return "", fmt.Errorf("%w: create container from %s: %v", ErrRuntimeUnavailable, spec.Image, err)
	}

	if err := e.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("%w: start container %s: %v", ErrRuntimeUnavailable, created.ID, err)
	}

	return created.ID, nil
}

// Wait blocks until the container exits or the context is cancelled,
// returning its exit code.
func (e *Engine) Wait(ctx context.Context, containerID string) (int64, error) {
	statusCh, errCh := e.cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			if ctx.Err() != nil {
				return 0, fmt.Errorf("%w: waiting on %s: %v", ErrTimeout, containerID, err)
			}
			return 0, fmt.Errorf("%w: waiting on %s: %v", ErrRuntimeUnavailable, containerID, err)
		}
		return 0, nil
	case status := <-statusCh:
		return status.StatusCode, nil
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: waiting on %s", ErrTimeout, containerID)
	}
}

// Logs returns the full stdout+stderr of a container, demultiplexed.
func (e *Engine) Logs(ctx context.Context, containerID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultOperationTimeout)
	defer cancel()

	rc, err := e.cli.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		if client.IsErrNotFound(err) {
			return "", fmt.Errorf("%w: %s", ErrContainerNotFound, containerID)
		}
		return "", fmt.Errorf("%w: logs for %s: %v", ErrRuntimeUnavailable, containerID, err)
	}
	defer rc.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, rc); err != nil {
		return "", fmt.Errorf("%w: demuxing logs for %s: %v", ErrRuntimeUnavailable, containerID, err)
	}

	return stdout.String() + stderr.String(), nil
}

// Inspect returns the raw container state, used to read the assigned host
// port back out after a deployment start.
func (e *Engine) Inspect(ctx context.Context, containerID string) (container.InspectResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultOperationTimeout)
	defer cancel()

	info, err := e.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return container.InspectResponse{}, fmt.Errorf("%w: %s", ErrContainerNotFound, containerID)
		}
		return container.InspectResponse{}, fmt.Errorf("%w: inspect %s: %v", ErrRuntimeUnavailable, containerID, err)
	}
	return info, nil
}

// Stop sends SIGTERM, waits grace before SIGKILL, per spec §4.F "Stop".
func (e *Engine) Stop(ctx context.Context, containerID string, grace time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, defaultOperationTimeout+grace)
	defer cancel()

	seconds := int(grace.Seconds())
	if err := e.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &seconds}); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("%w: stop %s: %v", ErrRuntimeUnavailable, containerID, err)
	}
	return nil
}

// Remove deletes a stopped container.
func (e *Engine) Remove(ctx context.Context, containerID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultOperationTimeout)
	defer cancel()

	if err := e.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("%w: remove %s: %v", ErrRuntimeUnavailable, containerID, err)
	}
	return nil
}

// UsedHostPorts scans running containers for published host ports. The
// deployment start path does not call it; it picks ports from pkg/store's
// DB-recorded ports only.
func (e *Engine) UsedHostPorts(ctx context.Context) (map[int]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultOperationTimeout)
	defer cancel()

	containers, err := e.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: list containers: %v", ErrRuntimeUnavailable, err)
	}

	used := map[int]struct{}{}
	for _, c := range containers {
		for _, p := range c.Ports {
			if p.PublicPort != 0 {
				used[int(p.PublicPort)] = struct{}{}
			}
		}
	}
	return used, nil
}
