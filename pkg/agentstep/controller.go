package agentstep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"golang.org/x/sync/errgroup"

	"github.com/openclaw/agentcore/pkg/config"
	"github.com/openclaw/agentcore/pkg/containerengine"
	"github.com/openclaw/agentcore/pkg/llmgateway"
)

// workspaceMountPath is the fixed in-container location the per-task
// workspace is mounted at (spec §4.D step 4).
const workspaceMountPath = "/workspace"

// dockerEngine is the narrow surface the controller needs from
// *containerengine.Engine, mirroring the same "accept interfaces" pattern
// used by pkg/imagebuilder.
type dockerEngine interface {
	Resolve(ctx context.Context, tag, registry string) (string, error)
	RunDetached(ctx context.Context, spec containerengine.RunSpec) (string, error)
	Wait(ctx context.Context, containerID string) (int64, error)
	Logs(ctx context.Context, containerID string) (string, error)
	Inspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	Remove(ctx context.Context, containerID string) error
}

// Controller runs one agent iteration end to end (spec §4.D).
type Controller struct {
	engine   dockerEngine
	registry string
	cfg      *config.WorkflowConfig
	logger   *slog.Logger
}

// New constructs a Controller.
func New(engine dockerEngine, registry string, cfg *config.WorkflowConfig) *Controller {
	return &Controller{engine: engine, registry: registry, cfg: cfg, logger: slog.Default()}
}

// Run executes one iteration and always returns a Result envelope plus
// every interaction turn recorded during it, so the caller can surface
// each as its own activity (spec §4.E "so every recorded turn becomes its
// own visible activity"). Only errors the caller cannot reasonably recover
// from are returned as the error value; recoverable failures (image
// resolution, launch, a crashed agent) are folded into Result.AgentFailed
// instead (spec §4.D "The envelope returned to the workflow").
func (c *Controller) Run(ctx context.Context, req Request) (*Result, []llmgateway.Turn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.IterationTimeout)
	defer cancel()

	now := time.Now()
	base := &Result{Iteration: req.Iteration, Image: req.Image, Timestamp: now}

	resolved, err := c.engine.Resolve(ctx, req.Image, c.registry)
	if err != nil {
		if errors.Is(err, containerengine.ErrImageNotFound) {
			base.AgentFailed = true
			base.Error = fmt.Sprintf("image not found: %v", err)
			return base, nil, nil
		}
		return nil, nil, fmt.Errorf("resolve image: %w", err)
	}
	base.Image = resolved

	if err := os.MkdirAll(req.WorkspaceDir, 0o777); err != nil {
		return nil, nil, fmt.Errorf("prepare workspace %s: %w", req.WorkspaceDir, err)
	}

	containerID, err := c.engine.RunDetached(ctx, containerengine.RunSpec{
		Image:        resolved,
		Env:          composeEnv(req),
		WorkspaceDir: req.WorkspaceDir,
		MountPath:    workspaceMountPath,
		HostNetwork:  true,
	})
	if err != nil {
		base.AgentFailed = true
		base.Error = fmt.Sprintf("launch container: %v", err)
		return base, nil, nil
	}
	defer func() {
		removeCtx, removeCancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer removeCancel()
		if err := c.engine.Remove(removeCtx, containerID); err != nil {
			c.logger.Warn("agentstep: failed to remove iteration container", "container_id", containerID, "error", err)
		}
	}()

	turns, waitErr := c.pollUntilExit(ctx, containerID, req.TaskID, req.ControlPlaneURL+"/api/llm")

	containerLog, logErr := c.engine.Logs(context.WithoutCancel(ctx), containerID)
	if logErr != nil {
		c.logger.Warn("agentstep: failed to fetch container logs", "container_id", containerID, "error", logErr)
	}

	return c.harvest(req, base, containerLog, waitErr), turns, nil
}

// pollUntilExit implements spec §4.D step 5: every ~3s, drain new
// interaction turns while the container is running. One goroutine waits
// for the exit code; the other polls the gateway until the first goroutine
// signals completion.
func (c *Controller) pollUntilExit(ctx context.Context, containerID, taskID, gatewayURL string) ([]llmgateway.Turn, error) {
	client := newGatewayClient(gatewayURL)

	var (
		mu    sync.Mutex
		turns []llmgateway.Turn
		since int
	)

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		_, err := c.engine.Wait(gctx, containerID)
		stopPolling()
		return err
	})
	group.Go(func() error {
		ticker := time.NewTicker(c.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				// Drain one final time so trailing turns are not lost
				// (spec §4.D step 7 "Drain the interaction buffer one
				// last time").
				newTurns, err := client.since(context.WithoutCancel(ctx), taskID, since)
				if err == nil && len(newTurns) > 0 {
					mu.Lock()
					turns = append(turns, newTurns...)
					mu.Unlock()
				}
				return nil
			case <-ticker.C:
				newTurns, err := client.since(ctx, taskID, since)
				if err != nil {
					continue
				}
				if len(newTurns) == 0 {
					continue
				}
				mu.Lock()
				turns = append(turns, newTurns...)
				mu.Unlock()
				since = newTurns[len(newTurns)-1].Ordinal
			}
		}
	})

	err := group.Wait()
	mu.Lock()
	defer mu.Unlock()
	return append([]llmgateway.Turn(nil), turns...), err
}
