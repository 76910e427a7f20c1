// Package containerengine is the Container Runtime Adapter (spec §4.A): the
// only component that talks to the Docker daemon. Every other component
// reaches containers through this package, never through the docker client
// directly.
package containerengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/client"
)

// defaultOperationTimeout bounds a single daemon call (not a container's
// own execution, which is governed by the workflow's IterationTimeout).
const defaultOperationTimeout = 30 * time.Second

// Engine wraps a Docker Engine API client. One Engine is shared by every
// caller in a process; the underlying client multiplexes requests over a
// single connection, so there is no per-resource session to manage the way
// pkg/mcp manages one session per MCP server.
type Engine struct {
	cli *client.Client

	// pullMu serializes concurrent pulls of the same image reference, so a
	// burst of iterations resolving the same base image doesn't launch N
	// redundant pulls against the daemon.
	pullMu sync.Map // image ref (string) -> *sync.Mutex

	logger *slog.Logger
}

// New connects to the Docker daemon using the standard environment
// variables (DOCKER_HOST, DOCKER_CERT_PATH, DOCKER_TLS_VERIFY), negotiating
// the API version with the daemon rather than pinning one.
func New() (*Engine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}
	return &Engine{cli: cli, logger: slog.Default()}, nil
}

// NewWithClient wraps an already-constructed docker client, for tests.
func NewWithClient(cli *client.Client) *Engine {
	return &Engine{cli: cli, logger: slog.Default()}
}

// Ping verifies the daemon is reachable, for readiness probes.
func (e *Engine) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultOperationTimeout)
	defer cancel()
	if _, err := e.cli.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}
	return nil
}

// Close releases the underlying connection.
func (e *Engine) Close() error {
	return e.cli.Close()
}

func (e *Engine) imageMutex(ref string) *sync.Mutex {
	muI, _ := e.pullMu.LoadOrStore(ref, &sync.Mutex{})
	return muI.(*sync.Mutex)
}

// withTimeout runs fn with a bounded context, translating context.
// DeadlineExceeded into ErrTimeout so callers get the spec's taxonomy
// rather than a raw stdlib sentinel.
func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	err := fn(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
