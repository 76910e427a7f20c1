package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/openclaw/agentcore/pkg/config"
)

// run tracks one in-flight workflow instance so its `approve_capability`
// signal can be delivered and so it can be soft-cancelled on pause.
type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns every currently-running task workflow (spec §4.E). It is the
// process-local analogue of pkg/queue's WorkerPool: instead of a fixed
// worker count polling a claim queue, one goroutine per task runs to
// completion, and a registry lets HTTP handlers deliver the single signal
// (`approve_capability`) or a pause request to the right instance.
type Manager struct {
	cfg      *config.WorkflowConfig
	paths    *config.PathsConfig
	steps    stepRunner
	builder  imageBuilder
	tasks    taskStore
	outputs  outputStore
	caps     capabilityStore
	policies policyStore
	deploys  deploymentStore
	logger   *slog.Logger

	mu      sync.Mutex
	runs    map[string]*run      // task id -> in-flight run
	pending map[string]chan bool // capability request id -> decision channel
}

// New constructs a Manager.
func New(cfg *config.WorkflowConfig, paths *config.PathsConfig, steps stepRunner, builder imageBuilder,
	tasks taskStore, outputs outputStore, caps capabilityStore, policies policyStore, deploys deploymentStore,
) *Manager {
	return &Manager{
		cfg:      cfg,
		paths:    paths,
		steps:    steps,
		builder:  builder,
		tasks:    tasks,
		outputs:  outputs,
		caps:     caps,
		policies: policies,
		deploys:  deploys,
		logger:   slog.Default(),
		runs:     map[string]*run{},
		pending:  map[string]chan bool{},
	}
}

// Start launches a task's workflow (fresh or continuation) in its own
// goroutine and returns immediately; the workflow reports its own terminal
// state via the task store (spec §4.E "Finalizing").
func (m *Manager) Start(req StartRequest) {
	taskID := req.Task.ID
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	m.runs[taskID] = r
	m.mu.Unlock()

	go func() {
		defer close(r.done)
		defer func() {
			m.mu.Lock()
			delete(m.runs, taskID)
			m.mu.Unlock()
		}()
		m.execute(ctx, req)
	}()
}

// Pause cancels a task's in-flight workflow goroutine without marking it
// failed; the caller is responsible for persisting TaskStatePaused. Returns
// false if no workflow is running for this task.
func (m *Manager) Pause(taskID string) bool {
	m.mu.Lock()
	r, ok := m.runs[taskID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	r.cancel()
	<-r.done
	return true
}

// IsRunning reports whether a workflow goroutine is currently active for taskID.
func (m *Manager) IsRunning(taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.runs[taskID]
	return ok
}

// registerPending opens a decision channel for a newly-created capability
// request, awaited by the Approving state (spec §4.E "Suspend on a signal").
func (m *Manager) registerPending(requestID string) chan bool {
	ch := make(chan bool, 1)
	m.mu.Lock()
	m.pending[requestID] = ch
	m.mu.Unlock()
	return ch
}

func (m *Manager) unregisterPending(requestID string) {
	m.mu.Lock()
	delete(m.pending, requestID)
	m.mu.Unlock()
}

// ApproveCapability delivers the `approve_capability(approved)` signal to
// the workflow instance awaiting requestID (spec §4.E, §8 "Signal
// uniqueness" — at most one delivery is ever consumed since the channel is
// unregistered the moment Approving resumes). Returns false if no workflow
// is currently waiting on this request (already decided, or timed out).
func (m *Manager) ApproveCapability(requestID string, approved bool) bool {
	m.mu.Lock()
	ch, ok := m.pending[requestID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- approved:
		return true
	default:
		return false
	}
}
