package config

import "time"

// WorkflowConfig controls the durable task workflow and its iteration loop
// (spec §4.E), the way a QueueConfig bounds a single session's processing.
type WorkflowConfig struct {
	// MaxIterations is the hard cap on agent iterations before a task is
	// forced to Finalizing (spec §4.E "Iteration limit"). It defaults to 50,
	// workflow.max_iterations in agentcore.yaml replaces it, and there is no
	// per-task override.
	MaxIterations int `yaml:"max_iterations"`

	// PollInterval is how often the workflow polls the running container
	// for completion markers.
	PollInterval time.Duration `yaml:"poll_interval"`

	// IterationTimeout bounds a single agent iteration (container launch
	// through harvest), after which it is treated as a failed iteration.
	IterationTimeout time.Duration `yaml:"iteration_timeout"`

	// HeartbeatInterval is checked by the validator (positive and shorter
	// than IterationTimeout); no code path records heartbeats with it.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// ApprovalTimeout is how long a capability request may sit pending
	// before the workflow treats it as implicitly denied (spec §4.E
	// "Approving" state deadline).
	ApprovalTimeout time.Duration `yaml:"approval_timeout"`

	// HTTPTimeout is checked by the validator (must be positive); no
	// outbound call currently reads it.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// GracefulShutdownTimeout is the max time to wait for in-flight
	// iterations to reach a safe pause point during shutdown.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
}

// DefaultWorkflowConfig returns the built-in workflow defaults.
func DefaultWorkflowConfig() *WorkflowConfig {
	return &WorkflowConfig{
		MaxIterations:           50,
		PollInterval:            3 * time.Second,
		IterationTimeout:        30 * time.Minute,
		HeartbeatInterval:       60 * time.Second,
		ApprovalTimeout:         24 * time.Hour,
		HTTPTimeout:             300 * time.Second,
		GracefulShutdownTimeout: 2 * time.Minute,
	}
}
