// Package store implements the State & Interface Store (spec §4.G): durable
// rows for tasks, policies, capability requests, iteration outputs, messages
// and deployments, plus their repository contracts.
//
// See DESIGN.md for why this package implements its table/field design
// directly against database/sql + pgx rather than a generated ORM client.
package store

import "time"

// TaskState is the lifecycle state of a Task (spec §3).
type TaskState string

const (
	TaskStateCreated   TaskState = "created"
	TaskStateRunning   TaskState = "running"
	TaskStatePaused    TaskState = "paused"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCancelled TaskState = "cancelled"
)

// Task is the top-level user request (spec §3 "Task").
type Task struct {
	ID                   string
	Name                 string
	Prompt               string
	State                TaskState
	WorkspaceID          string
	CurrentImage         string
	CurrentPolicyVersion int
	Model                string
	WorkflowID           string
	RunID                string
	ErrorMessage         *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CapabilityKind enumerates the gated resource kinds a capability request can target.
type CapabilityKind string

const (
	CapabilityToolInstall      CapabilityKind = "tool_install"
	CapabilityNetworkAccess    CapabilityKind = "network_access"
	CapabilityFilesystemAccess CapabilityKind = "filesystem_access"
	CapabilityDatabaseAccess   CapabilityKind = "database_access"
)

// CapabilityState is the review state of a CapabilityRequest.
type CapabilityState string

const (
	CapabilityPending  CapabilityState = "pending"
	CapabilityApproved CapabilityState = "approved"
	CapabilityDenied   CapabilityState = "denied"
	CapabilityModified CapabilityState = "modified"
)

// Policy is a versioned, per-task set of structured rules (spec §3 "Policy").
// Invariant: (TaskID, Version) pairs are unique and never mutated after creation.
type Policy struct {
	TaskID          string
	Version         int
	AllowedTools    []string
	NetworkRules    map[string]interface{}
	FilesystemRules map[string]interface{}
	DatabaseRules   map[string]interface{}
	ResourceLimits  map[string]interface{}
	CreatedAt       time.Time
}

// CapabilityRequest is a task's request for a new gated resource (spec §3).
// Invariant: once non-pending, State is terminal.
type CapabilityRequest struct {
	ID            string
	TaskID        string
	Kind          CapabilityKind
	Resource      string
	Justification string
	Details       map[string]interface{}
	State         CapabilityState
	CreatedAt     time.Time
	DecidedAt     *time.Time
}

// TaskOutput is one row per agent iteration (spec §3 "TaskOutput").
// Invariant: Iteration is strictly increasing per task, across continuations.
type TaskOutput struct {
	ID                  string
	TaskID              string
	Iteration           int
	Completed           bool
	CapabilityRequested bool
	ContainerLog        string
	Result              map[string]interface{}
	Deliverables        map[string]string
	ErrorMessage        *string
	Duration            time.Duration
	ImageTag            string
	Model               string
	CreatedAt           time.Time
}

// MessageRole enumerates TaskMessage roles.
type MessageRole string

const (
	MessageRoleAgent  MessageRole = "agent"
	MessageRoleUser   MessageRole = "user"
	MessageRoleSystem MessageRole = "system"
)

// TaskMessage is one append-only conversation-log entry (spec §3 "TaskMessage").
type TaskMessage struct {
	ID        string
	TaskID    string
	Role      MessageRole
	Content   string
	Metadata  map[string]interface{}
	CreatedAt time.Time
}

// DeploymentState is the lifecycle state of a Deployment (spec §3).
type DeploymentState string

const (
	DeploymentPendingApproval DeploymentState = "pending_approval"
	DeploymentApproved        DeploymentState = "approved"
	DeploymentBuilding        DeploymentState = "building"
	DeploymentBuilt           DeploymentState = "built"
	DeploymentRunning         DeploymentState = "running"
	DeploymentStopped         DeploymentState = "stopped"
	DeploymentFailed          DeploymentState = "failed"
)

// Deployment is a long-running container built from a task's workspace (spec §3).
type Deployment struct {
	ID          string
	TaskID      string
	Name        string
	Entrypoint  string
	Port        int
	Files       map[string]string
	ImageTag    string
	ContainerID string
	HostPort    *int
	URL         string
	State       DeploymentState
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
