// Package agentstep implements the Agent Step Controller (spec §4.D): one
// agent iteration, from resolving an image through harvesting its result.
package agentstep

import "time"

// Request describes one iteration for the controller to run.
type Request struct {
	TaskID           string
	Iteration        int
	Image            string
	DockerfileText   string
	TaskDescription  string
	Model            string
	ControlPlaneURL  string
	OllamaURL        string
	FollowUp         string
	WorkspaceDir     string
}

// CapabilityPayload is the §4.D envelope's capability-request detail.
type CapabilityPayload struct {
	Type          string `json:"type"`
	Resource      string `json:"resource"`
	Justification string `json:"justification"`
}

// DeploymentPayload is the §4.D envelope's deployment-request detail.
type DeploymentPayload struct {
	Name       string            `json:"name"`
	Port       int               `json:"port"`
	Entrypoint string            `json:"entrypoint"`
	Files      map[string]string `json:"files"`
}

// Result is the envelope returned to the workflow after one iteration
// (spec §4.D "The envelope returned to the workflow").
type Result struct {
	Completed           bool               `json:"completed"`
	CapabilityRequested bool               `json:"capability_requested"`
	DeploymentRequested bool               `json:"deployment_requested"`
	AgentFailed         bool               `json:"agent_failed"`
	Capability          *CapabilityPayload `json:"capability,omitempty"`
	Deployment          *DeploymentPayload `json:"deployment,omitempty"`
	Deliverables        map[string]string  `json:"deliverables,omitempty"`
	Error               string             `json:"error,omitempty"`
	Output              map[string]any     `json:"output,omitempty"`
	AgentLogs           string             `json:"agent_logs,omitempty"`

	Iteration int       `json:"iteration"`
	Image     string     `json:"image"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	maxTaskDescriptionBytes = 2 * 1024
	maxDockerfileBytes      = 4 * 1024
	maxFollowUpBytes        = 2 * 1024
	maxAgentLogBytes        = 50 * 1024
)

func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
