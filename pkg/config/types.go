package config

// PathsConfig resolves the filesystem/registry layout shared by the image
// builder and agent step controller (spec §4.B, §4.D, §9 "Filesystem layout").
type PathsConfig struct {
	// AgentImagesDir holds per-task Dockerfile directories:
	// <AgentImagesDir>/<task_id>/Dockerfile(.vN).
	AgentImagesDir string `yaml:"agent_images_dir" validate:"required"`

	// WorkspacesRoot holds per-task persistent workspace directories.
	WorkspacesRoot string `yaml:"workspaces_root" validate:"required"`

	// Registry is the image registry prefix images are tagged and pushed
	// under, e.g. "registry.internal:5000".
	Registry string `yaml:"registry" validate:"required"`

	// SharedBaseImage is the image every task's first iteration builds
	// from (spec §4.B "Bootstrap").
	SharedBaseImage string `yaml:"shared_base_image" validate:"required"`
}

// DefaultPathsConfig returns development-friendly path defaults.
func DefaultPathsConfig() *PathsConfig {
	return &PathsConfig{
		AgentImagesDir:  "/var/lib/agentcore/agent-images",
		WorkspacesRoot:  "/var/lib/agentcore/workspaces",
		Registry:        "localhost:5000",
		SharedBaseImage: "openclaw-agent-base:latest",
	}
}

// DeploymentPortRange is the inclusive host-port range the deployment
// lifecycle scans when starting a container (spec §4.F "Start").
type DeploymentPortRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// DefaultDeploymentPortRange returns the built-in [9100, 9120] range.
func DefaultDeploymentPortRange() DeploymentPortRange {
	return DeploymentPortRange{Min: 9100, Max: 9120}
}
