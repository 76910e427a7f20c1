package imagebuilder

import "time"

// PackageKind is the materialized installation mechanism a capability ends
// up assigned to, after normalization (spec §4.B "Capability normalization").
type PackageKind string

const (
	KindAptPackage PackageKind = "apt_package"
	KindPipPackage PackageKind = "pip_package"
	KindNpmPackage PackageKind = "npm_package"
	KindTool       PackageKind = "tool"
)

// Capability is one requested resource, as handed to the builder by the
// workflow's Approving state. Name may be comma-separated; Kind is the
// requester's best guess (the workflow defaults tool_install requests to
// KindPipPackage, the most common case in practice) and is corrected by
// normalization before a Dockerfile is ever emitted.
type Capability struct {
	Kind    PackageKind
	Name    string
	Version string
}

// BuildStatus is the lifecycle state of a Build (spec §3 "Build").
type BuildStatus string

const (
	BuildPending  BuildStatus = "pending"
	BuildBuilding BuildStatus = "building"
	BuildSuccess  BuildStatus = "success"
	BuildFailed   BuildStatus = "failed"
)

// Build is a transient, in-process record of one image-build attempt (spec
// §3 "Build"). It is never persisted to the durable store: a controller
// restart loses in-flight builds, which is acceptable because the workflow
// treats a lost build the same as a failed one and falls back to the base
// image.
type Build struct {
	ID        string
	TaskID    string
	Status    BuildStatus
	ImageTag  string
	Digest    string
	Error     string
	Logs      string
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BuildRequest is the body of POST /build.
type BuildRequest struct {
	TaskID       string       `json:"task_id"`
	BaseImage    string       `json:"base_image"`
	Capabilities []Capability `json:"capabilities"`
}

// DeploymentBuildRequest is the body of POST /build-deployment.
type DeploymentBuildRequest struct {
	DeploymentID string            `json:"deployment_id"`
	TaskID       string            `json:"task_id"`
	Entrypoint   string            `json:"entrypoint"`
	Port         int               `json:"port"`
	Files        map[string]string `json:"files"`
	PipPackages  []string          `json:"pip_packages,omitempty"`
}
