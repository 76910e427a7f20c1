// Package imagebuilder implements the Image Builder Service (spec §4.B):
// given a task's current image and a capability list, it emits a Dockerfile,
// builds and pushes a new tagged layer, and tracks the build asynchronously
// behind a build-status endpoint. A second, parallel path builds a minimal
// deployment image from a task's harvested workspace files.
package imagebuilder

import "errors"

// Sentinel errors classified by callers into the spec §7 taxonomy.
var (
	// ErrBuildNotFound means the requested build id is unknown.
	ErrBuildNotFound = errors.New("build not found")

	// ErrInvalidCapability means a capability entry could not be normalized
	// (empty name after splitting, unknown kind).
	ErrInvalidCapability = errors.New("invalid capability")

	// ErrNoBaseImage means neither a task's current image nor the shared
	// base image could be resolved for a build.
	ErrNoBaseImage = errors.New("no base image available")
)
