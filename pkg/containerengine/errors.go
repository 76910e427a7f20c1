package containerengine

import "errors"

// Sentinel errors the rest of the system maps onto the failure taxonomy of
// spec §7: a failed iteration distinguishes "the runtime itself is down"
// from "the image doesn't exist" from "the operation ran too long".
var (
	// ErrRuntimeUnavailable means the container daemon could not be reached.
	ErrRuntimeUnavailable = errors.New("container runtime unavailable")

	// ErrImageNotFound means an image is absent both locally and in the registry.
	ErrImageNotFound = errors.New("image not found")

	// ErrTimeout means a container operation exceeded its deadline.
	ErrTimeout = errors.New("container engine operation timed out")

	// ErrContainerNotFound means a container id is unknown to the daemon.
	ErrContainerNotFound = errors.New("container not found")
)
