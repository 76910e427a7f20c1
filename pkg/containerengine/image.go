package containerengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// pullTimeout is generous: base images and layered agent images can run
// into the hundreds of megabytes on a cold registry.
const pullTimeout = 5 * time.Minute

// ImageExists reports whether tag is present in the local image store.
func (e *Engine) ImageExists(ctx context.Context, tag string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultOperationTimeout)
	defer cancel()

	_, _, err := e.cli.ImageInspectWithRaw(ctx, tag)
	if err == nil {
		return true, nil
	}
	if client.IsErrNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: inspect %s: %v", ErrRuntimeUnavailable, tag, err)
}

// Pull fetches tag from its registry. Concurrent pulls of the same tag are
// serialized so a fan-out of iterations resolving a shared base image
// issues one pull, not N.
func (e *Engine) Pull(ctx context.Context, tag string) error {
	mu := e.imageMutex(tag)
	mu.Lock()
	defer mu.Unlock()

	exists, err := e.ImageExists(ctx, tag)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, pullTimeout)
	defer cancel()

	rc, err := e.cli.ImagePull(ctx, tag, image.PullOptions{})
	if err != nil {
		if isNotFoundErr(err) {
			return fmt.Errorf("%w: %s: %v", ErrImageNotFound, tag, err)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: pull %s: %v", ErrTimeout, tag, err)
		}
		return fmt.Errorf("%w: pull %s: %v", ErrRuntimeUnavailable, tag, err)
	}
	defer rc.Close()

	// Drain the pull progress stream; we don't surface per-layer progress.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("%w: reading pull progress for %s: %v", ErrRuntimeUnavailable, tag, err)
	}
	return nil
}

// Resolve implements spec §4.D "Resolve image": try tag locally, and on a
// miss rewrite it to the registry-qualified form and pull. Returns the tag
// that should actually be used to launch the container (unchanged on a
// local hit, registry-qualified on a successful pull).
func (e *Engine) Resolve(ctx context.Context, tag, registry string) (string, error) {
	exists, err := e.ImageExists(ctx, tag)
	if err != nil {
		return "", err
	}
	if exists {
		return tag, nil
	}

	qualified := qualifyTag(tag, registry)

	if err := e.Pull(ctx, qualified); err != nil {
		return "", err
	}
	return qualified, nil
}

// qualifyTag prefixes tag with registry unless it is already qualified.
func qualifyTag(tag, registry string) string {
	if registry == "" || strings.HasPrefix(tag, registry+"/") {
		return tag
	}
	return registry + "/" + tag
}

// Tag applies an additional tag to an existing image, for the image
// builder's "tag → registry-tag → push" pipeline (spec §4.B).
func (e *Engine) Tag(ctx context.Context, source, target string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultOperationTimeout)
	defer cancel()
	if err := e.cli.ImageTag(ctx, source, target); err != nil {
		return fmt.Errorf("%w: tag %s as %s: %v", ErrRuntimeUnavailable, source, target, err)
	}
	return nil
}

// Push uploads tag to its registry.
func (e *Engine) Push(ctx context.Context, tag string) error {
	ctx, cancel := context.WithTimeout(ctx, pullTimeout)
	defer cancel()

	rc, err := e.cli.ImagePush(ctx, tag, image.PushOptions{})
	if err != nil {
		return fmt.Errorf("%w: push %s: %v", ErrRuntimeUnavailable, tag, err)
	}
	defer rc.Close()

	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("%w: reading push progress for %s: %v", ErrRuntimeUnavailable, tag, err)
	}
	return nil
}

func isNotFoundErr(err error) bool {
	return client.IsErrNotFound(err) || strings.Contains(err.Error(), "not found") ||
		strings.Contains(err.Error(), "manifest unknown")
}
