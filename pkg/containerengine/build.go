package containerengine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/build"
	archive "github.com/moby/go-archive"
)

// buildTimeout is generous: an incremental layer build can run apt/pip/npm
// installs that take minutes on a cold package-manager cache.
const buildTimeout = 10 * time.Minute

// BuildImage builds contextDir (using dockerfileName, relative to contextDir)
// and applies tags to the result, for the image builder's Dockerfile
// materialisation pipeline (spec §4.B). It is the one place in the system
// that shells out to the daemon's build endpoint; the image builder itself
// never touches a docker client.
func (e *Engine) BuildImage(ctx context.Context, contextDir, dockerfileName string, tags []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, buildTimeout)
	defer cancel()

	tarCtx, err := archive.TarWithOptions(contextDir, &archive.TarOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: tar build context %s: %v", ErrRuntimeUnavailable, contextDir, err)
	}
	defer tarCtx.Close()

	resp, err := e.cli.ImageBuild(ctx, tarCtx, build.ImageBuildOptions{
		Tags:       tags,
		Dockerfile: dockerfileName,
		Remove:     true,
	})
	if err != nil {
		if isNotFoundErr(err) {
			return "", fmt.Errorf("%w: base image for build in %s: %v", ErrImageNotFound, contextDir, err)
		}
		return "", fmt.Errorf("%w: build image in %s: %v", ErrRuntimeUnavailable, contextDir, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return "", fmt.Errorf("%w: reading build output for %s: %v", ErrRuntimeUnavailable, contextDir, err)
	}
	return buf.String(), nil
}
