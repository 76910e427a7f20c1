package imagebuilder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/agentcore/pkg/config"
)

// dockerEngine is the slice of containerengine.Engine the builder actually
// calls. Depending on this narrow interface rather than the concrete type
// lets tests substitute a fake daemon instead of requiring a live one.
type dockerEngine interface {
	ImageExists(ctx context.Context, tag string) (bool, error)
	Pull(ctx context.Context, tag string) error
	BuildImage(ctx context.Context, contextDir, dockerfileName string, tags []string) (string, error)
	Push(ctx context.Context, tag string) error
}

// Builder is the Image Builder Service (spec §4.B). It owns no state beyond
// the transient build registry; the container engine does the actual daemon
// work and pkg/config supplies the filesystem/registry layout.
type Builder struct {
	engine dockerEngine
	paths  *config.PathsConfig
	builds *buildStore
	logger *slog.Logger
}

// New constructs a Builder bound to engine and paths.
func New(engine dockerEngine, paths *config.PathsConfig) *Builder {
	return &Builder{
		engine: engine,
		paths:  paths,
		builds: newBuildStore(),
		logger: slog.Default(),
	}
}

// Build starts an asynchronous agent-image build and returns its initial
// record immediately (spec §4.B "POST /build"); the caller polls GetBuild
// for completion.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*Build, error) {
	caps, err := Normalize(req.Capabilities)
	if err != nil {
		return nil, err
	}

	baseImage := req.BaseImage
	if baseImage == "" {
		baseImage = b.paths.SharedBaseImage
	}
	if baseImage == "" {
		return nil, ErrNoBaseImage
	}

	version := 1 + nonTerminalOrSuccessful(b.builds.forTask(req.TaskID))
	tag := agentImageTag(req.TaskID, version)

	build := &Build{
		ID:        uuid.NewString(),
		TaskID:    req.TaskID,
		Status:    BuildPending,
		ImageTag:  tag,
		Version:   version,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	b.builds.put(build)

	go b.runAgentBuild(context.WithoutCancel(ctx), build, baseImage, caps)

	return build, nil
}

// GetBuild returns the current state of a build by id (spec §4.B
// "GET /builds/{id}").
func (b *Builder) GetBuild(id string) (*Build, error) {
	build, ok := b.builds.get(id)
	if !ok {
		return nil, ErrBuildNotFound
	}
	return build, nil
}

func (b *Builder) runAgentBuild(ctx context.Context, build *Build, baseImage string, caps NormalizedCapabilities) {
	b.builds.update(build.ID, func(bb *Build) { bb.Status = BuildBuilding; bb.UpdatedAt = time.Now() })

	dockerfile := RenderAgentDockerfile(baseImage, caps)
	contextDir := filepath.Join(b.paths.AgentImagesDir, build.TaskID)

	if err := writeDockerfile(b.paths.AgentImagesDir, build.TaskID, build.Version, dockerfile); err != nil {
		b.fail(build, fmt.Errorf("persist dockerfile: %w", err))
		return
	}

	dockerfileName := fmt.Sprintf("Dockerfile.v%d", build.Version)
	registryTag := qualifyForRegistry(build.ImageTag, b.paths.Registry)

	logs, err := b.engine.BuildImage(ctx, contextDir, dockerfileName, []string{build.ImageTag, registryTag})
	if err != nil {
		b.builds.update(build.ID, func(bb *Build) { bb.Logs = logs })
		b.fail(build, fmt.Errorf("build image: %w", err))
		return
	}

	if err := b.engine.Push(ctx, registryTag); err != nil {
		b.builds.update(build.ID, func(bb *Build) { bb.Logs = logs })
		b.fail(build, fmt.Errorf("push image: %w", err))
		return
	}

	b.builds.update(build.ID, func(bb *Build) {
		bb.Status = BuildSuccess
		bb.Logs = logs
		bb.UpdatedAt = time.Now()
	})
}

func (b *Builder) fail(build *Build, err error) {
	b.logger.Error("image build failed", "build_id", build.ID, "task_id", build.TaskID, "error", err)
	b.builds.update(build.ID, func(bb *Build) {
		bb.Status = BuildFailed
		bb.Error = err.Error()
		bb.UpdatedAt = time.Now()
	})
}

func qualifyForRegistry(tag, registry string) string {
	if registry == "" || strings.HasPrefix(tag, registry+"/") {
		return tag
	}
	return registry + "/" + tag
}

// BuildDeployment starts an asynchronous deployment-image build (spec §4.B
// "Deployment build", "POST /build-deployment"). The pip/apt package sets
// for the generated Dockerfile are inferred from the task's most recent
// agent Dockerfile when the caller does not supply PipPackages explicitly.
func (b *Builder) BuildDeployment(ctx context.Context, req DeploymentBuildRequest) (*Build, error) {
	if req.Port <= 0 {
		return nil, fmt.Errorf("%w: port must be positive", ErrInvalidCapability)
	}

	tag := deploymentImageTag(req.DeploymentID)
	build := &Build{
		ID:        uuid.NewString(),
		TaskID:    req.TaskID,
		Status:    BuildPending,
		ImageTag:  tag,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	b.builds.put(build)

	pip := req.PipPackages
	var apt []string
	if len(pip) == 0 {
		pip, apt = b.inferPackagesFromAgentDockerfile(req.TaskID)
	}

	go b.runDeploymentBuild(context.WithoutCancel(ctx), build, req, apt, pip)

	return build, nil
}

func (b *Builder) runDeploymentBuild(ctx context.Context, build *Build, req DeploymentBuildRequest, apt, pip []string) {
	b.builds.update(build.ID, func(bb *Build) { bb.Status = BuildBuilding; bb.UpdatedAt = time.Now() })

	dockerfile := RenderDeploymentDockerfile(apt, pip, req.Port, req.Entrypoint)

	contextDir := filepath.Join(b.paths.AgentImagesDir, "deployments", req.DeploymentID)
	appDir := filepath.Join(contextDir, "app")
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		b.fail(build, fmt.Errorf("create deployment context %s: %w", contextDir, err))
		return
	}
	for name, content := range req.Files {
		path := filepath.Join(appDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			b.fail(build, fmt.Errorf("create deployment file dir for %s: %w", name, err))
			return
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			b.fail(build, fmt.Errorf("write deployment file %s: %w", name, err))
			return
		}
	}
	dockerfilePath := filepath.Join(contextDir, "Dockerfile")
	if err := os.WriteFile(dockerfilePath, []byte(dockerfile), 0o644); err != nil {
		b.fail(build, fmt.Errorf("write deployment dockerfile: %w", err))
		return
	}

	registryTag := qualifyForRegistry(build.ImageTag, b.paths.Registry)

	logs, err := b.engine.BuildImage(ctx, contextDir, "Dockerfile", []string{build.ImageTag, registryTag})
	if err != nil {
		b.builds.update(build.ID, func(bb *Build) { bb.Logs = logs })
		b.fail(build, fmt.Errorf("build deployment image: %w", err))
		return
	}
	if err := b.engine.Push(ctx, registryTag); err != nil {
		b.builds.update(build.ID, func(bb *Build) { bb.Logs = logs })
		b.fail(build, fmt.Errorf("push deployment image: %w", err))
		return
	}

	b.builds.update(build.ID, func(bb *Build) {
		bb.Status = BuildSuccess
		bb.Logs = logs
		bb.UpdatedAt = time.Now()
	})
}

var (
	aptInstallRe = regexp.MustCompile(`apt-get install[^\n]*`)
	pipInstallRe = regexp.MustCompile(`pip install[^\n]*`)
)

// inferPackagesFromAgentDockerfile regexes the task's latest agent
// Dockerfile for apt-get/pip install lines (spec §4.B "Pip and apt sets are
// inferred from the task's most recent agent Dockerfile by regex").
func (b *Builder) inferPackagesFromAgentDockerfile(taskID string) (pip, apt []string) {
	path := filepath.Join(b.paths.AgentImagesDir, taskID, "Dockerfile")
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}
	text := string(content)

	for _, match := range aptInstallRe.FindAllString(text, -1) {
		apt = append(apt, extractPackageNames(match, "apt-get install")...)
	}
	for _, match := range pipInstallRe.FindAllString(text, -1) {
		pip = append(pip, extractPackageNames(match, "pip install")...)
	}
	return dedupe(pip), dedupe(apt)
}

func dedupe(names []string) []string {
	if names == nil {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func extractPackageNames(line, verb string) []string {
	rest := strings.TrimPrefix(line, verb)
	var names []string
	for _, tok := range strings.Fields(rest) {
		tok = strings.Trim(tok, `\`)
		if tok == "" || strings.HasPrefix(tok, "-") {
			continue
		}
		if tok == "&&" || tok == "||" {
			break
		}
		names = append(names, tok)
	}
	return names
}

// Bootstrap implements spec §4.B "Bootstrap": on startup, ensure the shared
// base image exists locally, pulling or building it if not.
func (b *Builder) Bootstrap(ctx context.Context) error {
	exists, err := b.engine.ImageExists(ctx, b.paths.SharedBaseImage)
	if err != nil {
		return fmt.Errorf("check shared base image: %w", err)
	}
	if exists {
		return nil
	}

	if err := b.engine.Pull(ctx, b.paths.SharedBaseImage); err == nil {
		return nil
	}

	baseDir := filepath.Join(b.paths.AgentImagesDir, "_base")
	if _, err := os.Stat(filepath.Join(baseDir, "Dockerfile")); err != nil {
		return fmt.Errorf("shared base image %s missing and no local Dockerfile to build it", b.paths.SharedBaseImage)
	}

	logs, err := b.engine.BuildImage(ctx, baseDir, "Dockerfile", []string{b.paths.SharedBaseImage})
	if err != nil {
		return fmt.Errorf("build shared base image: %w (logs: %s)", err, logs)
	}
	return b.engine.Push(ctx, qualifyForRegistry(b.paths.SharedBaseImage, b.paths.Registry))
}
