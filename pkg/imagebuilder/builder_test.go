package imagebuilder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/agentcore/pkg/config"
)

// fakeEngine is a minimal dockerEngine double; the real daemon is exercised
// only by pkg/containerengine's own (integration) tests.
type fakeEngine struct {
	existsResult map[string]bool
	pullErr      error
	buildErr     error
	pushErr      error
	buildLog     string

	pulledTags []string
	pushedTags []string
	builtTags  [][]string
}

func (f *fakeEngine) ImageExists(ctx context.Context, tag string) (bool, error) {
	return f.existsResult[tag], nil
}

func (f *fakeEngine) Pull(ctx context.Context, tag string) error {
	f.pulledTags = append(f.pulledTags, tag)
	return f.pullErr
}

func (f *fakeEngine) BuildImage(ctx context.Context, contextDir, dockerfileName string, tags []string) (string, error) {
	f.builtTags = append(f.builtTags, tags)
	if f.buildErr != nil {
		return f.buildLog, f.buildErr
	}
	return f.buildLog, nil
}

func (f *fakeEngine) Push(ctx context.Context, tag string) error {
	f.pushedTags = append(f.pushedTags, tag)
	return f.pushErr
}

func testPaths(t *testing.T) *config.PathsConfig {
	return &config.PathsConfig{
		AgentImagesDir:  t.TempDir(),
		WorkspacesRoot:  t.TempDir(),
		Registry:        "localhost:5000",
		SharedBaseImage: "openclaw-agent-base:latest",
	}
}

func waitForTerminal(t *testing.T, b *Builder, id string) *Build {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		build, err := b.GetBuild(id)
		require.NoError(t, err)
		if build.Status == BuildSuccess || build.Status == BuildFailed {
			return build
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("build did not reach a terminal state in time")
	return nil
}

func TestBuildSucceedsAndTagsRegistryQualified(t *testing.T) {
	engine := &fakeEngine{}
	b := New(engine, testPaths(t))

	build, err := b.Build(context.Background(), BuildRequest{
		TaskID:       "task-1",
		BaseImage:    "openclaw-agent-base:latest",
		Capabilities: []Capability{{Kind: KindPipPackage, Name: "pandas"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "openclaw-agent:task-1-v1", build.ImageTag)

	final := waitForTerminal(t, b, build.ID)
	assert.Equal(t, BuildSuccess, final.Status)
	require.Len(t, engine.builtTags, 1)
	assert.Contains(t, engine.builtTags[0], "localhost:5000/openclaw-agent:task-1-v1")
	assert.Contains(t, engine.pushedTags, "localhost:5000/openclaw-agent:task-1-v1")
}

func TestBuildFallsBackToSharedBaseImageWhenNoBaseGiven(t *testing.T) {
	engine := &fakeEngine{}
	b := New(engine, testPaths(t))

	build, err := b.Build(context.Background(), BuildRequest{TaskID: "task-2"})
	require.NoError(t, err)
	waitForTerminal(t, b, build.ID)
	assert.Equal(t, "openclaw-agent:task-2-v1", build.ImageTag)
}

func TestBuildVersionsIncrementAcrossSuccessfulBuilds(t *testing.T) {
	engine := &fakeEngine{}
	b := New(engine, testPaths(t))

	first, err := b.Build(context.Background(), BuildRequest{TaskID: "task-3", BaseImage: "base:latest"})
	require.NoError(t, err)
	waitForTerminal(t, b, first.ID)

	second, err := b.Build(context.Background(), BuildRequest{TaskID: "task-3", BaseImage: first.ImageTag})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, "openclaw-agent:task-3-v2", second.ImageTag)
}

func TestBuildMarksFailedOnBuildImageError(t *testing.T) {
	engine := &fakeEngine{buildErr: errors.New("daemon exploded"), buildLog: "step 1/3 ..."}
	b := New(engine, testPaths(t))

	build, err := b.Build(context.Background(), BuildRequest{TaskID: "task-4", BaseImage: "base:latest"})
	require.NoError(t, err)

	final := waitForTerminal(t, b, build.ID)
	assert.Equal(t, BuildFailed, final.Status)
	assert.Contains(t, final.Error, "daemon exploded")
	assert.Equal(t, "step 1/3 ...", final.Logs)
}

func TestBuildFailedBuildDoesNotConsumeVersionSlot(t *testing.T) {
	engine := &fakeEngine{buildErr: errors.New("boom")}
	b := New(engine, testPaths(t))

	first, err := b.Build(context.Background(), BuildRequest{TaskID: "task-5", BaseImage: "base:latest"})
	require.NoError(t, err)
	waitForTerminal(t, b, first.ID)

	engine.buildErr = nil
	second, err := b.Build(context.Background(), BuildRequest{TaskID: "task-5", BaseImage: "base:latest"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Version, "a failed build should not advance the version counter")
}

func TestBuildRejectsInvalidCapabilityBeforeStartingWork(t *testing.T) {
	engine := &fakeEngine{}
	b := New(engine, testPaths(t))

	_, err := b.Build(context.Background(), BuildRequest{
		TaskID:       "task-6",
		BaseImage:    "base:latest",
		Capabilities: []Capability{{Kind: "bogus", Name: "x"}},
	})
	assert.ErrorIs(t, err, ErrInvalidCapability)
	assert.Empty(t, engine.builtTags)
}

func TestGetBuildUnknownIDReturnsNotFound(t *testing.T) {
	b := New(&fakeEngine{}, testPaths(t))
	_, err := b.GetBuild("does-not-exist")
	assert.ErrorIs(t, err, ErrBuildNotFound)
}

func TestBuildDeploymentWritesFilesAndBuilds(t *testing.T) {
	engine := &fakeEngine{}
	b := New(engine, testPaths(t))

	build, err := b.BuildDeployment(context.Background(), DeploymentBuildRequest{
		DeploymentID: "dep-1",
		TaskID:       "task-7",
		Entrypoint:   "python app.py",
		Port:         5000,
		Files:        map[string]string{"app.py": "print('hi')\n"},
		PipPackages:  []string{"flask"},
	})
	require.NoError(t, err)
	assert.Equal(t, "openclaw-deploy:dep-1", build.ImageTag)

	final := waitForTerminal(t, b, build.ID)
	assert.Equal(t, BuildSuccess, final.Status)
}

func TestBuildDeploymentRejectsNonPositivePort(t *testing.T) {
	b := New(&fakeEngine{}, testPaths(t))
	_, err := b.BuildDeployment(context.Background(), DeploymentBuildRequest{
		DeploymentID: "dep-2", TaskID: "task-8", Port: 0,
	})
	assert.ErrorIs(t, err, ErrInvalidCapability)
}

func TestBootstrapNoOpWhenBaseImageExists(t *testing.T) {
	paths := testPaths(t)
	engine := &fakeEngine{existsResult: map[string]bool{paths.SharedBaseImage: true}}
	b := New(engine, paths)

	require.NoError(t, b.Bootstrap(context.Background()))
	assert.Empty(t, engine.pulledTags)
	assert.Empty(t, engine.builtTags)
}

func TestBootstrapPullsWhenMissingLocally(t *testing.T) {
	paths := testPaths(t)
	engine := &fakeEngine{}
	b := New(engine, paths)

	require.NoError(t, b.Bootstrap(context.Background()))
	assert.Contains(t, engine.pulledTags, paths.SharedBaseImage)
}

func TestBootstrapFailsWithoutPullOrLocalDockerfile(t *testing.T) {
	paths := testPaths(t)
	engine := &fakeEngine{pullErr: errors.New("no such image")}
	b := New(engine, paths)

	err := b.Bootstrap(context.Background())
	assert.Error(t, err)
}
