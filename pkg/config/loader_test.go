package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agentcore.yaml"), []byte(contents), 0o644))
}

func TestInitializeAppliesBuiltinProvidersWhenFileOmitsThem(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
paths:
  agent_images_dir: /var/lib/agentcore/agent-images
  workspaces_root: /var/lib/agentcore/workspaces
  registry: localhost:5000
  shared_base_image: openclaw-agent-base:latest
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, cfg.LLMProviderRegistry.Has("ollama"))
	assert.True(t, cfg.LLMProviderRegistry.Has("anthropic"))
	assert.Equal(t, "anthropic", cfg.Defaults.LLMProvider, "falls back to the built-in default provider")
	assert.Equal(t, 50, cfg.Workflow.MaxIterations)
}

func TestInitializeUserProviderOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
llm_providers:
  ollama:
    type: ollama
    default_model: llama3.1
    base_url: http://gpu-box:11434
paths:
  agent_images_dir: /data/agent-images
  workspaces_root: /data/workspaces
  registry: localhost:5000
  shared_base_image: openclaw-agent-base:latest
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	p, err := cfg.GetLLMProvider("ollama")
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", p.BaseURL)
}

func TestInitializeExpandsEnvironmentVariables(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_REGISTRY", "registry.internal:5000")
	writeConfigFile(t, dir, `
paths:
  agent_images_dir: /data/agent-images
  workspaces_root: /data/workspaces
  registry: "{{.TEST_REGISTRY}}"
  shared_base_image: openclaw-agent-base:latest
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "registry.internal:5000", cfg.Paths.Registry)
}

func TestInitializeFailsOnMissingFile(t *testing.T) {
	_, err := Initialize(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestInitializeFallsBackToDefaultPathsWhenOmitted(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `{}`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultPathsConfig().Registry, cfg.Paths.Registry)
}
