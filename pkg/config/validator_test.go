package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Defaults: &Defaults{LLMProvider: "anthropic"},
		Workflow: DefaultWorkflowConfig(),
		Paths:    DefaultPathsConfig(),
		DeploymentPorts: DeploymentPortRange{
			Min: 9100, Max: 9120,
		},
		LLMProviderRegistry: NewLLMProviderRegistry(map[string]*LLMProviderConfig{
			"anthropic": {Type: ProviderAnthropic, DefaultModel: "claude-sonnet-4-5", APIKeyEnv: "ANTHROPIC_API_KEY"},
			"ollama":    {Type: ProviderOllama, DefaultModel: "llama3.1"},
		}),
	}
}

func TestValidatorAcceptsWellFormedConfig(t *testing.T) {
	require.NoError(t, NewValidator(validConfig(t)).ValidateAll())
}

func TestValidatorRejectsMissingDefaultModel(t *testing.T) {
	cfg := validConfig(t)
	cfg.LLMProviderRegistry = NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"anthropic": {Type: ProviderAnthropic, APIKeyEnv: "ANTHROPIC_API_KEY"},
	})
	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "default_model")
}

func TestValidatorRequiresAPIKeyEnvForNonOllamaProviders(t *testing.T) {
	cfg := validConfig(t)
	cfg.LLMProviderRegistry = NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"openai": {Type: ProviderOpenAI, DefaultModel: "gpt-4o"},
	})
	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "api_key_env")
}

func TestValidatorRejectsZeroMaxIterations(t *testing.T) {
	cfg := validConfig(t)
	cfg.Workflow.MaxIterations = 0
	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_iterations")
}

func TestValidatorRejectsHeartbeatPastIterationTimeout(t *testing.T) {
	cfg := validConfig(t)
	cfg.Workflow.HeartbeatInterval = cfg.Workflow.IterationTimeout
	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "heartbeat_interval")
}

func TestValidatorRejectsEmptyPaths(t *testing.T) {
	cfg := validConfig(t)
	cfg.Paths.Registry = ""
	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "registry")
}

func TestValidatorRejectsInvertedPortRange(t *testing.T) {
	cfg := validConfig(t)
	cfg.DeploymentPorts = DeploymentPortRange{Min: 9200, Max: 9100}
	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidatorRejectsUnknownDefaultProvider(t *testing.T) {
	cfg := validConfig(t)
	cfg.Defaults.LLMProvider = "bedrock"
	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "LLM provider not found")
}
