package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLLMProvidersUserOverridesBuiltin(t *testing.T) {
	builtin := map[string]LLMProviderConfig{
		"ollama":    {Type: ProviderOllama, DefaultModel: "llama3.1", BaseURL: "http://ollama:11434"},
		"anthropic": {Type: ProviderAnthropic, DefaultModel: "claude-sonnet-4-5", APIKeyEnv: "ANTHROPIC_API_KEY"},
	}
	user := map[string]LLMProviderConfig{
		"ollama": {Type: ProviderOllama, DefaultModel: "llama3.1", BaseURL: "http://gpu-box:11434"},
	}

	merged := mergeLLMProviders(builtin, user)

	assert.Equal(t, "http://gpu-box:11434", merged["ollama"].BaseURL)
	assert.Equal(t, "claude-sonnet-4-5", merged["anthropic"].DefaultModel, "untouched built-ins survive the merge")
}

func TestMergeLLMProvidersAddsNewProvider(t *testing.T) {
	builtin := map[string]LLMProviderConfig{
		"ollama": {Type: ProviderOllama, DefaultModel: "llama3.1"},
	}
	user := map[string]LLMProviderConfig{
		"openai": {Type: ProviderOpenAI, DefaultModel: "gpt-4o", APIKeyEnv: "OPENAI_API_KEY"},
	}

	merged := mergeLLMProviders(builtin, user)

	assert.Len(t, merged, 2)
	assert.Equal(t, "gpt-4o", merged["openai"].DefaultModel)
}
