package config

// GetBuiltinLLMProviders returns the gateway's default provider configuration,
// used when agentcore.yaml omits or partially overrides a provider entry.
// Every deployment gets all four providers even if it only has credentials
// for one. The gateway's /providers endpoint lists the configured provider
// names; it does not check whether any of them is reachable.
func GetBuiltinLLMProviders() map[string]LLMProviderConfig {
	return map[string]LLMProviderConfig{
		"ollama": {
			Type:                  ProviderOllama,
			DefaultModel:          "llama3.1",
			BaseURL:               "http://ollama:11434",
			RequestTimeoutSeconds: 300,
		},
		"gemini": {
			Type:                  ProviderGemini,
			DefaultModel:          "gemini-2.0-flash",
			APIKeyEnv:             "GEMINI_API_KEY",
			BaseURL:               "https://generativelanguage.googleapis.com/v1beta/openai",
			RequestTimeoutSeconds: 300,
		},
		"anthropic": {
			Type:                  ProviderAnthropic,
			DefaultModel:          "claude-sonnet-4-5",
			APIKeyEnv:             "ANTHROPIC_API_KEY",
			BaseURL:               "https://api.anthropic.com",
			RequestTimeoutSeconds: 300,
		},
		"openai": {
			Type:                  ProviderOpenAI,
			DefaultModel:          "gpt-4o",
			APIKeyEnv:             "OPENAI_API_KEY",
			BaseURL:               "https://api.openai.com/v1",
			RequestTimeoutSeconds: 300,
		},
	}
}
