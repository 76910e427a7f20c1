package config

// Config is the umbrella configuration object returned by Initialize and
// threaded through every service binary.
type Config struct {
	configDir string

	Defaults            *Defaults
	Workflow            *WorkflowConfig
	Paths               *PathsConfig
	DeploymentPorts     DeploymentPortRange
	LLMProviderRegistry *LLMProviderRegistry
}

// Initialize is defined in loader.go.

// ConfigStats summarizes loaded configuration for startup logging.
type ConfigStats struct {
	LLMProviders int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		LLMProviders: len(c.LLMProviderRegistry.GetAll()),
	}
}

// ConfigDir returns the configuration directory path the config was loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetLLMProvider retrieves an LLM provider configuration by name.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}

// ResolveModel returns the model string a task should use: its own model if
// set, else the system default model when the task is on the default
// provider, else that provider's own default model.
func (c *Config) ResolveModel(taskModel, providerName string) (string, error) {
	if taskModel != "" {
		return taskModel, nil
	}
	if providerName == "" {
		providerName = c.Defaults.LLMProvider
	}
	provider, err := c.GetLLMProvider(providerName)
	if err != nil {
		return "", err
	}
	if providerName == c.Defaults.LLMProvider && c.Defaults.Model != "" {
		return c.Defaults.Model, nil
	}
	return provider.DefaultModel, nil
}
