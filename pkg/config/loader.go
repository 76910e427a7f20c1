package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// AgentCoreYAMLConfig is the complete agentcore.yaml file structure.
type AgentCoreYAMLConfig struct {
	LLMProviders    map[string]LLMProviderConfig `yaml:"llm_providers"`
	Defaults        *Defaults                    `yaml:"defaults"`
	Workflow        *WorkflowConfig              `yaml:"workflow"`
	Paths           *PathsConfig                 `yaml:"paths"`
	DeploymentPorts *DeploymentPortRange          `yaml:"deployment_ports"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load agentcore.yaml from configDir
//  2. Expand environment variables
//  3. Merge built-in + user-defined LLM providers
//  4. Apply defaults for workflow/paths/ports
//  5. Validate all configuration
//  6. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized successfully", "llm_providers", stats.LLMProviders)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	yamlCfg, err := loader.loadAgentCoreYAML()
	if err != nil {
		return nil, NewLoadError("agentcore.yaml", err)
	}

	builtinProviders := GetBuiltinLLMProviders()
	providers := mergeLLMProviders(builtinProviders, yamlCfg.LLMProviders)
	llmProviderRegistry := NewLLMProviderRegistry(providers)

	defaults := yamlCfg.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	if defaults.LLMProvider == "" {
		defaults.LLMProvider = string(ProviderAnthropic)
	}

	workflowCfg := DefaultWorkflowConfig()
	if yamlCfg.Workflow != nil {
		if err := mergo.Merge(workflowCfg, yamlCfg.Workflow, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge workflow config: %w", err)
		}
	}

	pathsCfg := DefaultPathsConfig()
	if yamlCfg.Paths != nil {
		if err := mergo.Merge(pathsCfg, yamlCfg.Paths, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge paths config: %w", err)
		}
	}

	ports := DefaultDeploymentPortRange()
	if yamlCfg.DeploymentPorts != nil {
		ports = *yamlCfg.DeploymentPorts
	}

	return &Config{
		configDir:           configDir,
		Defaults:            defaults,
		Workflow:            workflowCfg,
		Paths:               pathsCfg,
		DeploymentPorts:     ports,
		LLMProviderRegistry: llmProviderRegistry,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadAgentCoreYAML() (*AgentCoreYAMLConfig, error) {
	var cfg AgentCoreYAMLConfig
	cfg.LLMProviders = make(map[string]LLMProviderConfig)

	if err := l.loadYAML("agentcore.yaml", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
