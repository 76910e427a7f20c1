package config

import "fmt"

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at first error).
func (v *Validator) ValidateAll() error {
	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}
	if err := v.validateWorkflow(); err != nil {
		return fmt.Errorf("workflow validation failed: %w", err)
	}
	if err := v.validatePaths(); err != nil {
		return fmt.Errorf("paths validation failed: %w", err)
	}
	if err := v.validateDeploymentPorts(); err != nil {
		return fmt.Errorf("deployment ports validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateLLMProviders() error {
	providers := v.cfg.LLMProviderRegistry.GetAll()
	if len(providers) == 0 {
		return NewValidationError("llm_providers", "", "", fmt.Errorf("%w: no providers configured", ErrMissingRequiredField))
	}
	for name, p := range providers {
		if err := p.Type.Validate(); err != nil {
			return NewValidationError("llm_provider", name, "type", err)
		}
		if p.DefaultModel == "" {
			return NewValidationError("llm_provider", name, "default_model", ErrMissingRequiredField)
		}
		if p.Type != ProviderOllama && p.APIKeyEnv == "" {
			return NewValidationError("llm_provider", name, "api_key_env",
				fmt.Errorf("%w: non-ollama providers require an api_key_env", ErrInvalidValue))
		}
	}
	return nil
}

func (v *Validator) validateWorkflow() error {
	w := v.cfg.Workflow
	if w == nil {
		return NewValidationError("workflow", "", "", fmt.Errorf("workflow configuration is nil"))
	}
	if w.MaxIterations < 1 {
		return NewValidationError("workflow", "", "max_iterations",
			fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, w.MaxIterations))
	}
	if w.PollInterval <= 0 {
		return NewValidationError("workflow", "", "poll_interval",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if w.IterationTimeout <= 0 {
		return NewValidationError("workflow", "", "iteration_timeout",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if w.HeartbeatInterval <= 0 || w.HeartbeatInterval >= w.IterationTimeout {
		return NewValidationError("workflow", "", "heartbeat_interval",
			fmt.Errorf("%w: must be positive and less than iteration_timeout", ErrInvalidValue))
	}
	if w.ApprovalTimeout <= 0 {
		return NewValidationError("workflow", "", "approval_timeout",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if w.HTTPTimeout <= 0 {
		return NewValidationError("workflow", "", "http_timeout",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if w.GracefulShutdownTimeout <= 0 {
		return NewValidationError("workflow", "", "graceful_shutdown_timeout",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validatePaths() error {
	p := v.cfg.Paths
	if p == nil {
		return NewValidationError("paths", "", "", fmt.Errorf("paths configuration is nil"))
	}
	for field, value := range map[string]string{
		"agent_images_dir":  p.AgentImagesDir,
		"workspaces_root":   p.WorkspacesRoot,
		"registry":          p.Registry,
		"shared_base_image": p.SharedBaseImage,
	} {
		if value == "" {
			return NewValidationError("paths", "", field, ErrMissingRequiredField)
		}
	}
	return nil
}

func (v *Validator) validateDeploymentPorts() error {
	r := v.cfg.DeploymentPorts
	if r.Min <= 0 || r.Max <= 0 {
		return NewValidationError("deployment_ports", "", "", fmt.Errorf("%w: ports must be positive", ErrInvalidValue))
	}
	if r.Min > r.Max {
		return NewValidationError("deployment_ports", "", "", fmt.Errorf("%w: min must not exceed max", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d == nil {
		return NewValidationError("defaults", "", "", fmt.Errorf("defaults configuration is nil"))
	}
	if !v.cfg.LLMProviderRegistry.Has(d.LLMProvider) {
		return NewValidationError("defaults", "", "llm_provider",
			fmt.Errorf("%w: %s", ErrLLMProviderNotFound, d.LLMProvider))
	}
	if d.MaxIterations != nil && *d.MaxIterations < 1 {
		return NewValidationError("defaults", "", "max_iterations",
			fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	return nil
}
