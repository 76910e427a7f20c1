package config

// Defaults contains system-wide defaults applied when a task doesn't
// specify its own values (spec §3 "Task").
type Defaults struct {
	// LLMProvider names the registry entry used when a task doesn't pin one.
	LLMProvider string `yaml:"llm_provider,omitempty"`

	// Model overrides the chosen provider's DefaultModel when set.
	Model string `yaml:"model,omitempty"`

	// MaxIterations is validated (at least 1 when set) but not applied by the
	// loader; the iteration cap tasks run under is WorkflowConfig.MaxIterations.
	MaxIterations *int `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`
}
