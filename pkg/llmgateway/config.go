package llmgateway

import (
	"os"
	"sync"

	"github.com/openclaw/agentcore/pkg/config"
)

// ConfigStore is the mutable, in-process mirror of provider configuration
// (spec §4.C "a mutable in-process config mirrored to a small
// single-key-per-row table, loaded once, updated via POST /config"). The
// "small table" side is out of scope here (spec §1 excludes "database
// session plumbing"); this store is the live cache every request reads.
type ConfigStore struct {
	mu        sync.RWMutex
	providers map[string]config.LLMProviderConfig
}

// NewConfigStore seeds the store from the loaded static configuration.
func NewConfigStore(initial map[string]*config.LLMProviderConfig) *ConfigStore {
	providers := make(map[string]config.LLMProviderConfig, len(initial))
	for name, cfg := range initial {
		providers[name] = *cfg
	}
	return &ConfigStore{providers: providers}
}

// Get returns a provider's current configuration.
func (s *ConfigStore) Get(name string) (config.LLMProviderConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.providers[name]
	return c, ok
}

// Set replaces a provider's entry in the live cache atomically, so a later
// Get or All reflects it. Fields left empty in cfg are not kept from the
// previous entry, and nothing is written to durable storage: the change
// lasts until the process restarts.
func (s *ConfigStore) Set(name string, cfg config.LLMProviderConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[name] = cfg
}

// All returns a snapshot of every configured provider, keyed by name.
func (s *ConfigStore) All() map[string]config.LLMProviderConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]config.LLMProviderConfig, len(s.providers))
	for k, v := range s.providers {
		out[k] = v
	}
	return out
}

// MaskedProvider is the §4.C "GET /config" wire shape: API keys shown only
// as their first/last 4 characters.
type MaskedProvider struct {
	Type                  string `json:"type"`
	DefaultModel          string `json:"default_model"`
	BaseURL               string `json:"base_url,omitempty"`
	APIKeyEnv             string `json:"api_key_env,omitempty"`
	APIKeyMasked          string `json:"api_key_masked,omitempty"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// Masked builds the §4.C "GET /config" response for a provider, resolving
// and masking the actual secret value behind APIKeyEnv rather than exposing
// either the raw key or just the environment variable's name.
func Masked(cfg config.LLMProviderConfig) MaskedProvider {
	m := MaskedProvider{
		Type:                  string(cfg.Type),
		DefaultModel:          cfg.DefaultModel,
		BaseURL:               cfg.BaseURL,
		APIKeyEnv:             cfg.APIKeyEnv,
		RequestTimeoutSeconds: cfg.RequestTimeoutSeconds,
	}
	if cfg.APIKeyEnv != "" {
		if key := os.Getenv(cfg.APIKeyEnv); key != "" {
			m.APIKeyMasked = MaskAPIKey(key)
		}
	}
	return m
}

// MaskAPIKey returns key with everything but its first/last 4 characters
// replaced by "...", or unchanged if it is too short to mask meaningfully
// (spec §4.C "values masked to first-4/last-4").
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:4] + "..." + key[len(key)-4:]
}
