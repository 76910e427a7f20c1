package llmgateway

import "strings"

// Provider identifies which backend a model routes to.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// DetectProvider maps a model name to a provider by lower-cased prefix
// (spec §4.C "Provider detection"). Anything unrecognised routes to Ollama,
// the local fallback provider.
func DetectProvider(model string) Provider {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "gemini"):
		return ProviderGemini
	case strings.HasPrefix(m, "claude"):
		return ProviderAnthropic
	case strings.HasPrefix(m, "gpt-"), strings.HasPrefix(m, "o1-"), strings.HasPrefix(m, "o3-"), strings.HasPrefix(m, "o4-"):
		return ProviderOpenAI
	default:
		return ProviderOllama
	}
}
