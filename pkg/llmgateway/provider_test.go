package llmgateway

import "testing"

func TestDetectProvider(t *testing.T) {
	cases := map[string]Provider{
		"gemini-2.5-pro":     ProviderGemini,
		"Gemini-Flash":       ProviderGemini,
		"claude-sonnet-4":    ProviderAnthropic,
		"gpt-4o":             ProviderOpenAI,
		"o1-preview":         ProviderOpenAI,
		"o3-mini":            ProviderOpenAI,
		"o4-mini":            ProviderOpenAI,
		"llama3":             ProviderOllama,
		"mistral":            ProviderOllama,
		"":                   ProviderOllama,
	}
	for model, want := range cases {
		if got := DetectProvider(model); got != want {
			t.Errorf("DetectProvider(%q) = %q, want %q", model, got, want)
		}
	}
}
