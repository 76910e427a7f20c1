package llmgateway

import (
	"context"
	"net/http"

	"github.com/openclaw/agentcore/pkg/config"
)

// openaiBackend is a near passthrough: the wire format already matches
// OpenAI's own, so only Authorization and stream:false need setting (spec
// §4.C "OpenAI").
type openaiBackend struct {
	client *providerClient
}

func newOpenAIBackend(cfg config.LLMProviderConfig) *openaiBackend {
	return &openaiBackend{client: newProviderClient(cfg)}
}

func (b *openaiBackend) chat(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	req.Stream = false
	var resp ChatCompletionResponse
	auth := func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+b.client.apiKey)
	}
	if err := b.client.doJSON(ctx, "/chat/completions", req, &resp, auth); err != nil {
		return nil, err
	}
	return &resp, nil
}
