package llmgateway

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/openclaw/agentcore/pkg/config"
)

// Gateway is the top-level orchestrator: it resolves a request's task id and
// provider, dispatches to the matching backend, records the turn, and hands
// back either a complete response or a stream writer for the caller to
// drain.
type Gateway struct {
	configs *ConfigStore
	ring    *Ring
	sigs    *ThoughtSignatureCache
}

// NewGateway constructs a Gateway over a live config store. A fresh Ring and
// ThoughtSignatureCache are process-global state owned by the gateway.
func NewGateway(configs *ConfigStore) *Gateway {
	return &Gateway{configs: configs, ring: NewRing(), sigs: NewThoughtSignatureCache()}
}

// TaskIDFromBearer extracts the task id from an "Authorization: Bearer
// task:<id>" header value (spec §4.C "task identity travels as a bearer
// token").
func TaskIDFromBearer(header string) (string, error) {
	const prefix = "Bearer task:"
	if !strings.HasPrefix(header, prefix) {
		return "", ErrUnauthorized
	}
	id := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if id == "" {
		return "", ErrUnauthorized
	}
	return id, nil
}

func (g *Gateway) providerConfig(provider Provider) (config.LLMProviderConfig, error) {
	cfg, ok := g.configs.Get(string(provider))
	if !ok {
		return config.LLMProviderConfig{}, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return cfg, nil
}

func requestSummary(req ChatCompletionRequest) RequestSummary {
	s := RequestSummary{MessageCount: len(req.Messages)}
	for _, m := range req.Messages {
		s.Roles = append(s.Roles, m.Role)
		if m.Role == "tool" {
			s.ToolResultCount++
		}
	}
	return s
}

func responseSummary(resp *ChatCompletionResponse) ResponseSummary {
	if resp == nil || len(resp.Choices) == 0 {
		return ResponseSummary{}
	}
	choice := resp.Choices[0]
	s := ResponseSummary{FinishReason: choice.FinishReason, Usage: resp.Usage}
	if choice.Message != nil {
		text := choice.Message.TextContent()
		if len(text) > 200 {
			text = text[:200]
		}
		s.TextPreview = text
		s.ToolCalls = choice.Message.ToolCalls
	}
	return s
}

// Complete performs one non-streamed request/response round trip, recording
// the resulting turn against taskID.
func (g *Gateway) Complete(ctx context.Context, taskID string, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	provider := DetectProvider(req.Model)
	cfg, err := g.providerConfig(provider)
	if err != nil {
		return nil, err
	}

	var resp *ChatCompletionResponse
	switch provider {
	case ProviderOllama:
		resp, err = newOllamaBackend(cfg).chat(ctx, req)
	case ProviderAnthropic:
		resp, err = newAnthropicBackend(cfg).chat(ctx, req)
	case ProviderOpenAI:
		resp, err = newOpenAIBackend(cfg).chat(ctx, req)
	case ProviderGemini:
		resp, err = newGeminiBackend(cfg, g.sigs).chat(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	if err != nil {
		return nil, err
	}

	g.ring.Append(taskID, provider, false, requestSummary(req), responseSummary(resp))
	return resp, nil
}

// Stream performs a streamed round trip, writing SSE chunks to w as they
// become available and recording the resulting turn once the stream
// completes (or fails).
func (g *Gateway) Stream(ctx context.Context, taskID string, req ChatCompletionRequest, w io.Writer, flush func()) error {
	provider := DetectProvider(req.Model)
	cfg, err := g.providerConfig(provider)
	sse := newSSEWriter(w, flush)
	if err != nil {
		return sse.WriteError(err)
	}

	if provider == ProviderGemini {
		body, err := newGeminiBackend(cfg, g.sigs).stream(ctx, req)
		if err != nil {
			return sse.WriteError(err)
		}
		defer body.Close()
		if _, err := io.Copy(w, body); err != nil {
			return sse.WriteError(err)
		}
		if flush != nil {
			flush()
		}
		g.ring.Append(taskID, provider, true, requestSummary(req), ResponseSummary{})
		return nil
	}

	var resp *ChatCompletionResponse
	switch provider {
	case ProviderOllama:
		resp, err = newOllamaBackend(cfg).chat(ctx, req)
	case ProviderAnthropic:
		resp, err = newAnthropicBackend(cfg).chat(ctx, req)
	case ProviderOpenAI:
		resp, err = newOpenAIBackend(cfg).chat(ctx, req)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	if err != nil {
		return sse.WriteError(err)
	}

	if err := sse.WriteSynthesized(resp); err != nil {
		return err
	}
	g.ring.Append(taskID, provider, true, requestSummary(req), responseSummary(resp))
	return nil
}

// Ring exposes the interaction log registry for read endpoints.
func (g *Gateway) Ring() *Ring { return g.ring }

// Configs exposes the live provider configuration store for read/write
// endpoints.
func (g *Gateway) Configs() *ConfigStore { return g.configs }
