package llmgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openclaw/agentcore/pkg/config"
)

// geminiMaxRetries bounds the retry loop for malformed-function-call
// responses and transport failures (spec §4.C "Gemini" retry policy).
const geminiMaxRetries = 3

// geminiBackend calls Google's OpenAI-compatibility endpoint. Two things
// set it apart from openaiBackend: cached thought-signatures are injected
// into outgoing assistant tool-call messages and harvested from incoming
// ones, and streaming is passed through raw with a retry loop rather than
// synthesized (spec §4.C "Gemini").
type geminiBackend struct {
	client *providerClient
	sigs   *ThoughtSignatureCache
}

func newGeminiBackend(cfg config.LLMProviderConfig, sigs *ThoughtSignatureCache) *geminiBackend {
	return &geminiBackend{client: newProviderClient(cfg), sigs: sigs}
}

type geminiThoughtSignature struct {
	Google struct {
		ThoughtSignature string `json:"thought_signature"`
	} `json:"google"`
}

func (b *geminiBackend) injectThoughtSignatures(messages []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(messages))
	copy(out, messages)
	for i, m := range out {
		if m.Role != "assistant" || len(m.ToolCalls) == 0 {
			continue
		}
		for _, tc := range m.ToolCalls {
			sig, ok := b.sigs.Get(tc.ID)
			if !ok {
				continue
			}
			extra := geminiThoughtSignature{}
			extra.Google.ThoughtSignature = sig
			encoded, err := json.Marshal(extra)
			if err != nil {
				continue
			}
			if out[i].Extra == nil {
				out[i].Extra = map[string]json.RawMessage{}
			}
			out[i].Extra["extra_content"] = encoded
			break
		}
	}
	return out
}

func (b *geminiBackend) harvestThoughtSignatures(msg *ChatMessage) {
	if msg == nil || len(msg.Extra) == 0 || len(msg.ToolCalls) == 0 {
		return
	}
	raw, ok := msg.Extra["extra_content"]
	if !ok {
		return
	}
	var sig geminiThoughtSignature
	if err := json.Unmarshal(raw, &sig); err != nil || sig.Google.ThoughtSignature == "" {
		return
	}
	for _, tc := range msg.ToolCalls {
		b.sigs.Put(tc.ID, sig.Google.ThoughtSignature)
	}
}

func (b *geminiBackend) auth(r *http.Request) {
	r.Header.Set("Authorization", "Bearer "+b.client.apiKey)
}

// chat performs a non-streamed call with the malformed-function-call retry
// policy: up to geminiMaxRetries attempts, 0.5*attempt second backoff,
// retrying both transport errors and a finish_reason of
// MALFORMED_FUNCTION_CALL.
func (b *geminiBackend) chat(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	req.Messages = b.injectThoughtSignatures(req.Messages)
	req.Stream = false

	var lastErr error
	for attempt := 1; attempt <= geminiMaxRetries; attempt++ {
		var resp ChatCompletionResponse
		err := b.client.doJSON(ctx, "/chat/completions", req, &resp, b.auth)
		if err == nil {
			finish := ""
			if len(resp.Choices) > 0 {
				finish = resp.Choices[0].FinishReason
				if finish == "stop" && len(resp.Choices[0].Message.ToolCalls) > 0 {
					resp.Choices[0].FinishReason = "tool_calls"
				}
			}
			if finish != "MALFORMED_FUNCTION_CALL" {
				if len(resp.Choices) > 0 {
					b.harvestThoughtSignatures(resp.Choices[0].Message)
				}
				return &resp, nil
			}
			lastErr = fmt.Errorf("%w: MALFORMED_FUNCTION_CALL", ErrProviderError)
		} else {
			lastErr = err
		}

		if attempt < geminiMaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
	}
	return nil, lastErr
}

// stream passes Gemini's own SSE body through unmodified, with the same
// retry policy applied before the first byte is forwarded; once streaming
// begins a failure is surfaced as a synthetic [LLM_ERROR] chunk rather than
// retried (spec §4.C "streaming passthrough").
func (b *geminiBackend) stream(ctx context.Context, req ChatCompletionRequest) (io.ReadCloser, error) {
	req.Messages = b.injectThoughtSignatures(req.Messages)
	req.Stream = true

	var lastErr error
	for attempt := 1; attempt <= geminiMaxRetries; attempt++ {
		resp, err := b.client.doRaw(ctx, "/chat/completions", req, b.auth)
		if err == nil {
			return resp.Body, nil
		}
		lastErr = err
		if attempt < geminiMaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
	}
	return nil, lastErr
}
