package llmgateway

import (
	"context"
	"encoding/json"

	"github.com/openclaw/agentcore/pkg/config"
)

// ollamaBackend translates to/from Ollama's native /api/chat endpoint (spec
// §4.C "Ollama"). Ollama has no separate streaming story here: every call is
// made with stream:false and the gateway synthesizes SSE chunks itself if
// the caller asked for streaming.
type ollamaBackend struct {
	client *providerClient
}

func newOllamaBackend(cfg config.LLMProviderConfig) *ollamaBackend {
	return &ollamaBackend{client: newProviderClient(cfg)}
}

type ollamaTool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ollamaMessage struct {
	Role      string          `json:"role"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

func (b *ollamaBackend) chat(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	oreq := ollamaChatRequest{Model: req.Model, Stream: false}
	for _, m := range req.Messages {
		oreq.Messages = append(oreq.Messages, ollamaMessage{Role: m.Role, Content: m.TextContent()})
	}
	for _, t := range req.Tools {
		oreq.Tools = append(oreq.Tools, ollamaTool{Type: t.Type, Function: t.Function})
	}

	var oresp ollamaChatResponse
	if err := b.client.doJSON(ctx, "/api/chat", oreq, &oresp, nil); err != nil {
		return nil, err
	}

	msg := ChatMessage{Role: "assistant"}
	msg.Content, _ = json.Marshal(oresp.Message.Content)
	finish := "stop"
	for i, tc := range oresp.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			Index: i,
			ID:    syntheticToolCallID(i),
			Type:  "function",
			Function: ToolCallFunc{
				Name:      tc.Function.Name,
				Arguments: string(tc.Function.Arguments),
			},
		})
	}
	if len(msg.ToolCalls) > 0 {
		finish = "tool_calls"
	}

	return &ChatCompletionResponse{
		Object:  "chat.completion",
		Model:   req.Model,
		Choices: []Choice{{Index: 0, Message: &msg, FinishReason: finish}},
		Usage: &Usage{
			PromptTokens:     oresp.PromptEvalCount,
			CompletionTokens: oresp.EvalCount,
			TotalTokens:      oresp.PromptEvalCount + oresp.EvalCount,
		},
	}, nil
}

func syntheticToolCallID(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 8)
	for j := range b {
		b[j] = letters[(i+j*7)%len(letters)]
	}
	return "call_" + string(b)
}
