package llmgateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/openclaw/agentcore/pkg/config"
)

// anthropicBackend translates OpenAI-shaped requests to Anthropic's Messages
// API (spec §4.C "Anthropic"): system messages are lifted to a top-level
// field, assistant tool-calls become content-block tool_use entries, tool
// results become user messages carrying a tool_result block, and tools are
// flattened from OpenAI's {function: {name, parameters}} to Anthropic's
// {name, input_schema}.
type anthropicBackend struct {
	client *providerClient
}

func newAnthropicBackend(cfg config.LLMProviderConfig) *anthropicBackend {
	return &anthropicBackend{client: newProviderClient(cfg)}
}

type anthropicContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicResponse struct {
	ID         string                  `json:"id"`
	Model      string                  `json:"model"`
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (b *anthropicBackend) chat(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	areq := anthropicRequest{Model: req.Model, MaxTokens: 4096}
	if req.MaxTokens != nil {
		areq.MaxTokens = *req.MaxTokens
	}

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			areq.System = m.TextContent()
		case "tool":
			areq.Messages = append(areq.Messages, anthropicMessage{
				Role: "user",
				Content: []anthropicContentBlock{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   m.TextContent(),
				}},
			})
		case "assistant":
			var blocks []anthropicContentBlock
			if text := m.TextContent(); text != "" {
				blocks = append(blocks, anthropicContentBlock{Type: "text", Text: text})
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropicContentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Function.Name,
					Input: json.RawMessage(tc.Function.Arguments),
				})
			}
			areq.Messages = append(areq.Messages, anthropicMessage{Role: "assistant", Content: blocks})
		default:
			areq.Messages = append(areq.Messages, anthropicMessage{
				Role:    "user",
				Content: []anthropicContentBlock{{Type: "text", Text: m.TextContent()}},
			})
		}
	}

	for _, t := range req.Tools {
		areq.Tools = append(areq.Tools, anthropicTool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}

	var aresp anthropicResponse
	auth := func(r *http.Request) {
		r.Header.Set("x-api-key", b.client.apiKey)
		r.Header.Set("anthropic-version", "2023-06-01")
	}
	if err := b.client.doJSON(ctx, "/v1/messages", areq, &aresp, auth); err != nil {
		return nil, err
	}

	msg := ChatMessage{Role: "assistant"}
	var text string
	toolIdx := 0
	for _, block := range aresp.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "tool_use":
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				Index: toolIdx,
				ID:    block.ID,
				Type:  "function",
				Function: ToolCallFunc{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
			toolIdx++
		}
	}
	msg.Content, _ = json.Marshal(text)

	finish := "stop"
	switch aresp.StopReason {
	case "tool_use":
		finish = "tool_calls"
	case "max_tokens":
		finish = "length"
	}

	return &ChatCompletionResponse{
		ID:      aresp.ID,
		Object:  "chat.completion",
		Model:   req.Model,
		Choices: []Choice{{Index: 0, Message: &msg, FinishReason: finish}},
		Usage: &Usage{
			PromptTokens:     aresp.Usage.InputTokens,
			CompletionTokens: aresp.Usage.OutputTokens,
			TotalTokens:      aresp.Usage.InputTokens + aresp.Usage.OutputTokens,
		},
	}, nil
}
