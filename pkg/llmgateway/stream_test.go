package llmgateway

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSSEChunks(t *testing.T, raw string) []ChatCompletionChunk {
	t.Helper()
	var chunks []ChatCompletionChunk
	for _, line := range strings.Split(raw, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			continue
		}
		var c ChatCompletionChunk
		require.NoError(t, json.Unmarshal([]byte(payload), &c))
		chunks = append(chunks, c)
	}
	return chunks
}

func TestWriteSynthesizedOrdersRoleContentToolCallsThenTerminal(t *testing.T) {
	var buf bytes.Buffer
	w := newSSEWriter(&buf, nil)

	content, _ := json.Marshal(strings.Repeat("a", 150))
	msg := &ChatMessage{
		Role:    "assistant",
		Content: content,
		ToolCalls: []ToolCall{
			{Index: 0, ID: "call_1", Type: "function", Function: ToolCallFunc{Name: "search", Arguments: strings.Repeat("x", 250)}},
		},
	}
	resp := &ChatCompletionResponse{
		ID:      "resp-1",
		Model:   "gpt-4o",
		Choices: []Choice{{Index: 0, Message: msg, FinishReason: "tool_calls"}},
		Usage:   &Usage{PromptTokens: 5, CompletionTokens: 10, TotalTokens: 15},
	}

	require.NoError(t, w.WriteSynthesized(resp))

	raw := buf.String()
	assert.True(t, strings.HasSuffix(raw, "data: [DONE]\n\n"))

	chunks := parseSSEChunks(t, raw)
	require.NotEmpty(t, chunks)

	first := chunks[0]
	require.Len(t, first.Choices, 1)
	assert.Equal(t, "assistant", first.Choices[0].Delta.Role)

	var contentChunks, toolOpening, toolArgFrags int
	for _, c := range chunks[1:] {
		d := c.Choices[0].Delta
		switch {
		case d.Content != "":
			contentChunks++
			assert.LessOrEqual(t, len(d.Content), contentChunkSize)
		case len(d.ToolCalls) > 0 && d.ToolCalls[0].Function.Name != "":
			toolOpening++
		case len(d.ToolCalls) > 0 && d.ToolCalls[0].Function.Arguments != "":
			toolArgFrags++
			assert.LessOrEqual(t, len(d.ToolCalls[0].Function.Arguments), argChunkSize)
		}
	}
	assert.Equal(t, 2, contentChunks, "150 chars over a 100 char cap should split into 2 chunks")
	assert.Equal(t, 1, toolOpening)
	assert.Equal(t, 2, toolArgFrags, "250 chars over a 200 char cap should split into 2 fragments")

	terminal := chunks[len(chunks)-1]
	assert.Equal(t, "tool_calls", terminal.Choices[0].FinishReason)
	require.NotNil(t, terminal.Usage)
	assert.Equal(t, 15, terminal.Usage.TotalTokens)
}

func TestWriteSynthesizedToolCallOnlyMessageHasNoContentChunks(t *testing.T) {
	var buf bytes.Buffer
	w := newSSEWriter(&buf, nil)

	msg := &ChatMessage{Role: "assistant", ToolCalls: []ToolCall{
		{Index: 0, ID: "call_1", Type: "function", Function: ToolCallFunc{Name: "search", Arguments: `{"q":"x"}`}},
	}}
	resp := &ChatCompletionResponse{
		Choices: []Choice{{Index: 0, Message: msg, FinishReason: "tool_calls"}},
	}
	require.NoError(t, w.WriteSynthesized(resp))

	chunks := parseSSEChunks(t, buf.String())
	for _, c := range chunks[1 : len(chunks)-1] {
		assert.Empty(t, c.Choices[0].Delta.Content)
	}
}

func TestWriteErrorEmitsLLMErrorSentinelThenDone(t *testing.T) {
	var buf bytes.Buffer
	w := newSSEWriter(&buf, nil)
	require.NoError(t, w.WriteError(assert.AnError))

	raw := buf.String()
	assert.Contains(t, raw, "[LLM_ERROR]")
	assert.True(t, strings.HasSuffix(raw, "data: [DONE]\n\n"))
}
