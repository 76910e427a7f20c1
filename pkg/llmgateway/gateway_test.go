package llmgateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/agentcore/pkg/config"
)

func TestTaskIDFromBearer(t *testing.T) {
	id, err := TaskIDFromBearer("Bearer task:abc-123")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)
}

func TestTaskIDFromBearerRejectsMalformedHeader(t *testing.T) {
	_, err := TaskIDFromBearer("Bearer abc-123")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = TaskIDFromBearer("Bearer task:")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = TaskIDFromBearer("")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGatewayCompleteRejectsUnknownProvider(t *testing.T) {
	store := NewConfigStore(map[string]*config.LLMProviderConfig{})
	gw := NewGateway(store)

	_, err := gw.Complete(context.Background(), "task-1", ChatCompletionRequest{Model: "gpt-4o"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRequestSummaryCountsRolesAndToolResults(t *testing.T) {
	req := ChatCompletionRequest{Messages: []ChatMessage{
		{Role: "system"}, {Role: "user"}, {Role: "tool"}, {Role: "tool"},
	}}
	s := requestSummary(req)
	assert.Equal(t, 4, s.MessageCount)
	assert.Equal(t, 2, s.ToolResultCount)
	assert.Equal(t, []string{"system", "user", "tool", "tool"}, s.Roles)
}

func TestResponseSummaryTruncatesPreview(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	msg := &ChatMessage{Role: "assistant"}
	msg.Content, _ = jsonMarshalString(string(long))
	resp := &ChatCompletionResponse{Choices: []Choice{{Message: msg, FinishReason: "stop"}}}

	s := responseSummary(resp)
	assert.Len(t, s.TextPreview, 200)
	assert.Equal(t, "stop", s.FinishReason)
}
