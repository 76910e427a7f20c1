package llmgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/agentcore/pkg/config"
)

func TestOpenAIBackendSetsBearerAuthAndForcesNonStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		resp := ChatCompletionResponse{
			ID:      "chatcmpl-1",
			Model:   "gpt-4o",
			Choices: []Choice{{Index: 0, Message: &ChatMessage{Role: "assistant", Content: mustJSON("hi")}, FinishReason: "stop"}},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	t.Setenv("OPENAI_TEST_KEY", "sk-test")
	backend := newOpenAIBackend(config.LLMProviderConfig{BaseURL: srv.URL, APIKeyEnv: "OPENAI_TEST_KEY"})

	resp, err := backend.chat(context.Background(), ChatCompletionRequest{Model: "gpt-4o", Stream: true})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Choices[0].Message.TextContent())
}
