package llmgateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/agentcore/pkg/config"
)

func newTestRouter(t *testing.T, gw *Gateway) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	gw.RegisterRoutes(r)
	return r
}

func TestHandleChatCompletionsRequiresBearerTaskToken(t *testing.T) {
	store := NewConfigStore(nil)
	gw := NewGateway(store)
	r := newTestRouter(t, gw)

	body, _ := json.Marshal(ChatCompletionRequest{Model: "gpt-4o"})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleChatCompletionsNonStreaming(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: "hi"}, Done: true}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer upstream.Close()

	store := NewConfigStore(map[string]*config.LLMProviderConfig{
		"ollama": {Type: config.ProviderOllama, DefaultModel: "llama3", BaseURL: upstream.URL},
	})
	gw := NewGateway(store)
	r := newTestRouter(t, gw)

	body, _ := json.Marshal(ChatCompletionRequest{Model: "llama3", Messages: []ChatMessage{{Role: "user", Content: mustJSON("hi")}}})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer task:task-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatCompletionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hi", resp.Choices[0].Message.TextContent())

	turns := gw.Ring().Since("task-1", 0)
	assert.Len(t, turns, 1)
}

func TestHandleGetConfigMasksAPIKeys(t *testing.T) {
	t.Setenv("TEST_GATEWAY_HTTP_KEY", "sk-abcdefghijklmnopqrstuvwxyz789")
	store := NewConfigStore(map[string]*config.LLMProviderConfig{
		"openai": {Type: config.ProviderOpenAI, DefaultModel: "gpt-4o", APIKeyEnv: "TEST_GATEWAY_HTTP_KEY"},
	})
	gw := NewGateway(store)
	r := newTestRouter(t, gw)

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Providers map[string]MaskedProvider `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "sk-a...z789", body.Providers["openai"].APIKeyMasked)
}

func TestHandlePostConfigThenGetRoundTrips(t *testing.T) {
	store := NewConfigStore(map[string]*config.LLMProviderConfig{
		"openai": {Type: config.ProviderOpenAI, DefaultModel: "gpt-4o"},
	})
	gw := NewGateway(store)
	r := newTestRouter(t, gw)

	update := map[string]config.LLMProviderConfig{
		"openai": {Type: config.ProviderOpenAI, DefaultModel: "gpt-4o-mini"},
	}
	body, _ := json.Marshal(update)
	req := httptest.NewRequest(http.MethodPost, "/config", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cfg, ok := store.Get("openai")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", cfg.DefaultModel)
}

func TestHandleInteractionsGetAndDelete(t *testing.T) {
	store := NewConfigStore(nil)
	gw := NewGateway(store)
	gw.Ring().Append("task-1", ProviderOllama, false, RequestSummary{}, ResponseSummary{})
	r := newTestRouter(t, gw)

	req := httptest.NewRequest(http.MethodGet, "/interactions/task-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	delReq := httptest.NewRequest(http.MethodDelete, "/interactions/task-1", nil)
	delRec := httptest.NewRecorder()
	r.ServeHTTP(delRec, delReq)
	assert.Equal(t, http.StatusNoContent, delRec.Code)
	assert.Empty(t, gw.Ring().Since("task-1", 0))
}
