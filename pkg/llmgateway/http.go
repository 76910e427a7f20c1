package llmgateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openclaw/agentcore/pkg/config"
)

// RegisterRoutes mounts the gateway's HTTP contract (spec §4.C, §4.D) on r.
func (g *Gateway) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/chat/completions", g.handleChatCompletions)
	r.POST("/chat", g.handleLegacyChat)
	r.GET("/health", g.handleHealth)
	r.GET("/providers", g.handleProviders)
	r.GET("/models", g.handleModels)
	r.GET("/config", g.handleGetConfig)
	r.POST("/config", g.handlePostConfig)
	r.GET("/interactions/:task_id", g.handleGetInteractions)
	r.DELETE("/interactions/:task_id", g.handleDeleteInteractions)
}

func (g *Gateway) taskID(c *gin.Context) (string, bool) {
	id, err := TaskIDFromBearer(c.GetHeader("Authorization"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return "", false
	}
	return id, true
}

func (g *Gateway) handleChatCompletions(c *gin.Context) {
	taskID, ok := g.taskID(c)
	if !ok {
		return
	}

	var req ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Stream {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		flusher, _ := c.Writer.(http.Flusher)
		var flush func()
		if flusher != nil {
			flush = flusher.Flush
		}
		c.Status(http.StatusOK)
		_ = g.Stream(c.Request.Context(), taskID, req, c.Writer, flush)
		return
	}

	resp, err := g.Complete(c.Request.Context(), taskID, req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// legacyChatRequest is the pre-OpenAI-shape contract some older callers
// still use (spec §4.C "legacy POST /chat {prompt, model}").
type legacyChatRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

func (g *Gateway) handleLegacyChat(c *gin.Context) {
	taskID, ok := g.taskID(c)
	if !ok {
		return
	}

	var legacy legacyChatRequest
	if err := c.ShouldBindJSON(&legacy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content, _ := jsonMarshalString(legacy.Prompt)
	req := ChatCompletionRequest{
		Model:    legacy.Model,
		Messages: []ChatMessage{{Role: "user", Content: content}},
	}

	resp, err := g.Complete(c.Request.Context(), taskID, req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	text := ""
	if len(resp.Choices) > 0 && resp.Choices[0].Message != nil {
		text = resp.Choices[0].Message.TextContent()
	}
	c.JSON(http.StatusOK, gin.H{"response": text})
}

// handleHealth pings every configured provider's base URL with a GET
// request and reports "reachable" (any HTTP response) or
// "unreachable: <error>" per provider (spec §4.C "GET /health").
func (g *Gateway) handleHealth(c *gin.Context) {
	result := gin.H{}
	for name, cfg := range g.configs.All() {
		req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, cfg.BaseURL, nil)
		if err == nil {
			var resp *http.Response
			if resp, err = newProviderClient(cfg).httpClient.Do(req); err == nil {
				resp.Body.Close()
				result[name] = "reachable"
				continue
			}
		}
		result[name] = "unreachable: " + err.Error()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "providers": result})
}

func (g *Gateway) handleProviders(c *gin.Context) {
	providers := g.configs.All()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	c.JSON(http.StatusOK, gin.H{"providers": names})
}

func (g *Gateway) handleModels(c *gin.Context) {
	providers := g.configs.All()
	models := make([]gin.H, 0, len(providers))
	for name, cfg := range providers {
		models = append(models, gin.H{"provider": name, "model": cfg.DefaultModel})
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

func (g *Gateway) handleGetConfig(c *gin.Context) {
	providers := g.configs.All()
	masked := make(map[string]MaskedProvider, len(providers))
	for name, cfg := range providers {
		masked[name] = Masked(cfg)
	}
	c.JSON(http.StatusOK, gin.H{"providers": masked})
}

func (g *Gateway) handlePostConfig(c *gin.Context) {
	var req map[string]config.LLMProviderConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for name, cfg := range req {
		g.configs.Set(name, cfg)
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(req)})
}

func (g *Gateway) handleGetInteractions(c *gin.Context) {
	taskID := c.Param("task_id")
	since := 0
	if s := c.Query("since"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			since = parsed
		}
	}
	c.JSON(http.StatusOK, gin.H{"turns": g.ring.Since(taskID, since)})
}

func (g *Gateway) handleDeleteInteractions(c *gin.Context) {
	g.ring.Clear(c.Param("task_id"))
	c.Status(http.StatusNoContent)
}
