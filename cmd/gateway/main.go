// agentcore-gateway hosts the LLM Gateway (spec §4.C) as an independently
// scalable process. The default deployment runs it embedded inside
// cmd/controlplane under /api/llm (the path pkg/agentstep's composeEnv
// hardcodes as LLM_ROUTER_URL); this binary exists for operators who want
// to scale the gateway's outbound LLM traffic separately from task
// orchestration, fronting it with a reverse proxy that rewrites
// LLM_ROUTER_URL to point here instead.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/openclaw/agentcore/pkg/config"
	"github.com/openclaw/agentcore/pkg/llmgateway"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := getEnv("CONFIG_DIR", "./deploy/config")
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	}

	httpPort := getEnv("HTTP_PORT", "8081")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

	ctx := context.Background()
	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	configStore := llmgateway.NewConfigStore(cfg.LLMProviderRegistry.GetAll())
	gateway := llmgateway.NewGateway(configStore)

	router := gin.Default()
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	gateway.RegisterRoutes(router)

	log.Printf("LLM gateway listening on :%s", httpPort)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("gateway server failed: %v", err)
	}
}
