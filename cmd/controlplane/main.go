// agentcore-controlplane serves the HTTP control plane (spec §6): task and
// deployment lifecycle management, capability review, and the embedded LLM
// gateway and image builder routers.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/openclaw/agentcore/pkg/agentstep"
	"github.com/openclaw/agentcore/pkg/api"
	"github.com/openclaw/agentcore/pkg/config"
	"github.com/openclaw/agentcore/pkg/containerengine"
	"github.com/openclaw/agentcore/pkg/database"
	"github.com/openclaw/agentcore/pkg/deployment"
	"github.com/openclaw/agentcore/pkg/imagebuilder"
	"github.com/openclaw/agentcore/pkg/llmgateway"
	"github.com/openclaw/agentcore/pkg/store"
	"github.com/openclaw/agentcore/pkg/workflow"
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

	httpPort := getEnv("HTTP_PORT", "8080")
	controlPlaneURL := getEnv("CONTROL_PLANE_URL", "http://localhost:"+httpPort)
	ollamaURL := getEnv("OLLAMA_URL", "http://localhost:11434")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("error closing database client: %v", err)
		}
	}()
	log.Println("connected to PostgreSQL, migrations applied")

	engine, err := containerengine.New()
	if err != nil {
		log.Fatalf("failed to initialize container engine: %v", err)
	}
	defer engine.Close()

	builder := imagebuilder.New(engine, cfg.Paths)
	if err := builder.Bootstrap(ctx); err != nil {
		log.Fatalf("failed to bootstrap base image: %v", err)
	}

	configStore := llmgateway.NewConfigStore(cfg.LLMProviderRegistry.GetAll())
	gateway := llmgateway.NewGateway(configStore)

	db := dbClient.DB()
	taskRepo := store.NewTaskRepository(db)
	outputRepo := store.NewOutputRepository(db)
	messageRepo := store.NewMessageRepository(db)
	capRepo := store.NewCapabilityRepository(db)
	policyRepo := store.NewPolicyRepository(db)
	deployRepo := store.NewDeploymentRepository(db)

	steps := agentstep.New(engine, cfg.Paths.Registry, cfg.Workflow)
	workflows := workflow.New(cfg.Workflow, cfg.Paths, steps, builder, taskRepo, outputRepo, capRepo, policyRepo, deployRepo)
	deployments := deployment.New(engine, builder, deployRepo, cfg.DeploymentPorts)

	server := api.New(api.Server{
		Workflows:       workflows,
		Deployments:     deployments,
		Tasks:           taskRepo,
		Outputs:         outputRepo,
		Messages:        messageRepo,
		Capabilities:    capRepo,
		DeploymentDB:    deployRepo,
		LLMGateway:      gateway,
		ImageBuilder:    builder,
		ControlPlaneURL: controlPlaneURL,
		OllamaURL:       ollamaURL,
	})

	router := gin.Default()
	server.RegisterRoutes(router, func(ctx context.Context) (*database.HealthStatus, error) {
		return database.Health(ctx, db)
	})

	srv := &http.Server{Addr: ":" + httpPort, Handler: router}
	go func() {
		log.Printf("control plane listening on :%s", httpPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("control plane server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down control plane")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Workflow.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("control plane shutdown error: %v", err)
	}
}
