// ontorun is the runtime server: it loads configuration, wires the
// Ontology Registry, Query Resolver/Executor, Action Dispatcher, Reflexion
// Loop, and Debug Logger/Replay Engine together against the
// internal/hotelfixture domain, then serves pkg/api's HTTP surface.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Sam-at-git/aipms-sub001/internal/hotelfixture"
	"github.com/Sam-at-git/aipms-sub001/pkg/actions"
	"github.com/Sam-at-git/aipms-sub001/pkg/api"
	"github.com/Sam-at-git/aipms-sub001/pkg/config"
	"github.com/Sam-at-git/aipms-sub001/pkg/debugstore"
	"github.com/Sam-at-git/aipms-sub001/pkg/llm"
	"github.com/Sam-at-git/aipms-sub001/pkg/ontology"
	"github.com/Sam-at-git/aipms-sub001/pkg/reflexion"
	"github.com/Sam-at-git/aipms-sub001/pkg/rowstore/postgres"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "debug")
	gin.SetMode(ginMode)

	log.Printf("Starting ontorun")
	log.Printf("HTTP port: %s", httpPort)
	log.Printf("Config directory: %s", *configDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, stopping ontorun...")
		cancel()
	}()

	cfg, err := config.Load(filepath.Join(*configDir, "config.yaml"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rowStore, err := postgres.NewStore(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		log.Fatalf("Failed to connect to row store: %v", err)
	}
	defer func() {
		if err := rowStore.Close(); err != nil {
			log.Printf("Error closing row store: %v", err)
		}
	}()
	log.Println("Connected to Postgres row store")

	debugStore, err := debugstore.New(cfg.Retention.DebugSessionDSN)
	if err != nil {
		log.Fatalf("Failed to open debug store: %v", err)
	}
	defer func() {
		if err := debugStore.Close(); err != nil {
			log.Printf("Error closing debug store: %v", err)
		}
	}()
	log.Println("Debug store ready")

	ont := ontology.NewRegistry()
	actionRegistry := actions.NewRegistry(ont)
	if err := hotelfixture.Register(ont, actionRegistry, rowStore.DB()); err != nil {
		log.Fatalf("Failed to register hotel fixture: %v", err)
	}
	ont.Freeze()
	log.Printf("Ontology registry frozen: %d entities, %d actions", len(ont.EntityNames()), len(ont.ActionNames()))

	llmClient := buildLLMClient(cfg.LLM)
	reflexionLoop := reflexion.NewLoop(actionRegistry, ont,
		reflexion.WithMaxRetries(cfg.Reflexion.MaxRetries),
		reflexion.WithLLM(llmClient))

	dispatcher := debugstore.WrapReflexion(func(ctx context.Context, name string, params map[string]any, dctx actions.Context) (any, error) {
		result, err := reflexionLoop.Run(ctx, name, params, dctx)
		if err != nil {
			return nil, err
		}
		return result.Result, nil
	})

	server := api.NewServer(debugStore, dispatcher)

	stopCleanup := startRetentionSweeper(ctx, debugStore, cfg.Retention)
	defer stopCleanup()

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := rowStore.DB().PingContext(reqCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"entities": len(ont.EntityNames()),
			"actions":  len(ont.ActionNames()),
		})
	})

	healthServer := &http.Server{Addr: ":" + httpPort, Handler: router}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down HTTP servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down API server: %v", err)
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down health server: %v", err)
		}
	}()

	apiPort := getEnv("API_PORT", "8081")
	go func() {
		log.Printf("Debug/replay API listening on :%s", apiPort)
		if err := server.Start(":" + apiPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server error: %v", err)
		}
	}()

	log.Printf("Health check listening on :%s", httpPort)
	if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start health server: %v", err)
	}

	log.Println("ontorun stopped gracefully")
}

// buildLLMClient returns a real Anthropic-backed client when an API key is
// configured, or llm.NullLLM{} so the Reflexion Loop falls back to
// rule-only auto-correction.
func buildLLMClient(cfg config.LLMConfig) llm.Client {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		log.Printf("No %s set: running reflexion with rule-based auto-correction only", cfg.APIKeyEnv)
		return llm.NullLLM{}
	}
	return llm.NewAnthropicClient(apiKey, cfg.Model)
}

// startRetentionSweeper runs cleanup_old_sessions on cfg.CleanupInterval
// until ctx is cancelled, returning a stop func the caller defers.
func startRetentionSweeper(ctx context.Context, store *debugstore.Store, cfg config.RetentionConfig) func() {
	if cfg.CleanupInterval <= 0 {
		return func() {}
	}
	ticker := time.NewTicker(cfg.CleanupInterval)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := store.CleanupOldSessions(ctx, cfg.SessionRetentionDays)
				if err != nil {
					log.Printf("Retention sweep failed: %v", err)
					continue
				}
				if deleted > 0 {
					log.Printf("Retention sweep deleted %d sessions older than %d days", deleted, cfg.SessionRetentionDays)
				}
			}
		}
	}()

	return func() {
		ticker.Stop()
		<-done
	}
}
