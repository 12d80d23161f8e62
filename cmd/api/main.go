package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/support-agent/backend/internal/agent"
	"github.com/support-agent/backend/internal/api/handlers"
	"github.com/support-agent/backend/internal/cache/redis"
	"github.com/support-agent/backend/internal/chunker"
	"github.com/support-agent/backend/internal/embedding"
	"github.com/support-agent/backend/internal/history"
	"github.com/support-agent/backend/internal/ingest"
	"github.com/support-agent/backend/internal/llm"
	"github.com/support-agent/backend/internal/metrics"
	"github.com/support-agent/backend/internal/retrieval"
	"github.com/support-agent/backend/internal/vector"
	"github.com/support-agent/backend/internal/vector/memory"
	"github.com/support-agent/backend/internal/vector/milvus"
	"github.com/support-agent/backend/pkg/config"
	appLogger "github.com/support-agent/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting support agent API server")

	metrics.Init()

	index, closeIndex, err := newIndex(cfg)
	if err != nil {
		appLogger.Fatal("Failed to create vector index client", zap.Error(err))
	}
	defer closeIndex()

	// No embeddings means no pipeline; fail fast here.
	provider, err := embedding.Shared(cfg.Embedding.Model, embedding.Options{
		APIKey:    cfg.Embedding.APIKey,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize embedding provider", zap.Error(err))
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache, err = redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, continuing without embedding cache", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	store, err := history.NewStore(cfg.History.Path)
	if err != nil {
		appLogger.Fatal("Failed to create history store", zap.Error(err))
	}
	defer store.Close()

	if err := store.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize history schema", zap.Error(err))
	}

	chk, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		appLogger.Fatal("Invalid chunking configuration", zap.Error(err))
	}

	completer := llm.NewClient(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	})

	ingestor := ingest.NewIngestor(chk, provider, index, cfg.Collection)
	retriever := retrieval.NewRetriever(provider, index, cfg.Collection, cache)
	scorer := retrieval.NewScorer(
		cfg.Confidence.ConfidenceThreshold,
		cfg.Confidence.UncertainDistanceThreshold,
	)
	supportAgent := agent.New(retriever, scorer, completer, store)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.RateLimitPerMinute,
		Expiration: time.Minute,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	queryHandler := handlers.NewQueryHandler(supportAgent, store)
	ingestHandler := handlers.NewIngestHandler(ingestor)
	collectionsHandler := handlers.NewCollectionsHandler(index)
	wsHandler := handlers.NewWebSocketHandler(ingestor)

	api := app.Group("/api/v1")

	api.Post("/query", queryHandler.HandleQuery)
	api.Get("/history", queryHandler.GetHistory)

	api.Post("/ingest", ingestHandler.HandleIngest)

	api.Get("/collections", collectionsHandler.List)
	api.Get("/collections/:name/count", collectionsHandler.Count)
	api.Delete("/collections/:name", collectionsHandler.Delete)
	api.Get("/collections/:name/chunks/:id", collectionsHandler.GetChunk)

	app.Get("/ws/ingest", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

func newIndex(cfg *config.Config) (vector.Index, func(), error) {
	switch cfg.VectorIndex.Backend {
	case "memory":
		appLogger.Warn("Using in-memory vector index; data will not survive restarts")
		return memory.NewIndex(), func() {}, nil
	default:
		client, err := milvus.NewClient(
			cfg.VectorIndex.Host,
			cfg.VectorIndex.Port,
			cfg.Embedding.Dimension,
			time.Duration(cfg.VectorIndex.TimeoutSec)*time.Second,
		)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { client.Close() }, nil
	}
}
