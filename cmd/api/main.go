package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/analytics"
	"github.com/hr-assistant/backend/internal/api/handlers"
	"github.com/hr-assistant/backend/internal/auth"
	"github.com/hr-assistant/backend/internal/cache/redis"
	"github.com/hr-assistant/backend/internal/classify"
	"github.com/hr-assistant/backend/internal/confidence"
	"github.com/hr-assistant/backend/internal/escalation"
	"github.com/hr-assistant/backend/internal/ingestion"
	"github.com/hr-assistant/backend/internal/llm"
	"github.com/hr-assistant/backend/internal/metrics"
	"github.com/hr-assistant/backend/internal/middleware/ratelimit"
	"github.com/hr-assistant/backend/internal/middleware/security"
	"github.com/hr-assistant/backend/internal/middleware/validation"
	"github.com/hr-assistant/backend/internal/pipeline"
	"github.com/hr-assistant/backend/internal/respond"
	"github.com/hr-assistant/backend/internal/retrieval"
	"github.com/hr-assistant/backend/internal/storage/sqlite"
	"github.com/hr-assistant/backend/internal/vector/milvus"
	"github.com/hr-assistant/backend/pkg/config"
	appLogger "github.com/hr-assistant/backend/pkg/logger"
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

	appLogger.Info("Starting HR Assistant API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	milvusClient, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	err = milvusClient.CreateCollection(context.Background())
	if err != nil {
		appLogger.Fatal("Failed to create collection", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, embedding cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	classifier := classify.NewClassifier(llmClient)
	retriever := retrieval.NewRetriever(llmClient, milvusClient, redisClient, cfg.Retrieval.TopK, cfg.Retrieval.MinRelevance)
	responder := respond.NewResponder(llmClient)
	assessor := confidence.NewAssessor(cfg.Pipeline.NoContextCeiling)
	policy := escalation.NewPolicy(cfg.Pipeline.EscalationThreshold, cfg.Pipeline.AlwaysComplexCategories)
	sink := analytics.NewSQLiteSink(sqliteClient)

	resolver := pipeline.New(classifier, retriever, responder, assessor, policy, sink, pipeline.Options{
		ClassifyTimeout:  time.Duration(cfg.Pipeline.ClassifyTimeoutSec) * time.Second,
		RetrieveTimeout:  time.Duration(cfg.Pipeline.RetrieveTimeoutSec) * time.Second,
		GenerateTimeout:  time.Duration(cfg.Pipeline.GenerateTimeoutSec) * time.Second,
		SinkMaxAttempts:  cfg.Pipeline.SinkMaxAttempts,
		SinkInitialDelay: time.Duration(cfg.Pipeline.SinkInitialDelayMs) * time.Millisecond,
		SinkMaxDelay:     time.Duration(cfg.Pipeline.SinkMaxDelayMs) * time.Millisecond,
	})

	processor := ingestion.NewProcessor(sqliteClient, milvusClient, llmClient, cfg.Ingestion.ChunkSize, cfg.Ingestion.OverlapSentences)
	analyticsService := analytics.NewService(sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.NewLimiter(120)
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Employee-ID, X-Employee-Role",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: []string{},
		IsDevelopment:  cfg.Logging.Level == "debug",
	}))
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	queryHandler := handlers.NewQueryHandler(resolver, analyticsService)
	documentHandler := handlers.NewDocumentHandler(processor)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	wsHandler := handlers.NewWebSocketHandler(resolver)

	api := app.Group("/api/v1")

	api.Post("/query", auth.RequireCapability(auth.CapabilityQuerySubmission), queryHandler.HandleQuery)
	api.Get("/query/history", auth.RequireCapability(auth.CapabilityQuerySubmission), queryHandler.GetQueryHistory)
	api.Post("/feedback", auth.RequireCapability(auth.CapabilityQuerySubmission), queryHandler.SubmitFeedback)

	api.Post("/documents/ingest", auth.RequireCapability(auth.CapabilityDocumentManagement), documentHandler.IngestDocument)
	api.Get("/documents/stats", auth.RequireCapability(auth.CapabilityDocumentManagement), documentHandler.GetDocumentStats)

	analyticsGroup := api.Group("/analytics", auth.RequireCapability(auth.CapabilityAnalyticsView))
	analyticsGroup.Get("/overview", analyticsHandler.GetOverview)
	analyticsGroup.Get("/categories", analyticsHandler.GetCategories)
	analyticsGroup.Get("/trends", analyticsHandler.GetTrends)

	escalations := api.Group("/escalations", auth.RequireCapability(auth.CapabilityAnalyticsView))
	escalations.Get("/pending", analyticsHandler.GetPendingEscalations)
	escalations.Put("/:id/resolve", analyticsHandler.ResolveEscalation)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/query", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

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
