package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/talent-graph/internal/config"
	"alfredoptarigan/talent-graph/internal/handlers"
	"alfredoptarigan/talent-graph/internal/logger"
	"alfredoptarigan/talent-graph/internal/repositories"
	"alfredoptarigan/talent-graph/internal/services"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := config.InitDatabase(cfg, zl)
	if err != nil {
		return err
	}

	graphRepo := repositories.NewGraphRepository(db)
	jdRepo := repositories.NewJobDescriptionRepository(db)
	resultRepo := repositories.NewMatchingResultRepository(db)
	jobRepo := repositories.NewIngestionJobRepository(db)

	storage := services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.MaxFileSize)
	if err := storage.EnsureUploadDir(); err != nil {
		return err
	}

	gemini, err := services.NewGeminiService(ctx, cfg, zl)
	if err != nil {
		return fmt.Errorf("failed to initialize gemini: %w", err)
	}

	vectors, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		cfg.Qdrant.VectorSize,
		zl,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize qdrant: %w", err)
	}
	if err := vectors.InitCollection(ctx); err != nil {
		return fmt.Errorf("failed to initialize qdrant collection: %w", err)
	}

	ingestion := services.NewIngestionService(
		graphRepo,
		jdRepo,
		jobRepo,
		gemini,
		gemini,
		vectors,
		services.NewDocumentLoader(),
		cfg.Timeouts,
		zl,
	)
	retrieval := services.NewRetrievalService(gemini, vectors, graphRepo, cfg.Timeouts, cfg.Generation.RetryAttempt, zl)
	scoring := services.NewScoringService(gemini, cfg.Timeouts, cfg.Generation.RetryAttempt, zl)
	matcher := services.NewMatcherService(retrieval, scoring, jdRepo, resultRepo, cfg.Matching, cfg.Timeouts, zl)

	worker := services.NewWorker(jobRepo, ingestion, cfg.Worker.Concurrency, cfg.Worker.PollInterval, cfg.Worker.StaleAfter, zl)
	worker.Start(ctx)

	resumeHandler := handlers.NewResumeHandler(jobRepo, graphRepo, vectors, storage, worker, cfg.Storage.MaxUploadFiles, zl)
	jdHandler := handlers.NewJobDescriptionHandler(jdRepo, ingestion, storage, zl)
	matchHandler := handlers.NewMatchHandler(matcher)

	bodyLimit := int(cfg.Storage.MaxFileSize) * max(cfg.Storage.MaxUploadFiles, 1)
	app := fiber.New(fiber.Config{
		AppName:      "Talent Graph API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		BodyLimit:    bodyLimit,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/resumes", resumeHandler.HandleUpload)
	api.Get("/resumes", resumeHandler.HandleList)
	api.Get("/resumes/:talentId", resumeHandler.HandleGet)
	api.Get("/ingestions/:id", resumeHandler.HandleIngestionStatus)
	api.Delete("/candidates/:talentId", resumeHandler.HandleDelete)

	api.Post("/job-descriptions", jdHandler.HandleCreate)
	api.Get("/job-descriptions", jdHandler.HandleList)
	api.Delete("/job-descriptions/:jdId", jdHandler.HandleDelete)

	api.Post("/matches", matchHandler.HandleMatch)
	api.Get("/matches", matchHandler.HandleResults)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Talent Graph API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/resumes",
				"GET /api/v1/resumes",
				"GET /api/v1/resumes/:talentId",
				"GET /api/v1/ingestions/:id",
				"DELETE /api/v1/candidates/:talentId",
				"POST /api/v1/job-descriptions",
				"GET /api/v1/job-descriptions",
				"DELETE /api/v1/job-descriptions/:jdId",
				"POST /api/v1/matches",
				"GET /api/v1/matches",
			},
		})
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zl.Info("shutting down server")
		worker.Stop()
		cancel()
		if err := app.Shutdown(); err != nil {
			zl.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zl.Info("server starting", zap.String("addr", addr))

	return app.Listen(addr)
}
