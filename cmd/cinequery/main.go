package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/cinequery/cinequery/internal/adapter"
	"github.com/cinequery/cinequery/internal/api"
	"github.com/cinequery/cinequery/internal/config"
	"github.com/cinequery/cinequery/internal/llm"
	"github.com/cinequery/cinequery/internal/repository"
	"github.com/cinequery/cinequery/internal/service"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database (sessions, messages, film catalog)
	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(db)
	filmRepo := repository.NewFilmRepository(db)

	// Text-generation collaborator (classification, text-to-SQL, phrasing,
	// query embedding)
	llmClient := llm.New(cfg.LLM)

	// Backend adapters
	structured := adapter.NewStructuredAdapter(filmRepo, llmClient, logger)

	var semantic adapter.Adapter
	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
	})
	if err != nil {
		// Run without the semantic backend; the orchestrator degrades
		// those routes instead of failing queries.
		logger.Warn("Failed to initialize semantic store client, running degraded", zap.Error(err))
	} else {
		defer qdrantClient.Close()
		semantic = adapter.NewSemanticAdapter(
			qdrantClient,
			llmClient,
			cfg.Qdrant.Collection,
			cfg.Qdrant.TopK,
			logger,
		)
	}

	// Routing core
	classifier := service.NewClassifier(llmClient, cfg.Router.ConfidenceThreshold, logger)
	orchestrator := service.NewOrchestrator(
		classifier,
		structured,
		semantic,
		cfg.AdapterTimeout(),
		cfg.Merge.DedupTitles,
		logger,
	)
	composer := service.NewComposer(llmClient, logger)

	// Services
	chatService := service.NewChatService(sessionRepo, orchestrator, composer, cfg.History.Window, logger)
	adminService := service.NewAdminService(sessionRepo, filmRepo)

	// Setup router
	router := api.SetupRouter(chatService, adminService, api.RouterConfig{
		APIKey:       cfg.Admin.APIKey,
		AllowOrigins: []string{"*"},
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting CineQuery server",
			zap.String("address", cfg.Address()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
