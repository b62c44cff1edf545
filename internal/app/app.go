package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tobybranson/contexo/internal/common"
	"github.com/tobybranson/contexo/internal/handlers"
	"github.com/tobybranson/contexo/internal/interfaces"
	"github.com/tobybranson/contexo/internal/services/chat"
	"github.com/tobybranson/contexo/internal/services/fetcher"
	"github.com/tobybranson/contexo/internal/services/ingest"
	"github.com/tobybranson/contexo/internal/services/llm"
	"github.com/tobybranson/contexo/internal/storage/pgvector"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	VectorStore interfaces.VectorStore

	// LLM services
	EmbeddingService  interfaces.EmbeddingService
	CompletionService interfaces.CompletionService

	// Pipeline services
	Fetcher       *fetcher.Fetcher
	IngestService interfaces.IngestService
	ChatService   interfaces.ChatService

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	IngestHandler *handlers.IngestHandler
	ChatHandler   *handlers.ChatHandler
}

// New creates the application with all dependencies wired. Construction fails
// fast on missing required configuration so a misconfigured instance never
// starts serving.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	// Storage layer
	store, err := pgvector.NewStore(&config.VectorStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	a.VectorStore = store

	// LLM services
	embedder, err := llm.NewOpenAIEmbedder(&config.OpenAI, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding service: %w", err)
	}
	a.EmbeddingService = embedder

	completer, err := llm.NewClaudeService(&config.Claude, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize completion service: %w", err)
	}
	a.CompletionService = completer

	// Pipeline services
	retryDelay, err := time.ParseDuration(config.Ingest.FetchRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("invalid fetch retry delay: %w", err)
	}
	a.Fetcher = fetcher.New(logger,
		fetcher.WithRetries(config.Ingest.FetchRetries, retryDelay),
		fetcher.WithRateLimit(config.Ingest.FetchRateLimit),
	)

	a.IngestService = ingest.NewService(a.EmbeddingService, a.VectorStore, a.Fetcher, &config.Ingest, logger)
	a.ChatService = chat.NewService(a.EmbeddingService, a.VectorStore, a.CompletionService, &config.Chat, logger)

	// HTTP handlers
	a.APIHandler = handlers.NewAPIHandler()
	a.IngestHandler = handlers.NewIngestHandler(a.IngestService)
	a.ChatHandler = handlers.NewChatHandler(a.ChatService)

	logger.Info().
		Str("embed_model", a.EmbeddingService.ModelName()).
		Int("embed_dimension", a.EmbeddingService.Dimension()).
		Str("chat_model", config.Claude.Model).
		Msg("Application initialized")

	return a, nil
}

// Close releases application resources.
func (a *App) Close() error {
	if a.CompletionService != nil {
		if err := a.CompletionService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close completion service")
		}
	}
	return nil
}

// HealthCheck probes the upstream services the app depends on.
func (a *App) HealthCheck(ctx context.Context) error {
	return a.ChatService.HealthCheck(ctx)
}
