package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/joblens/matcher/internal/api/handlers"
	"github.com/joblens/matcher/internal/api/middleware"
	"github.com/joblens/matcher/internal/config"
	"github.com/joblens/matcher/internal/embeddings"
	"github.com/joblens/matcher/internal/extract"
	"github.com/joblens/matcher/internal/observability"
	"github.com/joblens/matcher/internal/repository"
	"github.com/joblens/matcher/internal/rerank"
	"github.com/joblens/matcher/internal/service"
	"github.com/joblens/matcher/internal/workers"
	"github.com/joblens/matcher/pkg/database"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel)

	// Vector types must be registered on every pooled connection before the
	// repositories see it.
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL,
		database.WithAfterConnect(func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		}),
	)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	embeddingClient := embeddings.NewOpenAIClient(cfg.OpenAIAPIKey,
		embeddings.WithModel(cfg.EmbeddingModel),
		embeddings.WithDimensions(cfg.EmbeddingDimensions),
	)
	slog.Info("Embedding client configured",
		"model", cfg.EmbeddingModel,
		"dimensions", cfg.EmbeddingDimensions,
	)

	var extractor extract.Extractor
	if cfg.GeminiAPIKey != "" {
		geminiExtractor, err := extract.NewGeminiExtractor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, slog.Default())
		if err != nil {
			slog.Error("Failed to initialize extractor", "error", err)
			os.Exit(1)
		}
		extractor = geminiExtractor
		slog.Info("Structured extraction enabled", "model", cfg.GeminiModel)
	} else {
		slog.Info("Structured extraction disabled (GEMINI_API_KEY not set)")
	}

	var scorer rerank.Scorer
	if cfg.CohereAPIKey != "" {
		cohereScorer, err := rerank.NewCohereScorer(cfg.CohereAPIKey, rerank.WithCohereModel(cfg.RerankModel))
		if err != nil {
			slog.Error("Failed to initialize reranker", "error", err)
			os.Exit(1)
		}
		scorer = cohereScorer
		slog.Info("Cross-encoder reranking enabled", "model", cfg.RerankModel)
	} else {
		slog.Info("Cross-encoder reranking disabled (COHERE_API_KEY not set), retrieval-only mode")
	}

	vacanciesRepo := repository.NewVacanciesRepository(db)
	profilesRepo := repository.NewProfilesRepository(db)
	queriesRepo := repository.NewQueriesRepository(db)

	meter := otel.Meter("github.com/joblens/matcher")

	cacheMetrics, err := observability.NewCacheMetrics(meter)
	if err != nil {
		slog.Error("Failed to create cache metrics", "error", err)
		os.Exit(1)
	}

	searchMetrics, err := observability.NewSearchMetrics(meter)
	if err != nil {
		slog.Error("Failed to create search metrics", "error", err)
		os.Exit(1)
	}

	embeddingMetrics, err := observability.NewEmbeddingMetrics(meter)
	if err != nil {
		slog.Error("Failed to create embedding metrics", "error", err)
		os.Exit(1)
	}

	var queryCache *lru.Cache[string, []float32]
	if cfg.QueryCacheSize > 0 {
		queryCache, err = lru.New[string, []float32](cfg.QueryCacheSize)
		if err != nil {
			slog.Error("Failed to create query cache", "error", err)
			os.Exit(1)
		}
	}

	searchService, err := service.NewSearchService(ctx, service.SearchServiceParams{
		EmbeddingClient: embeddingClient,
		Scorer:          scorer,
		Extractor:       extractor,
		Vacancies:       vacanciesRepo,
		Profiles:        profilesRepo,
		Queries:         queriesRepo,
		TopK:            cfg.TopK,
		RerankedMode: service.ModePolicy{
			MinScore:  cfg.RerankMinScore,
			ResultCap: cfg.RerankResultCap,
		},
		RetrievalMode: service.ModePolicy{
			MinScore:  cfg.RetrievalMinScore,
			ResultCap: cfg.RetrievalResultCap,
		},
		QueryCache:    queryCache,
		CacheMetrics:  cacheMetrics,
		SearchMetrics: searchMetrics,
	})
	if err != nil {
		slog.Error("Failed to initialize search service", "error", err)
		os.Exit(1)
	}

	riverClient, err := initRiver(ctx, db, cfg, embeddingClient, extractor, vacanciesRepo, profilesRepo, embeddingMetrics)
	if err != nil {
		slog.Error("Failed to initialize River job queue", "error", err)
		os.Exit(1)
	}

	searchHandler := handlers.NewSearchHandler(searchService)
	embedHandler := handlers.NewEmbedHandler(embeddingClient)
	healthHandler := handlers.NewHealthHandler()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.MaxBody(cfg.MaxRequestBodyBytes))

	r.Get("/health", healthHandler.Check)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.APIKey))

		r.Post("/search/vacancies", searchHandler.SearchVacancies)
		r.Post("/search/profiles", searchHandler.SearchProfiles)
		r.Post("/embed", embedHandler.Embed)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new HTTP requests first, then drain in-flight jobs.
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Stopping River job queue...")
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("River forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}

// setupLogging configures slog with the specified log level and wires the
// request ID from context into every record.
func setupLogging(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := observability.NewRequestIDHandler(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(slog.New(handler))
}

// initRiver initializes the River job queue client and the embedding workers.
func initRiver(
	ctx context.Context,
	db *pgxpool.Pool,
	cfg *config.Config,
	embeddingClient embeddings.Client,
	extractor extract.Extractor,
	vacanciesRepo *repository.VacanciesRepository,
	profilesRepo *repository.ProfilesRepository,
	metrics observability.EmbeddingMetrics,
) (*river.Client[pgx.Tx], error) {
	// One limiter shared between both workers so the provider sees a single
	// outbound rate.
	rateLimiter := rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), 1)

	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewVacancyEmbeddingWorker(
		vacanciesRepo, embeddingClient, extractor, rateLimiter, metrics))
	river.AddWorker(riverWorkers, workers.NewProfileEmbeddingWorker(
		profilesRepo, embeddingClient, rateLimiter, metrics))

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			service.EmbeddingsQueueName: {MaxWorkers: cfg.EmbeddingWorkers},
		},
		Workers:     riverWorkers,
		MaxAttempts: cfg.EmbeddingMaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, err
	}

	slog.Info("River job queue started",
		"queue", service.EmbeddingsQueueName,
		"workers", cfg.EmbeddingWorkers,
		"max_attempts", cfg.EmbeddingMaxAttempts,
		"rate_limit", cfg.EmbeddingRateLimit,
	)

	return riverClient, nil
}
