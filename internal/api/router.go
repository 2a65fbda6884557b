package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/quangvt/relay/internal/agent"
	"github.com/quangvt/relay/internal/api/handlers"
	mw "github.com/quangvt/relay/internal/api/middleware"
	"github.com/quangvt/relay/internal/config"
	"github.com/quangvt/relay/internal/domain"
	"github.com/quangvt/relay/internal/embedding"
	"github.com/quangvt/relay/internal/llm"
	"github.com/quangvt/relay/internal/notion"
	"github.com/quangvt/relay/internal/ocr"
	"github.com/quangvt/relay/internal/router"
	"github.com/quangvt/relay/internal/search"
	"github.com/quangvt/relay/internal/vecstore"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Sessions     *agent.Sessions
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// NewApp wires the full request path: providers, vector store, session
// registry, routing, agent handlers, and the HTTP surface. Unlike optional
// integrations (search, document sink), the LLM and embedding clients are
// mandatory; a misconfigured provider is a startup error.
func NewApp(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	llmClient, err := llm.NewClient(config.LLMProvider(), config.LLMAPIKey())
	if err != nil {
		return nil, fmt.Errorf("init LLM client: %w", err)
	}
	logger.Info("LLM client initialized", zap.String("provider", config.LLMProvider()))

	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		return nil, fmt.Errorf("init embedding client: %w", err)
	}
	if dims := embeddingClient.Dimensions(); dims != config.EmbeddingDimension() {
		return nil, fmt.Errorf("embedding dimension mismatch: provider produces %d, store expects %d", dims, config.EmbeddingDimension())
	}
	logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))

	cachedEmbedder, err := embedding.NewCachedClient(embeddingClient, 10_000)
	if err != nil {
		return nil, err
	}

	store, err := vecstore.New(config.VectorStoreBackend(), cachedEmbedder, db)
	if err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	logger.Info("vector store initialized", zap.String("backend", config.VectorStoreBackend()))

	// Profile embeddings are computed once at startup; Wait makes them
	// visible in the cache before the first request.
	registry := router.NewRegistry(ctx, cachedEmbedder, logger)
	cachedEmbedder.Wait()
	promptRouter := router.New(registry, cachedEmbedder, llmClient, logger)

	sessions := agent.NewSessions(
		store,
		config.SimilarityThreshold(),
		config.ShortTermMaxSize(),
		time.Duration(config.SessionIdleTimeoutMinutes())*time.Minute,
		logger,
	)

	var sink domain.DocumentSink = notion.NopSink{}
	if token := config.NotionToken(); token != "" {
		sink = notion.NewClient(token)
		logger.Info("Notion sink enabled")
	}

	var searchClient domain.SearchClient
	if key := config.SerperAPIKey(); key != "" {
		searchClient = search.NewSerperClient(key)
		logger.Info("Serper search enabled")
	} else {
		logger.Warn("SERPER_API_KEY not set, research agent runs without web search")
	}

	agentHandlers := []agent.Handler{
		agent.NewGeneralHandler(llmClient),
		agent.NewMathHandler(llmClient),
		agent.NewResearchHandler(llmClient, searchClient),
		agent.NewOCRHandler(ocr.NewVinternClient(config.OCRAPIURL())),
	}

	dispatcher := agent.NewDispatcher(promptRouter, agentHandlers, sink, config.NotionPageID(), logger)
	dispatcher.SetBroadThreshold(config.BroadSimilarityThreshold())

	askHandler := handlers.NewAskHandler(dispatcher, sessions, promptRouter)
	memoryHandler := handlers.NewMemoryHandler(sessions)
	sessionHandler := handlers.NewSessionHandler(sessions)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Sessions:  sessions,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ask", askHandler.Ask)
		r.Post("/route", askHandler.Route)

		r.Route("/memories", func(r chi.Router) {
			r.Get("/", memoryHandler.List)
			r.Post("/", memoryHandler.Create)
			r.Delete("/", memoryHandler.Clear)
			r.Get("/search", memoryHandler.Search)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", memoryHandler.GetByID)
				r.Delete("/", memoryHandler.Delete)
			})
		})

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/context", sessionHandler.GetContext)
			r.Delete("/", sessionHandler.Delete)
		})
	})

	return app, nil
}

// healthHandler reports liveness. The chromem backend runs without a
// database, so a nil pool is healthy by definition.
func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds":  uptime.Seconds(),
			"uptime_human":    uptime.Round(time.Second).String(),
			"request_count":   app.requestCount.Load(),
			"error_count":     app.errorCount.Load(),
			"active_sessions": app.Sessions.Count(),
			"goroutines":      runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.EmbeddingClient = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient = (*embedding.MockClient)(nil)
	_ domain.EmbeddingClient = (*embedding.CachedClient)(nil)
	_ domain.LLMClient       = (*llm.OpenAIClient)(nil)
	_ domain.LLMClient       = (*llm.MockClient)(nil)
	_ domain.VectorStore     = (*vecstore.ChromemStore)(nil)
	_ domain.VectorStore     = (*vecstore.PgvectorStore)(nil)
	_ domain.DocumentSink    = (*notion.Client)(nil)
	_ domain.DocumentSink    = (notion.NopSink{})
	_ domain.SearchClient    = (*search.SerperClient)(nil)
	_ domain.OCRClient       = (*ocr.VinternClient)(nil)
	_ agent.Router           = (*router.Router)(nil)
)
