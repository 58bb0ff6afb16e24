package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fundbridge-gpt/internal/catalog"
	"fundbridge-gpt/internal/config"
	"fundbridge-gpt/internal/handlers"
	"fundbridge-gpt/internal/http"
	"fundbridge-gpt/internal/indexer"
	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/rag"
	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/session"
	"fundbridge-gpt/internal/staging"
	"fundbridge-gpt/internal/storage"
	"fundbridge-gpt/internal/tokens"
	"fundbridge-gpt/internal/vectorstore"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// FundBridge's internal AI tools: document summarizer, chat with a
// document, ComplianceBot retrieval chat over large documents and a basic
// chatbot.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: FundBridge-GPT API
//   description: |
//     Upload a document, pick a hosted model and get a summary or a
//     conversational answer grounded in the document.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
//   - multipart/form-data
// produces:
//   - application/json
//   - text/event-stream

// vectorBackend is a vector store that can also manage its collection.
type vectorBackend interface {
	vectorstore.VectorStore
	vectorstore.CollectionManager
}

// chatBackend is satisfied by both provider clients.
type chatBackend interface {
	service.LLMClient
	rag.ChatClient
}

// embeddingBackend embeds chunks and questions and can check its own vector size.
type embeddingBackend interface {
	rag.Embedder
	Probe(ctx context.Context) error
}

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	if _, ok := catalog.Lookup(cfg.DefaultModel); !ok {
		log.Fatalf("DEFAULT_MODEL %q is not in the model catalog", cfg.DefaultModel)
	}
	if cfg.LLMAPIKey == "" {
		slog.Warn("No server API key configured; callers must supply their own")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	sessionRepo := storage.NewSessionRepo(db)
	documentRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)

	var embedder embeddingBackend
	if cfg.LLMBackend == config.BackendOpenAI {
		embedder = llm.NewOpenAIEmbedder(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize)
	} else {
		embedder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize)
	}

	var vectorStore vectorBackend
	switch cfg.VectorStore {
	case config.VectorStoreQdrant:
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		defer func() {
			_ = qdrantStore.Close()
		}()
		vectorStore = qdrantStore

		// Validate embedding client vector size (fail-fast); a mismatched
		// Qdrant collection rejects every upsert.
		if cfg.LLMAPIKey != "" {
			if err := embedder.Probe(ctx); err != nil {
				log.Fatalf("Failed to validate embedding model: %v", err)
			}
			slog.Info("Embedding model validated", "vector_size", cfg.EmbeddingVectorSize)
		}
	default:
		vectorStore = vectorstore.NewMemoryStore()
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.EmbeddingVectorSize); err != nil {
		log.Fatalf("Failed to ensure vector collection: %v", err)
	}
	slog.Info("Vector collection ready", "store", cfg.VectorStore, "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingVectorSize)

	// Create LLM client (external service layer)
	var llmClient chatBackend
	switch cfg.LLMBackend {
	case config.BackendOpenAI:
		llmClient = llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.DefaultModel)
	default:
		llmClient = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.DefaultModel)
	}

	counter := tokens.NewTiktokenCounter()
	if err := counter.Err(); err != nil {
		slog.Warn("Tokenizer unavailable, estimating tokens from length", "error", err)
	}
	budget := tokens.NewBudget(counter)
	stager := staging.NewStager(cfg.UploadDir)
	validator := service.NewValidator(llmClient, cfg.LivenessTimeout)

	// Create indexing pipeline
	indexerPipeline := indexer.NewPipeline(
		documentRepo,
		embedder,
		vectorStore,
		cfg.QdrantCollection,
		counter,
	)

	// Create retrieval engine
	ragEngine := rag.NewEngine(
		embedder,
		vectorStore,
		cfg.QdrantCollection,
		chunkRepo,
		llmClient,
		budget,
	)
	slog.Info("Retrieval engine initialized")

	sessions := session.NewManager(sessionRepo, documentRepo, indexerPipeline, cfg.SessionTTL)
	go sessions.Run(ctx, sweepInterval(cfg.SessionTTL))

	// Create router with dependencies
	deps := &http.Deps{
		SummarizeService: service.NewSummarizeService(validator, stager, budget, llmClient),
		ChatService:      service.NewChatService(llmClient, sessions, budget),
		DocumentService:  service.NewDocumentService(validator, stager, budget, indexerPipeline, ragEngine, llmClient, sessions),
		Sessions:         sessions,
		HealthChecks: []handlers.HealthCheck{
			handlers.VectorCollectionCheck(vectorStore, cfg.QdrantCollection),
			handlers.SessionStoreCheck(db),
			handlers.ProviderCheck(llmClient),
		},
		DefaultModel: cfg.DefaultModel,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "backend", cfg.LLMBackend, "base_url", cfg.LLMBaseURL, "default_model", cfg.DefaultModel)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed to start: %v", err)
	}
	slog.Info("API server stopped")
}

// sweepInterval checks for idle sessions a few times per TTL.
func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		return time.Minute
	}
	return interval
}
