package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/longregen/creditexplain/internal/adapters/audit"
	"github.com/longregen/creditexplain/internal/adapters/critic"
	"github.com/longregen/creditexplain/internal/adapters/embedding"
	"github.com/longregen/creditexplain/internal/adapters/generator"
	httpserver "github.com/longregen/creditexplain/internal/adapters/http"
	"github.com/longregen/creditexplain/internal/adapters/id"
	"github.com/longregen/creditexplain/internal/adapters/rerank"
	"github.com/longregen/creditexplain/internal/adapters/tracing"
	"github.com/longregen/creditexplain/internal/adapters/vectorstore"
	"github.com/longregen/creditexplain/internal/application/orchestrator"
	"github.com/longregen/creditexplain/internal/ingest"
	"github.com/longregen/creditexplain/internal/llm"
	"github.com/longregen/creditexplain/internal/ports"
)

const (
	criticTimeout    = 30 * time.Second
	generatorTimeout = 60 * time.Second
)

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the CreditExplain HTTP API server.

The server exposes the query pipeline, document upload, audit lookup,
and health/metrics endpoints.

Required configuration:
  - LLM endpoint and key (GROQ_BASE_URL, GROQ_API_KEY)
  - Embedding endpoint (EMBEDDING_BASE_URL)

Optional:
  - PostgreSQL + pgvector (DATABASE_URL); without it a local on-disk
    vector index is used (VECTORSTORE_DIR)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	log.Println("Starting CreditExplain API server...")
	log.Printf("  HTTP:      http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("  LLM:       %s", cfg.LLM.URL)
	log.Printf("  Embedding: %s", cfg.Embedding.URL)
	log.Printf("  Rerank:    %s", cfg.Rerank.URL)

	shutdown, err := tracing.InitTracer("creditexplain-api")
	if err != nil {
		log.Printf("Warning: Failed to initialize tracing: %v", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
		log.Println("OpenTelemetry tracing initialized")
	}

	index, cleanup, err := buildIndex(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	llmClient := llm.NewClient(cfg.LLM.URL, cfg.LLM.APIKey)
	criticSvc := critic.New(llm.NewService(llmClient, "critic", cfg.LLM.CriticModel, criticTimeout))
	generatorSvc := generator.New(llm.NewService(llmClient, "generator", cfg.LLM.GeneratorModel, generatorTimeout), cfg.LLM.MaxTokens)
	log.Println("LLM services initialized")

	embedder := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	reranker := rerank.NewClient(cfg.Rerank.URL, cfg.Rerank.APIKey, cfg.Rerank.Model)

	auditSink, err := audit.NewSink(cfg.Audit.Dir)
	if err != nil {
		return fmt.Errorf("failed to initialize audit sink: %w", err)
	}
	log.Printf("Audit sink initialized at %s", cfg.Audit.Dir)

	idGen := id.New()

	pipeline := orchestrator.New(criticSvc, generatorSvc, embedder, index, reranker, auditSink, idGen, orchestrator.Config{
		TopK:             cfg.Pipeline.TopK,
		TopN:             cfg.Pipeline.TopN,
		SupportThreshold: cfg.Pipeline.SupportThreshold,
	})
	log.Println("Query pipeline initialized")

	indexer := ingest.NewIndexer(embedder, index, idGen)

	server := httpserver.NewServer(cfg, pipeline, index, auditSink, indexer.Redactor())

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
		serverErrors <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		log.Println("Shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		log.Println("Server stopped")
		return nil
	}
}

// buildIndex connects the configured vector store: pgvector when a database
// URL is set, the on-disk index otherwise.
func buildIndex(ctx context.Context) (ports.VectorIndex, func(), error) {
	if cfg.UsesPostgres() {
		log.Println("Connecting to PostgreSQL...")
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse database URL: %w", err)
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		store := vectorstore.NewPostgres(pool)
		if err := store.EnsureSchema(ctx, cfg.Embedding.Dimensions); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
		log.Println("PostgreSQL vector store ready")
		return store, pool.Close, nil
	}

	log.Printf("Using local vector store at %s", cfg.Database.VectorstoreDir)
	store, err := vectorstore.NewLocal(cfg.Database.VectorstoreDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local vector store: %w", err)
	}
	return store, func() {}, nil
}
