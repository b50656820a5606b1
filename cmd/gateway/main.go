// Package main provides the rag-retrieval gateway CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bull/rag-gateway/internal/config"
	"github.com/bull/rag-gateway/internal/embedding"
	"github.com/bull/rag-gateway/internal/gateway"
	"github.com/bull/rag-gateway/internal/logger"
	"github.com/bull/rag-gateway/internal/metrics"
	"github.com/bull/rag-gateway/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "RAG retrieval gateway",
	Long: `HTTP gateway that embeds natural-language queries and serves
nearest-neighbor search results from a Qdrant collection.

Environment variables:
  QDRANT_ENDPOINT    Qdrant gRPC endpoint as host:port (required)
  QDRANT_API_KEY     Qdrant credential (required)
  QDRANT_COLLECTION  Collection to search (default: rag_chunks)
  RAG_API_KEY        Shared key clients present in X-Api-Key (required)
  EMBED_MODEL        Embedding model id (default: BAAI/bge-small-en-v1.5)
  EMBED_ENDPOINT     OpenAI-compatible base URL (default: OpenAI)
  EMBED_API_KEY      Embedding endpoint credential
  EMBED_DIM          Embedding dimensionality (default: 384)
  MAX_QUERY_CHARS    Query length ceiling (default: 2000)
  PORT               HTTP listen port (default: 8080)
  LOG_LEVEL          zap level (default: info)`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the vector index until it is reachable",
	Long: `Connects to Qdrant and verifies the configured collection exists,
retrying with exponential backoff for up to 30 seconds. Intended for
deploy pipelines; the serving path itself never retries.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	// Load .env if present (local development), ignore if missing.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.New()

	log, err := logger.New(cfg.LogLevel, gateway.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		// Keep serving so /health and /ready stay reachable; /search
		// reports the misconfiguration on every request.
		log.Warn("starting misconfigured", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Embedder loads once per process; a failure here is permanent and
	// reported through /ready rather than aborting startup.
	embedder := embedding.New(cfg.EmbedEndpoint, cfg.EmbedAPIKey, cfg.EmbedModel, cfg.EmbedDim)
	if err := embedder.InitError(); err != nil {
		log.Warn("embedder unavailable", zap.Error(err))
	}

	host, port := cfg.QdrantHostPort()
	index := storage.NewManager(storage.Dial(host, port, cfg.QdrantAPIKey), cfg.Collection, cfg.EmbedDim)
	defer index.Close()

	m := metrics.New(gateway.ServiceName)
	svc := gateway.NewService(cfg, embedder, index, m, log)
	router := gateway.NewRouter(svc, m, log)

	server := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", zap.Error(err))
		}
	}()

	log.Info("starting gateway",
		zap.String("addr", server.Addr),
		zap.String("collection", cfg.Collection),
		zap.String("embed_model", cfg.EmbedModel),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	log.Info("gateway stopped")
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	host, port := cfg.QdrantHostPort()
	index := storage.NewManager(storage.Dial(host, port, cfg.QdrantAPIKey), cfg.Collection, cfg.EmbedDim)
	defer index.Close()

	fmt.Printf("Probing Qdrant at %s:%d (collection %q)...\n", host, port, cfg.Collection)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	start := time.Now()
	err := backoff.Retry(func() error {
		return index.Warm(ctx)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return fmt.Errorf("index not ready: %w", err)
	}

	fmt.Printf("Index ready in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
