// Package main implements the MacroScout API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/MacroScout/macroscout/engine/classify"
	"github.com/MacroScout/macroscout/engine/facts"
	"github.com/MacroScout/macroscout/engine/index"
	"github.com/MacroScout/macroscout/engine/nutrition"
	"github.com/MacroScout/macroscout/engine/pipeline"
	"github.com/MacroScout/macroscout/engine/retrieve"
	"github.com/MacroScout/macroscout/engine/semantic"
	"github.com/MacroScout/macroscout/engine/verify"
	"github.com/MacroScout/macroscout/pkg/metrics"
	"github.com/MacroScout/macroscout/pkg/mid"
	"github.com/MacroScout/macroscout/pkg/ollama"
	"github.com/MacroScout/macroscout/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port             string
	IndexDir         string
	ModelDir         string
	FactsPath        string
	OllamaURL        string
	EmbedModel       string
	EmbedDim         int
	QdrantURL        string
	QdrantCollection string
	NATSURL          string
	CORSOrigin       string
	TolerancePct     float64
}

func loadConfig() Config {
	return Config{
		Port:             envOr("PORT", "8080"),
		IndexDir:         envOr("INDEX_DIR", "data/index"),
		ModelDir:         envOr("MODEL_DIR", "data/model"),
		FactsPath:        envOr("FACTS_PATH", "data/nutrition_facts.jsonl"),
		OllamaURL:        envOr("OLLAMA_URL", ""),
		EmbedModel:       envOr("EMBED_MODEL", "nomic-embed-text"),
		EmbedDim:         envIntOr("EMBED_DIM", 0),
		QdrantURL:        envOr("QDRANT_URL", ""),
		QdrantCollection: envOr("QDRANT_COLLECTION", "macroscout"),
		NATSURL:          envOr("NATS_URL", ""),
		CORSOrigin:       envOr("CORS_ORIGIN", "*"),
		TolerancePct:     envFloatOr("VERIFY_TOLERANCE_PCT", verify.DefaultTolerancePercent),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Embedder ---
	var embedder index.Embedder
	if cfg.OllamaURL != "" {
		embedder = ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel, cfg.EmbedDim)
	} else {
		dim := cfg.EmbedDim
		if dim <= 0 {
			dim = index.DefaultHashDimension
		}
		embedder = index.NewHashingEmbedder(dim)
	}

	// --- Searcher: Qdrant when configured, flat file index otherwise ---
	var searcher retrieve.Searcher
	if cfg.QdrantURL != "" {
		store, err := semantic.New(cfg.QdrantURL, cfg.QdrantCollection, embedder)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer store.Close()
		if err := store.EnsureCollection(ctx); err != nil {
			return fmt.Errorf("qdrant collection: %w", err)
		}
		searcher = store
	} else {
		searcher = index.Open(cfg.IndexDir, embedder, logger)
	}
	retriever := retrieve.New(searcher, logger)

	// --- Classifier ---
	model := classify.Load(cfg.ModelDir, logger)

	// --- Nutrition providers ---
	localFacts, err := facts.Load(cfg.FactsPath)
	if err != nil {
		logger.Warn("facts file unavailable, local provider starts empty",
			"path", cfg.FactsPath, "err", err)
	}
	chain := nutrition.NewChain(logger, nutrition.DefaultCacheTTL,
		nutrition.NewGuarded(nutrition.NewOpenFoodFacts(nil, logger), nil),
		nutrition.NewLocal(localFacts),
		nutrition.NewStaples(),
	)

	// --- Verifier ---
	verifier := verify.New(cfg.TolerancePct, logger)

	// --- Events ---
	var publish pipeline.EventPublisher
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("macroscout-api"))
		if err != nil {
			logger.Warn("nats unavailable, events disabled", "err", err)
		} else {
			defer nc.Drain()
			publish = pipeline.NATSPublisher(nc)
		}
	}

	pipe := pipeline.New(chain, model, retriever, verifier, nil, pipeline.Opts{
		Publish: publish,
		Logger:  logger,
	})

	// --- Metrics ---
	reg := metrics.New()

	// --- Per-route-class rate limits ---
	limiters := map[string]*resilience.KeyedLimiter{
		"retrieval": newLimiter(30),
		"classify":  newLimiter(20),
		"recommend": newLimiter(10),
		"verify":    newLimiter(15),
	}
	go sweepLoop(ctx, logger, limiters, chain)

	// --- HTTP server ---
	api := &apiServer{
		pipeline:  pipe,
		resolver:  chain,
		retriever: retriever,
		model:     model,
		index:     searcher,
		verifier:  verifier,
		logger:    logger,
		metrics:   reg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", api.handleHealth)
	mux.Handle("GET /metrics", reg.Handler())
	mux.Handle("GET /api/facts", mid.RateLimit(limiters["retrieval"])(http.HandlerFunc(api.handleFacts)))
	mux.Handle("POST /api/classify", mid.RateLimit(limiters["classify"])(http.HandlerFunc(api.handleClassify)))
	mux.Handle("POST /api/verify", mid.RateLimit(limiters["verify"])(http.HandlerFunc(api.handleVerify)))
	mux.Handle("POST /api/recommend", mid.RateLimit(limiters["recommend"])(http.HandlerFunc(api.handleRecommend)))
	mux.HandleFunc("GET /api/model", api.handleModelInfo)

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("macroscout-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func newLimiter(maxPerMinute int) *resilience.KeyedLimiter {
	return resilience.NewKeyedLimiter(resilience.KeyedLimiterOpts{
		MaxRequests: maxPerMinute,
		Window:      time.Minute,
	})
}

// sweepLoop periodically evicts idle limiter keys and expired lookup cache
// entries.
func sweepLoop(ctx context.Context, logger *slog.Logger, limiters map[string]*resilience.KeyedLimiter, chain *nutrition.Chain) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := chain.Sweep()
			for _, l := range limiters {
				evicted += l.Sweep()
			}
			if evicted > 0 {
				logger.Debug("sweep", "evicted", evicted)
			}
		}
	}
}
