// Command indexer builds the vector index from a nutrition facts JSONL
// file. By default it persists a flat index directory for the API server;
// with -qdrant it pushes the vectors into a Qdrant collection instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/MacroScout/macroscout/engine/domain"
	"github.com/MacroScout/macroscout/engine/facts"
	"github.com/MacroScout/macroscout/engine/index"
	"github.com/MacroScout/macroscout/engine/semantic"
	"github.com/MacroScout/macroscout/pkg/ollama"
)

func main() {
	godotenv.Load()

	factsPath := flag.String("facts", "data/nutrition_facts.jsonl", "facts JSONL file")
	outDir := flag.String("out", "data/index", "output directory for the flat index")
	ollamaURL := flag.String("ollama", "", "Ollama base URL (empty: hashing embedder)")
	embedModel := flag.String("model", "nomic-embed-text", "Ollama embedding model")
	embedDim := flag.Int("dim", 0, "embedding dimension (0: embedder default)")
	qdrantAddr := flag.String("qdrant", "", "Qdrant address (empty: flat index)")
	collection := flag.String("collection", "macroscout", "Qdrant collection")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*factsPath, *outDir, *ollamaURL, *embedModel, *embedDim, *qdrantAddr, *collection, logger); err != nil {
		logger.Error("indexing failed", "err", err)
		os.Exit(1)
	}
}

func run(factsPath, outDir, ollamaURL, embedModel string, embedDim int, qdrantAddr, collection string, logger *slog.Logger) error {
	ctx := context.Background()

	all, err := facts.Load(factsPath)
	if err != nil {
		return fmt.Errorf("load facts: %w", err)
	}
	if len(all) == 0 {
		return fmt.Errorf("no facts in %s", factsPath)
	}

	var embedder index.Embedder
	if ollamaURL != "" {
		embedder = ollama.NewEmbedClient(ollamaURL, embedModel, embedDim)
	} else {
		dim := embedDim
		if dim <= 0 {
			dim = index.DefaultHashDimension
		}
		embedder = index.NewHashingEmbedder(dim)
	}

	if qdrantAddr != "" {
		return indexIntoQdrant(ctx, all, embedder, qdrantAddr, collection, logger)
	}

	flat := index.NewFlat(embedder, logger)
	if err := flat.Build(ctx, all); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := flat.Save(outDir); err != nil {
		return fmt.Errorf("save index: %w", err)
	}

	info := flat.Info()
	logger.Info("index built",
		"dir", outDir,
		"vectors", info.VectorCount,
		"dimension", info.Dimension,
		"model", info.ModelName,
	)
	return nil
}

func indexIntoQdrant(ctx context.Context, all []domain.NutritionFact, embedder index.Embedder, addr, collection string, logger *slog.Logger) error {
	store, err := semantic.New(addr, collection, embedder)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()
	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("qdrant collection: %w", err)
	}

	vectors := make([][]float32, 0, len(all))
	kept := make([]domain.NutritionFact, 0, len(all))
	for _, f := range all {
		if f.FactText == "" {
			logger.Warn("skipping fact without text", "name", f.Name)
			continue
		}
		vec, err := embedder.Embed(ctx, f.FactText)
		if err != nil {
			return fmt.Errorf("embed %q: %w", f.Name, err)
		}
		vectors = append(vectors, index.Normalize(vec))
		kept = append(kept, f)
	}

	if err := store.Upsert(ctx, kept, vectors); err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	logger.Info("qdrant collection populated", "collection", collection, "vectors", len(vectors))
	return nil
}
