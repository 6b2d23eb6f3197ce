// Command fetch-foods resolves food names through the nutrition providers
// and appends the normalized facts to the JSONL store the indexer reads.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MacroScout/macroscout/engine/domain"
	"github.com/MacroScout/macroscout/engine/facts"
	"github.com/MacroScout/macroscout/engine/nutrition"
	"github.com/MacroScout/macroscout/pkg/fn"
)

// fetchWorkers bounds concurrent lookups; the OpenFoodFacts politeness
// limiter paces the network side regardless.
const fetchWorkers = 4

var fetchRetry = fn.RetryOpts{
	MaxAttempts: 2,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     2 * time.Second,
	Jitter:      true,
}

// seedFoods is the default list used when no names are given.
var seedFoods = []string{
	"paneer", "apple", "banana", "spinach", "almonds",
	"white rice", "chicken breast", "dal", "yogurt", "oats",
}

func main() {
	godotenv.Load()

	outPath := flag.String("out", "data/nutrition_facts.jsonl", "facts JSONL file to append to")
	foodList := flag.String("foods", "", "comma-separated food names (empty: seed list)")
	offline := flag.Bool("offline", false, "skip OpenFoodFacts, use staples only")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	names := seedFoods
	if *foodList != "" {
		names = nil
		for _, n := range strings.Split(*foodList, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}

	if err := run(names, *outPath, *offline, logger); err != nil {
		logger.Error("fetch failed", "err", err)
		os.Exit(1)
	}
}

func run(names []string, outPath string, offline bool, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	providers := []nutrition.Provider{nutrition.NewStaples()}
	if !offline {
		providers = append([]nutrition.Provider{
			nutrition.NewGuarded(nutrition.NewOpenFoodFacts(nil, logger), nil),
		}, providers...)
	}
	chain := nutrition.NewChain(logger, nutrition.DefaultCacheTTL, providers...)

	results := fn.ParMapResult(names, fetchWorkers, func(name string) fn.Result[domain.NutritionFact] {
		return fn.Retry(ctx, fetchRetry, func(ctx context.Context) fn.Result[domain.NutritionFact] {
			return fn.FromPair(chain.Lookup(ctx, name))
		})
	})

	var fetched []domain.NutritionFact
	for i, res := range results {
		fact, err := res.Unwrap()
		if err != nil {
			logger.Warn("no data found", "food", names[i], "err", err)
			continue
		}
		fetched = append(fetched, fact)
		logger.Info("resolved", "food", names[i], "as", fact.Name, "kcal_100g", fact.Calories100g)
	}

	if len(fetched) == 0 {
		return fmt.Errorf("no foods resolved out of %d requested", len(names))
	}
	if err := facts.Append(outPath, fetched); err != nil {
		return fmt.Errorf("append facts: %w", err)
	}
	logger.Info("facts written", "path", outPath, "count", len(fetched))
	return nil
}
