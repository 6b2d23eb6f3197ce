// Package nutrition resolves food names to per-100g nutrition facts.
// Providers are consulted in order behind a shared TTL cache; remote
// lookups fall back to local data when the network is unavailable.
package nutrition

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MacroScout/macroscout/engine/domain"
	"github.com/MacroScout/macroscout/pkg/cache"
)

// ErrNotFound is returned when no provider knows the food.
var ErrNotFound = errors.New("nutrition: food not found")

// DefaultCacheTTL bounds how long a resolved fact is reused.
const DefaultCacheTTL = time.Hour

// Provider resolves a food name to a nutrition fact.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, name string) (domain.NutritionFact, error)
}

// Chain consults providers in order and caches the first success.
// A provider failing with anything other than ErrNotFound is logged
// and skipped, so a dead upstream degrades to the next provider.
type Chain struct {
	providers []Provider
	cache     *cache.TTL[string, domain.NutritionFact]
	logger    *slog.Logger
}

// NewChain builds a provider chain with a lookup cache of the given TTL.
func NewChain(logger *slog.Logger, ttl time.Duration, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Chain{
		providers: providers,
		cache:     cache.New[string, domain.NutritionFact](ttl),
		logger:    logger,
	}
}

// Lookup resolves name through the chain, normalizing the cache key so
// "Banana" and "banana " share one entry.
func (c *Chain) Lookup(ctx context.Context, name string) (domain.NutritionFact, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	if fact, ok := c.cache.Get(key); ok {
		return fact, nil
	}

	for _, p := range c.providers {
		fact, err := p.Lookup(ctx, name)
		if err == nil {
			c.cache.Set(key, fact)
			c.logger.Debug("nutrition: resolved", "food", key, "provider", p.Name())
			return fact, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.NutritionFact{}, err
		}
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("nutrition: provider failed, trying next",
				"provider", p.Name(), "food", key, "error", err)
		}
	}
	return domain.NutritionFact{}, ErrNotFound
}

// Sweep evicts expired cache entries.
func (c *Chain) Sweep() int { return c.cache.Sweep() }
