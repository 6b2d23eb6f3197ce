package nutrition

import (
	"context"
	"errors"

	"github.com/MacroScout/macroscout/engine/domain"
	"github.com/MacroScout/macroscout/pkg/resilience"
)

// Guarded wraps a provider with a circuit breaker so a flapping upstream
// stops being hammered and the chain falls through to the next provider.
// ErrNotFound is a valid answer, not a failure, and never trips the breaker.
type Guarded struct {
	inner   Provider
	breaker *resilience.Breaker
}

func NewGuarded(inner Provider, breaker *resilience.Breaker) *Guarded {
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.DefaultBreakerOpts)
	}
	return &Guarded{inner: inner, breaker: breaker}
}

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) Lookup(ctx context.Context, name string) (domain.NutritionFact, error) {
	var fact domain.NutritionFact
	var notFound bool
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		f, lookupErr := g.inner.Lookup(ctx, name)
		if errors.Is(lookupErr, ErrNotFound) {
			notFound = true
			return nil
		}
		if lookupErr != nil {
			return lookupErr
		}
		fact = f
		return nil
	})
	if err != nil {
		return domain.NutritionFact{}, err
	}
	if notFound {
		return domain.NutritionFact{}, ErrNotFound
	}
	return fact, nil
}
