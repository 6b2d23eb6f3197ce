// Package retrieve is the query layer over the embedding index. It clamps
// request parameters, shields callers from index unavailability, and shapes
// raw hits into retrieval results.
package retrieve

import (
	"context"
	"log/slog"
	"strings"

	"github.com/MacroScout/macroscout/engine/domain"
	"github.com/MacroScout/macroscout/engine/index"
)

// Searcher abstracts the vector search backend (flat index or Qdrant).
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]index.Hit, error)
	Available() bool
}

// Result is one retrieved fact with its similarity score. Ephemeral, built
// per query.
type Result struct {
	Score    float32              `json:"score"`
	FactText string               `json:"fact_text"`
	Meta     domain.NutritionFact `json:"meta"`
}

// Bounds for the k parameter; requests outside are clamped, not rejected.
const (
	MinK = 1
	MaxK = 10
)

// Service retrieves scored nutrition facts.
type Service struct {
	search Searcher
	logger *slog.Logger
}

// New creates a retrieval service over the given searcher.
func New(search Searcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{search: search, logger: logger}
}

// Available reports whether the underlying index can serve queries.
func (s *Service) Available() bool {
	return s.search != nil && s.search.Available()
}

// Retrieve returns up to k facts for the query, best first. k is clamped to
// [MinK, MaxK]. An unavailable or failing index yields an empty slice with a
// warning, never an error: retrieval degradation must not abort callers.
func (s *Service) Retrieve(ctx context.Context, query string, k int) []Result {
	if k < MinK {
		k = MinK
	}
	if k > MaxK {
		k = MaxK
	}

	if !s.Available() {
		s.logger.Warn("retrieve: index unavailable", "query", query)
		return []Result{}
	}

	hits, err := s.search.Search(ctx, query, k)
	if err != nil {
		s.logger.Warn("retrieve: search failed", "query", query, "err", err)
		return []Result{}
	}

	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = Result{Score: h.Score, FactText: h.Fact.FactText, Meta: h.Fact}
	}
	s.logger.Info("retrieve: done", "query", query, "results", len(out))
	return out
}

// GetByName looks up a single fact by food name. It reuses Retrieve with
// k=1 and prefers a case-insensitive exact name match; failing that, the
// best inexact match is returned as a search-first fallback. Nil when the
// index produced nothing.
func (s *Service) GetByName(ctx context.Context, name string) *Result {
	results := s.Retrieve(ctx, name, 1)
	if len(results) == 0 {
		return nil
	}
	if !strings.EqualFold(results[0].Meta.Name, name) {
		s.logger.Debug("retrieve: no exact name match, using best match",
			"requested", name, "matched", results[0].Meta.Name)
	}
	return &results[0]
}
