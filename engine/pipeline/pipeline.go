// Package pipeline orchestrates a recommendation request end to end:
// resolve the food, classify its scaled macros, retrieve supporting
// evidence, verify stated claims, and explain the outcome. Every stage
// after resolution degrades instead of failing the request.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MacroScout/macroscout/engine/classify"
	"github.com/MacroScout/macroscout/engine/domain"
	"github.com/MacroScout/macroscout/engine/nutrition"
	"github.com/MacroScout/macroscout/engine/retrieve"
	"github.com/MacroScout/macroscout/engine/verify"
)

// DefaultQuantityG is assumed when a request omits the portion size.
const DefaultQuantityG = 100

// DefaultTopK is how many evidence facts back a recommendation.
const DefaultTopK = 3

// ErrFoodNotFound marks the one non-validation terminal failure: no
// provider knows the requested food.
var ErrFoodNotFound = errors.New("pipeline: food not found")

// Resolver resolves a food name to a nutrition fact.
type Resolver interface {
	Lookup(ctx context.Context, name string) (domain.NutritionFact, error)
}

// Classifier predicts a recommendation from scaled macros.
type Classifier interface {
	Predict(macros domain.Macros) classify.Result
	Available() bool
}

// Retriever fetches supporting evidence for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) []retrieve.Result
	Available() bool
}

// Request is one recommendation request.
type Request struct {
	FoodName   string  `json:"food_name"`
	QuantityG  float64 `json:"quantity_g"`
	VerifyText string  `json:"verify_text,omitempty"`
}

// Timings records per-stage wall time in seconds, plus "total".
type Timings map[string]float64

// Response is the assembled pipeline output.
type Response struct {
	Food           string              `json:"food"`
	QuantityG      float64             `json:"quantity_g"`
	Nutrition      domain.Macros       `json:"nutrition"`
	Source         domain.NutritionFact `json:"source"`
	Classification classify.Result     `json:"classification"`
	Evidence       []retrieve.Result   `json:"evidence"`
	Verification   *verify.Result      `json:"verification,omitempty"`
	Explanation    string              `json:"explanation"`
	Timings        Timings             `json:"timings"`
}

// Health summarizes which pipeline services are currently usable.
type Health struct {
	Retriever  bool   `json:"retriever_available"`
	Classifier bool   `json:"classifier_available"`
	Status     string `json:"status"`
}

// Service wires the pipeline stages together.
type Service struct {
	resolver   Resolver
	classifier Classifier
	retriever  Retriever
	verifier   *verify.Verifier
	explainer  Explainer
	publish    EventPublisher
	logger     *slog.Logger
	topK       int

	now func() time.Time
}

// Opts configures optional pieces of the pipeline.
type Opts struct {
	// TopK is the evidence count per request; 0 means DefaultTopK.
	TopK int
	// Publish, when set, receives an event per completed recommendation.
	Publish EventPublisher
	Logger  *slog.Logger
}

// New assembles the pipeline service.
func New(resolver Resolver, classifier Classifier, retriever Retriever, verifier *verify.Verifier, explainer Explainer, opts Opts) *Service {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if explainer == nil {
		explainer = NewTemplateExplainer()
	}
	return &Service{
		resolver:   resolver,
		classifier: classifier,
		retriever:  retriever,
		verifier:   verifier,
		explainer:  explainer,
		publish:    opts.Publish,
		logger:     opts.Logger,
		topK:       opts.TopK,
		now:        time.Now,
	}
}

// Health reports service availability. The pipeline is degraded, not down,
// while either backend is missing.
func (s *Service) Health() Health {
	h := Health{
		Retriever:  s.retriever.Available(),
		Classifier: s.classifier.Available(),
	}
	if h.Retriever && h.Classifier {
		h.Status = "healthy"
	} else {
		h.Status = "degraded"
	}
	return h
}

// Recommend runs the full pipeline. It fails only on invalid input or an
// unresolvable food; every later stage degrades into a partial response.
func (s *Service) Recommend(ctx context.Context, req Request) (Response, error) {
	name, err := domain.ValidateFoodName(req.FoodName)
	if err != nil {
		return Response{}, err
	}
	quantity := req.QuantityG
	if quantity == 0 {
		quantity = DefaultQuantityG
	}
	if err := domain.ValidateQuantity(quantity); err != nil {
		return Response{}, err
	}
	verifyText, err := domain.ValidateText(req.VerifyText)
	if err != nil {
		return Response{}, err
	}

	timings := make(Timings)
	started := s.now()

	var fact domain.NutritionFact
	err = s.timed(timings, "resolve", func() error {
		var lookupErr error
		fact, lookupErr = s.resolver.Lookup(ctx, name)
		return lookupErr
	})
	if err != nil {
		if errors.Is(err, nutrition.ErrNotFound) {
			return Response{}, ErrFoodNotFound
		}
		return Response{}, err
	}

	resp := Response{
		Food:      fact.Name,
		QuantityG: quantity,
		Nutrition: fact.ForQuantity(quantity),
		Source:    fact,
		Timings:   timings,
	}

	s.timed(timings, "classify", func() error {
		resp.Classification = s.classifier.Predict(resp.Nutrition)
		return nil
	})

	s.timed(timings, "retrieve", func() error {
		resp.Evidence = s.retriever.Retrieve(ctx, fact.Name, s.topK)
		return nil
	})

	if verifyText != "" {
		s.timed(timings, "verify", func() error {
			facts := make([]domain.NutritionFact, 0, len(resp.Evidence)+1)
			for _, hit := range resp.Evidence {
				facts = append(facts, hit.Meta)
			}
			if len(facts) == 0 {
				facts = append(facts, fact)
			}
			result := s.verifier.Verify(verifyText, facts,
				map[string]float64{fact.Name: quantity})
			resp.Verification = &result
			return nil
		})
	}

	s.timed(timings, "explain", func() error {
		text, explainErr := s.explainer.Explain(ctx, ExplainInput{
			Food:           fact.Name,
			QuantityG:      quantity,
			Classification: resp.Classification,
			Evidence:       resp.Evidence,
		})
		if explainErr != nil {
			s.logger.Warn("pipeline: explainer failed, using classifier explanation",
				"error", explainErr)
			text = resp.Classification.Explanation
		}
		resp.Explanation = text
		return nil
	})

	timings["total"] = s.now().Sub(started).Seconds()

	s.publishEvent(ctx, resp)
	return resp, nil
}

// timed runs fn and records its duration under name.
func (s *Service) timed(timings Timings, name string, fn func() error) error {
	start := s.now()
	err := fn()
	timings[name] = s.now().Sub(start).Seconds()
	return err
}
