package nutrition

import (
	"context"
	"strings"

	"github.com/MacroScout/macroscout/engine/domain"
	"github.com/MacroScout/macroscout/engine/facts"
)

// Local serves lookups from an in-memory fact list, typically loaded from
// the facts file. Matching is case-insensitive, exact name first, then
// substring in either direction.
type Local struct {
	facts []domain.NutritionFact
}

func NewLocal(list []domain.NutritionFact) *Local {
	return &Local{facts: list}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Lookup(_ context.Context, name string) (domain.NutritionFact, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return domain.NutritionFact{}, ErrNotFound
	}

	for _, f := range l.facts {
		if strings.ToLower(f.Name) == needle {
			return f, nil
		}
	}
	for _, f := range l.facts {
		have := strings.ToLower(f.Name)
		if strings.Contains(have, needle) || strings.Contains(needle, have) {
			return f, nil
		}
	}
	return domain.NutritionFact{}, ErrNotFound
}

// staples holds per-100g reference values for common whole foods, used as
// the last resort when neither the remote API nor local data knows a food.
var staples = map[string]domain.NutritionFact{
	"paneer":         {Name: "Paneer", Calories100g: 265, Protein100g: 18.3, Carbs100g: 1.2, Fat100g: 20.8},
	"apple":          {Name: "Apple", Calories100g: 52, Protein100g: 0.3, Carbs100g: 13.8, Fat100g: 0.2},
	"banana":         {Name: "Banana", Calories100g: 89, Protein100g: 1.1, Carbs100g: 22.8, Fat100g: 0.3},
	"spinach":        {Name: "Spinach", Calories100g: 23, Protein100g: 2.9, Carbs100g: 3.6, Fat100g: 0.4},
	"almonds":        {Name: "Almonds", Calories100g: 579, Protein100g: 21.2, Carbs100g: 21.6, Fat100g: 49.9},
	"white rice":     {Name: "White Rice", Calories100g: 130, Protein100g: 2.7, Carbs100g: 28.2, Fat100g: 0.3},
	"chicken breast": {Name: "Chicken Breast", Calories100g: 165, Protein100g: 31, Carbs100g: 0, Fat100g: 3.6},
	"dal":            {Name: "Dal", Calories100g: 116, Protein100g: 9, Carbs100g: 20.1, Fat100g: 0.4},
	"yogurt":         {Name: "Yogurt", Calories100g: 61, Protein100g: 3.5, Carbs100g: 4.7, Fat100g: 3.3},
	"oats":           {Name: "Oats", Calories100g: 389, Protein100g: 16.9, Carbs100g: 66.3, Fat100g: 6.9},
	"egg":            {Name: "Egg", Calories100g: 155, Protein100g: 13, Carbs100g: 1.1, Fat100g: 11},
}

// Staples answers from a fixed table of common foods.
type Staples struct{}

func NewStaples() *Staples { return &Staples{} }

func (s *Staples) Name() string { return "staples" }

func (s *Staples) Lookup(_ context.Context, name string) (domain.NutritionFact, error) {
	needle := strings.ToLower(strings.TrimSpace(name))

	if fact, ok := staples[needle]; ok {
		return withFactText(fact), nil
	}
	// "grilled chicken breast" still resolves to the staple entry
	for key, fact := range staples {
		if strings.Contains(needle, key) {
			return withFactText(fact), nil
		}
	}
	return domain.NutritionFact{}, ErrNotFound
}

func withFactText(fact domain.NutritionFact) domain.NutritionFact {
	fact.FactText = facts.FormatFactText(fact)
	return fact
}
