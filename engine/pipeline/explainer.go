package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/MacroScout/macroscout/engine/classify"
	"github.com/MacroScout/macroscout/engine/retrieve"
)

// ExplainInput carries everything an explanation generator may use.
type ExplainInput struct {
	Food           string
	QuantityG      float64
	Classification classify.Result
	Evidence       []retrieve.Result
}

// Explainer turns a pipeline outcome into user-facing prose. Generative
// backends plug in here; the shipped implementation is deterministic.
type Explainer interface {
	Explain(ctx context.Context, in ExplainInput) (string, error)
}

// TemplateExplainer renders a fixed-template explanation from the
// classification and the top evidence fact.
type TemplateExplainer struct{}

func NewTemplateExplainer() *TemplateExplainer { return &TemplateExplainer{} }

func (e *TemplateExplainer) Explain(_ context.Context, in ExplainInput) (string, error) {
	var b strings.Builder

	verdict := "not recommended"
	if in.Classification.Recommended {
		verdict = "recommended"
	}
	fmt.Fprintf(&b, "Based on the nutritional analysis, %s is %s (confidence: %.1f%%). ",
		in.Food, verdict, in.Classification.Confidence*100)

	if len(in.Evidence) > 0 {
		fact := in.Evidence[0].Meta
		fmt.Fprintf(&b, "The nutritional profile shows %.0f calories, %.1fg protein, %.1fg carbs, and %.1fg fat per 100g. ",
			fact.Calories100g, fact.Protein100g, fact.Carbs100g, fact.Fat100g)
	}
	if in.QuantityG > 0 && in.QuantityG != 100 {
		fmt.Fprintf(&b, "Values are assessed for a %.0fg portion. ", in.QuantityG)
	}

	b.WriteString("\n\nDisclaimer: This is general nutritional information. Please consult a qualified healthcare professional for personalized dietary advice.")
	return b.String(), nil
}
