package classify

import (
	"fmt"
	"strings"

	"github.com/MacroScout/macroscout/engine/domain"
)

// Thresholds for the rule-based explanation text. These inspect the raw
// macros, not the scaled features, so the wording stays meaningful to users.
const (
	lowCalorieBand   = 200
	highCalorieBand  = 400
	highProteinBand  = 15
	lowProteinBand   = 5
	goodProteinRatio = 0.2
	lowProteinRatio  = 0.1
	okFatRatio       = 0.4
	highFatRatio     = 0.5
)

// explain builds the deterministic, templated explanation for a prediction.
func explain(m domain.Macros, recommended bool, confidence float64) string {
	var b strings.Builder
	if recommended {
		fmt.Fprintf(&b, "Recommended (confidence: %.1f%%). ", confidence*100)
	} else {
		fmt.Fprintf(&b, "Not recommended (confidence: %.1f%%). ", confidence*100)
	}

	var reasons []string
	if m.Calories < lowCalorieBand {
		reasons = append(reasons, "low calorie content")
	} else if m.Calories > highCalorieBand {
		reasons = append(reasons, "high calorie content")
	}

	if m.Protein > highProteinBand {
		reasons = append(reasons, "high protein content")
	} else if m.Protein < lowProteinBand {
		reasons = append(reasons, "low protein content")
	}

	if m.Calories > 0 {
		proteinRatio := m.Protein * calPerGramProtein / m.Calories
		fatRatio := m.Fat * calPerGramFat / m.Calories
		switch {
		case proteinRatio > goodProteinRatio && fatRatio < okFatRatio:
			reasons = append(reasons, "good macronutrient balance")
		case proteinRatio < lowProteinRatio:
			reasons = append(reasons, "poor protein content")
		case fatRatio > highFatRatio:
			reasons = append(reasons, "high fat content")
		}
	}

	if len(reasons) == 0 {
		b.WriteString("Nutritional profile is moderate.")
		return b.String()
	}
	if recommended {
		fmt.Fprintf(&b, "Key factors: %s.", strings.Join(reasons, ", "))
	} else {
		fmt.Fprintf(&b, "Concerns: %s.", strings.Join(reasons, ", "))
	}
	return b.String()
}
