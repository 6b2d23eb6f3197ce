// Package classify wraps the pre-trained food recommendation model: feature
// engineering over raw macros, a persisted standard scaler, and a serialized
// tree ensemble evaluated in-process. Training happens offline; this package
// only loads artifacts and predicts.
package classify

import (
	"math"

	"github.com/MacroScout/macroscout/engine/domain"
)

// FeatureCount is the length of the engineered feature vector.
const FeatureCount = 9

// FeatureNames is the contract shared with the persisted scaler and model.
// The order must never change without retraining both.
var FeatureNames = [FeatureCount]string{
	"calories",
	"protein",
	"carbs",
	"fat",
	"protein_ratio",
	"carb_ratio",
	"fat_ratio",
	"protein_density",
	"macro_balance",
}

// Ideal macronutrient calorie shares used by the macro_balance feature.
const (
	idealProteinRatio = 0.25
	idealCarbRatio    = 0.45
	idealFatRatio     = 0.30
)

// Calories per gram of each macronutrient.
const (
	calPerGramProtein = 4
	calPerGramCarbs   = 4
	calPerGramFat     = 9
)

// FeatureVector derives the 9-element feature vector from raw macros.
// Ratio features are 0 when calories are non-positive.
func FeatureVector(m domain.Macros) [FeatureCount]float64 {
	var proteinRatio, carbRatio, fatRatio, proteinDensity float64
	if m.Calories > 0 {
		proteinRatio = m.Protein * calPerGramProtein / m.Calories
		carbRatio = m.Carbs * calPerGramCarbs / m.Calories
		fatRatio = m.Fat * calPerGramFat / m.Calories
		proteinDensity = m.Protein / (m.Calories / 100)
	}
	macroBalance := 1 -
		math.Abs(proteinRatio-idealProteinRatio) -
		math.Abs(carbRatio-idealCarbRatio) -
		math.Abs(fatRatio-idealFatRatio)

	return [FeatureCount]float64{
		m.Calories,
		m.Protein,
		m.Carbs,
		m.Fat,
		proteinRatio,
		carbRatio,
		fatRatio,
		proteinDensity,
		macroBalance,
	}
}
