// Package domain defines core domain types, constants, and validation for the
// macroscout engine pipeline. It acts as the validation gate at pipeline entry points.
package domain

// NutritionFact is one normalized nutrition record, per 100 g of product.
// Facts are immutable once indexed; the embedding index relies on their
// position never changing.
type NutritionFact struct {
	Name         string  `json:"name"`
	Barcode      string  `json:"barcode"`
	URL          string  `json:"url"`
	Calories100g float64 `json:"calories_100g"`
	Protein100g  float64 `json:"protein_100g"`
	Carbs100g    float64 `json:"carbs_100g"`
	Fat100g      float64 `json:"fat_100g"`
	FactText     string  `json:"fact_text"`
}

// Macros holds the four macronutrient values for some mass of food.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Per100 returns the fact's macros per 100 g.
func (f NutritionFact) Per100() Macros {
	return Macros{
		Calories: f.Calories100g,
		Protein:  f.Protein100g,
		Carbs:    f.Carbs100g,
		Fat:      f.Fat100g,
	}
}

// Scale multiplies all macro values by factor.
func (m Macros) Scale(factor float64) Macros {
	return Macros{
		Calories: m.Calories * factor,
		Protein:  m.Protein * factor,
		Carbs:    m.Carbs * factor,
		Fat:      m.Fat * factor,
	}
}

// ForQuantity returns the fact's macros scaled to the given quantity in grams.
func (f NutritionFact) ForQuantity(grams float64) Macros {
	return f.Per100().Scale(grams / 100.0)
}
