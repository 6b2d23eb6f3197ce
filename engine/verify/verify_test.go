package verify

import (
	"math"
	"strings"
	"testing"

	"github.com/MacroScout/macroscout/engine/domain"
)

func chickenFact() domain.NutritionFact {
	return domain.NutritionFact{
		Name:         "Chicken Breast",
		Calories100g: 165,
		Protein100g:  31,
		Carbs100g:    0,
		Fat100g:      3.6,
	}
}

func TestExtractClaims(t *testing.T) {
	v := New(0, nil)

	tests := []struct {
		name string
		text string
		want map[string]float64
	}{
		{
			"calories and protein",
			"This meal has 250 calories and 20g of protein.",
			map[string]float64{"calories": 250, "protein": 20},
		},
		{
			"kcal unit",
			"Roughly 165 kcal per serving.",
			map[string]float64{"calories": 165},
		},
		{
			"all four nutrients",
			"250 calories, 20g protein, 30 grams of carbs, 10g fat",
			map[string]float64{"calories": 250, "protein": 20, "carbs": 30, "fat": 10},
		},
		{
			"decimal values",
			"3.6g of fat",
			map[string]float64{"fat": 3.6},
		},
		{
			"no claims",
			"A tasty and filling meal.",
			map[string]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.ExtractClaims(tt.text).Values()
			if len(got) != len(tt.want) {
				t.Fatalf("got %d claims %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for nutrient, want := range tt.want {
				if got[nutrient] != want {
					t.Errorf("%s = %v, want %v", nutrient, got[nutrient], want)
				}
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name               string
		claimed, expected  float64
		tolerance          float64
		want               bool
	}{
		{"both zero", 0, 0, 5, true},
		{"claimed zero expected not", 0, 100, 5, false},
		{"expected zero claimed not", 100, 0, 5, false},
		{"exact match", 100, 100, 5, true},
		{"within tolerance", 104, 100, 5, true},
		{"at tolerance boundary", 105, 100, 5, true},
		{"outside tolerance", 120, 100, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.claimed, tt.expected, tt.tolerance); got != tt.want {
				t.Errorf("Compare(%v, %v, %v) = %v, want %v",
					tt.claimed, tt.expected, tt.tolerance, got, tt.want)
			}
		})
	}
}

func TestExpectedValuesSingleFactDefaultsPortion(t *testing.T) {
	v := New(0, nil)
	got := v.ExpectedValues([]domain.NutritionFact{chickenFact()}, nil)
	if got["calories"] != 165 || got["protein"] != 31 {
		t.Errorf("expected per-100g values for a single portionless fact, got %v", got)
	}
}

func TestExpectedValuesScalesByPortion(t *testing.T) {
	v := New(0, nil)
	got := v.ExpectedValues(
		[]domain.NutritionFact{chickenFact()},
		map[string]float64{"Chicken Breast": 200},
	)
	if math.Abs(got["calories"]-330) > 1e-9 {
		t.Errorf("calories = %v, want 330", got["calories"])
	}
	if math.Abs(got["fat"]-7.2) > 1e-9 {
		t.Errorf("fat = %v, want 7.2", got["fat"])
	}
}

func TestExpectedValuesSkipsPortionlessAmongMany(t *testing.T) {
	v := New(0, nil)
	rice := domain.NutritionFact{Name: "Rice", Calories100g: 130, Carbs100g: 28}
	got := v.ExpectedValues(
		[]domain.NutritionFact{chickenFact(), rice},
		map[string]float64{"Rice": 100},
	)
	if got["calories"] != 130 {
		t.Errorf("calories = %v, want 130 (chicken without portion skipped)", got["calories"])
	}
	if got["protein"] != 0 {
		t.Errorf("protein = %v, want 0", got["protein"])
	}
}

func TestVerifyNoEvidence(t *testing.T) {
	v := New(0, nil)
	res := v.Verify("250 calories", nil, nil)
	if res.Status != StatusNoEvidence {
		t.Fatalf("status = %q, want %q", res.Status, StatusNoEvidence)
	}
	if res.CorrectedText != "250 calories" {
		t.Errorf("corrected text altered: %q", res.CorrectedText)
	}
}

func TestVerifyNoClaims(t *testing.T) {
	v := New(0, nil)
	res := v.Verify("A delicious meal.", []domain.NutritionFact{chickenFact()}, nil)
	if res.Status != StatusNoClaims {
		t.Fatalf("status = %q, want %q", res.Status, StatusNoClaims)
	}
}

func TestVerifyWithinTolerance(t *testing.T) {
	v := New(0, nil)
	res := v.Verify(
		"This has 165 calories and 31g of protein.",
		[]domain.NutritionFact{chickenFact()},
		nil,
	)
	if res.Status != StatusVerified {
		t.Fatalf("status = %q, want %q (discrepancies: %v)", res.Status, StatusVerified, res.Discrepancies)
	}
	if len(res.Discrepancies) != 0 {
		t.Errorf("unexpected discrepancies: %v", res.Discrepancies)
	}
	if res.CorrectedText != "This has 165 calories and 31g of protein." {
		t.Errorf("corrected text altered: %q", res.CorrectedText)
	}
}

func TestVerifyDiscrepancyCorrected(t *testing.T) {
	v := New(0, nil)
	res := v.Verify(
		"This has 200 calories.",
		[]domain.NutritionFact{chickenFact()},
		nil,
	)
	if res.Status != StatusDiscrepancies {
		t.Fatalf("status = %q, want %q", res.Status, StatusDiscrepancies)
	}
	if len(res.Discrepancies) != 1 {
		t.Fatalf("got %d discrepancies, want 1", len(res.Discrepancies))
	}
	d := res.Discrepancies[0]
	if d.Nutrient != "calories" || d.Claimed != 200 || d.Expected != 165 {
		t.Errorf("unexpected discrepancy: %+v", d)
	}
	if !d.Corrected {
		t.Error("discrepancy not marked corrected")
	}
	if math.Abs(d.DifferencePercent-35.0/165*100) > 1e-9 {
		t.Errorf("difference percent = %v", d.DifferencePercent)
	}
	if !strings.Contains(res.CorrectedText, "165.0 calories") {
		t.Errorf("corrected text missing substitution: %q", res.CorrectedText)
	}
	if !strings.Contains(res.CorrectedText, "[Corrected:") {
		t.Errorf("corrected text missing note: %q", res.CorrectedText)
	}
}

func TestVerifyZeroExpectedNeverMatchesClaim(t *testing.T) {
	v := New(0, nil)
	res := v.Verify(
		"Contains 10g of carbs.",
		[]domain.NutritionFact{chickenFact()},
		nil,
	)
	if res.Status != StatusDiscrepancies {
		t.Fatalf("status = %q, want %q", res.Status, StatusDiscrepancies)
	}
	if res.Discrepancies[0].DifferencePercent != 100 {
		t.Errorf("difference percent = %v, want 100", res.Discrepancies[0].DifferencePercent)
	}
}

func TestVerifyDefaultTolerance(t *testing.T) {
	if v := New(0, nil); v.TolerancePercent() != DefaultTolerancePercent {
		t.Errorf("tolerance = %v, want %v", v.TolerancePercent(), DefaultTolerancePercent)
	}
	if v := New(10, nil); v.TolerancePercent() != 10 {
		t.Errorf("tolerance = %v, want 10", v.TolerancePercent())
	}
}
