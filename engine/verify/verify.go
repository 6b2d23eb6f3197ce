// Package verify reconciles numeric nutrition claims found in free text
// against retrieved facts scaled to stated portions. Claims are extracted
// lexically, compared inside a symmetric tolerance band, and corrected
// best-effort by substituting the claimed token in place.
package verify

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/MacroScout/macroscout/engine/domain"
)

// Status classifies the outcome of a verification pass.
type Status string

const (
	StatusVerified      Status = "verified"
	StatusDiscrepancies Status = "discrepancies_found"
	StatusNoEvidence    Status = "no_evidence"
	StatusNoClaims      Status = "no_claims"
)

// DefaultTolerancePercent is the allowed deviation between a claimed and an
// expected value, applied identically to all four nutrients.
const DefaultTolerancePercent = 5.0

// Claim is one extracted numeric claim plus the pattern that produced it,
// kept so correction can relocate the exact token.
type Claim struct {
	Value   float64
	pattern *regexp.Regexp
}

// ClaimSet maps nutrient name to its extracted claim. Nutrients not
// mentioned in the text are simply absent.
type ClaimSet map[string]Claim

// Values flattens a ClaimSet to plain numbers.
func (c ClaimSet) Values() map[string]float64 {
	out := make(map[string]float64, len(c))
	for k, v := range c {
		out[k] = v.Value
	}
	return out
}

// Discrepancy is one claimed/expected pair outside the tolerance band.
type Discrepancy struct {
	Nutrient          string  `json:"nutrient"`
	Claimed           float64 `json:"claimed"`
	Expected          float64 `json:"expected"`
	DifferencePercent float64 `json:"difference_percent"`
	// Corrected is false when the claimed token could not be relocated in
	// the text; the nutrient is then left uncorrected by design.
	Corrected bool `json:"corrected"`
}

// Result is the outcome of one verification pass.
type Result struct {
	Status        Status             `json:"status"`
	Message       string             `json:"message"`
	Claimed       map[string]float64 `json:"claimed_values,omitempty"`
	Expected      map[string]float64 `json:"expected_values,omitempty"`
	Discrepancies []Discrepancy      `json:"discrepancies,omitempty"`
	CorrectedText string             `json:"corrected_text"`
}

// Verifier checks nutrition claims with a configured tolerance.
type Verifier struct {
	tolerancePercent float64
	logger           *slog.Logger
}

// New creates a Verifier. A non-positive tolerance falls back to the default.
func New(tolerancePercent float64, logger *slog.Logger) *Verifier {
	if tolerancePercent <= 0 {
		tolerancePercent = DefaultTolerancePercent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{tolerancePercent: tolerancePercent, logger: logger}
}

// TolerancePercent returns the configured tolerance band.
func (v *Verifier) TolerancePercent() float64 { return v.tolerancePercent }

// ExtractClaims scans text for numeric nutrition claims. Per nutrient, the
// first matching pattern wins.
func (v *Verifier) ExtractClaims(text string) ClaimSet {
	claims := make(ClaimSet)
	for _, nutrient := range nutrients {
		for _, pat := range claimPatterns[nutrient] {
			m := pat.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			val, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			claims[nutrient] = Claim{Value: val, pattern: pat}
			break
		}
	}
	return claims
}

// ExpectedValues sums each fact's per-100g macros scaled by its portion in
// grams. Facts without a portion entry are skipped, except when exactly one
// fact is present, where 100 g is the default.
func (v *Verifier) ExpectedValues(facts []domain.NutritionFact, portions map[string]float64) map[string]float64 {
	var calories, protein, carbs, fat float64
	for _, f := range facts {
		portion, ok := portions[f.Name]
		if !ok {
			if len(facts) == 1 {
				portion = 100
			} else {
				continue
			}
		}
		scale := portion / 100
		calories += f.Calories100g * scale
		protein += f.Protein100g * scale
		carbs += f.Carbs100g * scale
		fat += f.Fat100g * scale
	}
	return map[string]float64{
		"calories": calories,
		"protein":  protein,
		"carbs":    carbs,
		"fat":      fat,
	}
}

// Compare reports whether a claimed value matches an expected one within
// tolerancePercent. Two zeros match; a zero against a non-zero never does.
func Compare(claimed, expected, tolerancePercent float64) bool {
	if claimed == 0 && expected == 0 {
		return true
	}
	if claimed == 0 || expected == 0 {
		return false
	}
	return math.Abs(claimed-expected)/math.Abs(expected)*100 <= tolerancePercent
}

// Verify extracts claims from text and reconciles them against the facts.
func (v *Verifier) Verify(text string, facts []domain.NutritionFact, portions map[string]float64) Result {
	if len(facts) == 0 {
		return Result{
			Status:        StatusNoEvidence,
			Message:       "no retrieved facts available for verification",
			CorrectedText: text,
		}
	}

	claims := v.ExtractClaims(text)
	if len(claims) == 0 {
		return Result{
			Status:        StatusNoClaims,
			Message:       "no nutritional claims found in the text",
			CorrectedText: text,
		}
	}

	expected := v.ExpectedValues(facts, portions)

	var discrepancies []Discrepancy
	for _, nutrient := range nutrients {
		claim, ok := claims[nutrient]
		if !ok {
			continue
		}
		want := expected[nutrient]
		if Compare(claim.Value, want, v.tolerancePercent) {
			continue
		}
		discrepancies = append(discrepancies, Discrepancy{
			Nutrient:          nutrient,
			Claimed:           claim.Value,
			Expected:          want,
			DifferencePercent: differencePercent(claim.Value, want),
		})
	}

	if len(discrepancies) == 0 {
		return Result{
			Status:        StatusVerified,
			Message:       "all nutritional claims are within tolerance",
			Claimed:       claims.Values(),
			Expected:      expected,
			CorrectedText: text,
		}
	}

	corrected := v.correct(text, claims, expected, discrepancies)
	return Result{
		Status: StatusDiscrepancies,
		Message: fmt.Sprintf("found %d discrepancies exceeding %.1f%% tolerance",
			len(discrepancies), v.tolerancePercent),
		Claimed:       claims.Values(),
		Expected:      expected,
		Discrepancies: discrepancies,
		CorrectedText: corrected,
	}
}

// correct substitutes, once per discrepant nutrient, the claimed numeric
// token with the expected value. The substitution is lexical: it re-runs the
// pattern that extracted the claim and rewrites the first number it finds.
// When the token cannot be relocated the nutrient stays uncorrected and the
// discrepancy is flagged. Repeated numbers with different units are a known
// limitation; no attempt is made to guess intent.
func (v *Verifier) correct(text string, claims ClaimSet, expected map[string]float64, discrepancies []Discrepancy) string {
	corrected := text
	fixed := 0
	for i := range discrepancies {
		d := &discrepancies[i]
		claim := claims[d.Nutrient]

		loc := claim.pattern.FindStringSubmatchIndex(corrected)
		if loc == nil || loc[2] < 0 {
			v.logger.Warn("verify: could not locate claimed token for correction",
				"nutrient", d.Nutrient, "claimed", d.Claimed)
			continue
		}
		replacement := strconv.FormatFloat(d.Expected, 'f', 1, 64)
		corrected = corrected[:loc[2]] + replacement + corrected[loc[3]:]
		d.Corrected = true
		fixed++
	}
	if fixed > 0 {
		var b strings.Builder
		b.WriteString(corrected)
		b.WriteString("\n\n[Corrected: values updated based on verified nutritional data]")
		return b.String()
	}
	return corrected
}

func differencePercent(claimed, expected float64) float64 {
	if expected != 0 {
		return math.Abs(claimed-expected) / math.Abs(expected) * 100
	}
	if claimed == 0 {
		return 0
	}
	return 100
}
