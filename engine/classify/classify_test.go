package classify

import (
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MacroScout/macroscout/engine/domain"
)

func TestFeatureVector(t *testing.T) {
	got := FeatureVector(domain.Macros{Calories: 200, Protein: 20, Carbs: 10, Fat: 5})
	want := [FeatureCount]float64{200, 20, 10, 5, 0.4, 0.2, 0.225, 10, 0.525}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("feature %s = %v, want %v", FeatureNames[i], got[i], want[i])
		}
	}
}

func TestFeatureVectorZeroCalories(t *testing.T) {
	got := FeatureVector(domain.Macros{Calories: 0, Protein: 20, Carbs: 10, Fat: 5})
	for i := 4; i < 8; i++ {
		if got[i] != 0 {
			t.Fatalf("ratio feature %s should be 0 at zero calories, got %v", FeatureNames[i], got[i])
		}
	}
	// macro_balance = 1 - 0.25 - 0.45 - 0.30 = 0 when all ratios are 0.
	if math.Abs(got[8]) > 1e-9 {
		t.Fatalf("macro_balance = %v, want 0", got[8])
	}
}

func TestScalerTransform(t *testing.T) {
	s := &Scaler{
		Mean: []float64{100, 10, 0, 0, 0, 0, 0, 0, 0},
		Std:  []float64{50, 5, 1, 1, 1, 1, 1, 1, 0},
	}
	in := [FeatureCount]float64{200, 20, 3, 0, 0, 0, 0, 0, 7}
	out := s.Transform(in)
	if out[0] != 2 || out[1] != 2 || out[2] != 3 {
		t.Fatalf("unexpected scaled values: %v", out)
	}
	// Zero std keeps the centered value unscaled.
	if out[8] != 7 {
		t.Fatalf("zero-std feature = %v, want 7", out[8])
	}
}

// testForest: protein (feature 1) above 10 is the positive class, twice over.
func testForest() *Forest {
	tree := Tree{
		Feature:   []int{1, -2, -2},
		Threshold: []float64{10, 0, 0},
		Left:      []int{1, -1, -1},
		Right:     []int{2, -1, -1},
		Value:     [][]float64{{0, 0}, {10, 0}, {0, 10}},
	}
	importances := make([]float64, FeatureCount)
	importances[1] = 1.0
	return &Forest{Trees: []Tree{tree, tree}, Classes: 2, Importances: importances}
}

func writeModelDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	mustJSON := func(name string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	mustJSON(ForestFile, testForest())
	mustJSON(ScalerFile, &Scaler{Mean: make([]float64, FeatureCount), Std: onesVector()})
	mustJSON(FeatureNamesFile, FeatureNames[:])
	mustJSON(MetadataFile, Metadata{ModelType: "random_forest", Estimators: 2, MaxDepth: 1, TrainedAt: "2026-08-01T00:00:00Z"})
	return dir
}

func onesVector() []float64 {
	v := make([]float64, FeatureCount)
	for i := range v {
		v[i] = 1
	}
	return v
}

func TestPredict(t *testing.T) {
	m := Load(writeModelDir(t), slog.Default())
	if !m.Available() {
		t.Fatal("model should be available")
	}

	high := m.Predict(domain.Macros{Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6})
	if !high.Recommended {
		t.Fatalf("high-protein food should be recommended: %+v", high)
	}
	if high.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", high.Confidence)
	}
	if high.Explanation == "" || high.Explanation == sentinelExplanation {
		t.Fatalf("expected templated explanation, got %q", high.Explanation)
	}

	low := m.Predict(domain.Macros{Calories: 89, Protein: 1.1, Carbs: 22.8, Fat: 0.3})
	if low.Recommended {
		t.Fatalf("low-protein food should not be recommended: %+v", low)
	}
}

func TestPredictUnavailable(t *testing.T) {
	m := Load(t.TempDir(), slog.Default())
	if m.Available() {
		t.Fatal("model over empty dir should be unavailable")
	}
	got := m.Predict(domain.Macros{Calories: 500, Protein: 50, Carbs: 1, Fat: 1})
	if got.Recommended || got.Confidence != 0.0 || got.Explanation != "Model not available" {
		t.Fatalf("expected sentinel result, got %+v", got)
	}
	if imp := m.FeatureImportance(); len(imp) != 0 {
		t.Fatalf("feature importance should be empty when unavailable, got %v", imp)
	}
}

func TestLoadRejectsFeatureOrderMismatch(t *testing.T) {
	dir := writeModelDir(t)
	swapped := append([]string{}, FeatureNames[:]...)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	data, _ := json.Marshal(swapped)
	if err := os.WriteFile(filepath.Join(dir, FeatureNamesFile), data, 0o644); err != nil {
		t.Fatal(err)
	}
	m := Load(dir, slog.Default())
	if m.Available() {
		t.Fatal("model with reordered features must be refused")
	}
}

func TestPredictBatch(t *testing.T) {
	m := Load(writeModelDir(t), slog.Default())
	got := m.PredictBatch([]domain.Macros{
		{Calories: 165, Protein: 31},
		{Calories: 89, Protein: 1.1},
	})
	if len(got) != 2 || !got[0].Recommended || got[1].Recommended {
		t.Fatalf("unexpected batch results: %+v", got)
	}
}

func TestFeatureImportance(t *testing.T) {
	m := Load(writeModelDir(t), slog.Default())
	imp := m.FeatureImportance()
	if imp["protein"] != 1.0 {
		t.Fatalf("protein importance = %v, want 1.0", imp["protein"])
	}
	if len(imp) != FeatureCount {
		t.Fatalf("importance map has %d entries, want %d", len(imp), FeatureCount)
	}
}

func TestExplanationBands(t *testing.T) {
	cases := []struct {
		name   string
		macros domain.Macros
		want   string
	}{
		{"low calorie", domain.Macros{Calories: 100, Protein: 8, Carbs: 10, Fat: 2}, "low calorie content"},
		{"high calorie", domain.Macros{Calories: 550, Protein: 8, Carbs: 10, Fat: 2}, "high calorie content"},
		{"high protein", domain.Macros{Calories: 300, Protein: 25, Carbs: 10, Fat: 2}, "high protein content"},
		{"low protein", domain.Macros{Calories: 300, Protein: 2, Carbs: 10, Fat: 2}, "low protein content"},
		{"high fat", domain.Macros{Calories: 300, Protein: 8, Carbs: 5, Fat: 20}, "high fat content"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := explain(tc.macros, false, 0.8)
			if !strings.Contains(got, tc.want) {
				t.Fatalf("explanation %q missing %q", got, tc.want)
			}
		})
	}
}
