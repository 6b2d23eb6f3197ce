package classify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MacroScout/macroscout/engine/domain"
)

// Artifact file names inside a model directory.
const (
	ForestFile       = "forest.json"
	ScalerFile       = "scaler.json"
	FeatureNamesFile = "feature_names.json"
	MetadataFile     = "model_metadata.json"
)

// positiveClass is the "recommended" label.
const positiveClass = 1

// sentinelExplanation is returned whenever the model cannot be used.
const sentinelExplanation = "Model not available"

// Result is the outcome of one classification call.
type Result struct {
	Recommended bool    `json:"recommended"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// Metadata describes the offline training run that produced the artifacts.
type Metadata struct {
	ModelType  string `json:"model_type"`
	Estimators int    `json:"n_estimators"`
	MaxDepth   int    `json:"max_depth"`
	TrainedAt  string `json:"trained_at"`
}

// Model is the runtime classifier. Immutable after Load; safe for concurrent use.
type Model struct {
	forest       *Forest
	scaler       *Scaler
	featureNames []string
	meta         Metadata
	logger       *slog.Logger
}

// Load reads the model artifacts from dir. Missing or corrupt artifacts are
// not fatal: the model is returned unavailable and every Predict call yields
// the sentinel result, so classification failure never aborts the pipeline.
func Load(dir string, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Model{logger: logger}

	forest, err := LoadForest(filepath.Join(dir, ForestFile))
	if err != nil {
		logger.Warn("classify: model unavailable", "err", err)
		return m
	}
	scaler, err := LoadScaler(filepath.Join(dir, ScalerFile))
	if err != nil {
		logger.Warn("classify: scaler unavailable", "err", err)
		return m
	}

	names, err := loadFeatureNames(filepath.Join(dir, FeatureNamesFile))
	if err != nil {
		logger.Warn("classify: feature names unavailable", "err", err)
		return m
	}
	for i, want := range FeatureNames {
		if names[i] != want {
			logger.Warn("classify: feature order mismatch, refusing model",
				"position", i, "persisted", names[i], "expected", want)
			return m
		}
	}

	// Metadata is informational; absence does not disable the model.
	if data, err := os.ReadFile(filepath.Join(dir, MetadataFile)); err == nil {
		if err := json.Unmarshal(data, &m.meta); err != nil {
			logger.Warn("classify: bad model metadata", "err", err)
		}
	}

	m.forest = forest
	m.scaler = scaler
	m.featureNames = names
	logger.Info("classify: model loaded",
		"trees", len(forest.Trees), "estimators", m.meta.Estimators, "trained_at", m.meta.TrainedAt)
	return m
}

func loadFeatureNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classify: read feature names: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("classify: parse feature names: %w", err)
	}
	if len(names) != FeatureCount {
		return nil, fmt.Errorf("classify: %d feature names, want %d", len(names), FeatureCount)
	}
	return names, nil
}

// Available reports whether both the forest and scaler loaded.
func (m *Model) Available() bool {
	return m.forest != nil && m.scaler != nil
}

// Predict classifies the given macros. When the model is unavailable it
// returns the sentinel result instead of an error.
func (m *Model) Predict(macros domain.Macros) Result {
	if !m.Available() {
		return Result{Recommended: false, Confidence: 0.0, Explanation: sentinelExplanation}
	}

	features := FeatureVector(macros)
	scaled := m.scaler.Transform(features)
	probs := m.forest.PredictProba(scaled)

	recommended := argmax(probs) == positiveClass
	confidence := probs[argmax(probs)]

	return Result{
		Recommended: recommended,
		Confidence:  confidence,
		Explanation: explain(macros, recommended, confidence),
	}
}

// PredictBatch classifies each entry independently.
func (m *Model) PredictBatch(batch []domain.Macros) []Result {
	out := make([]Result, len(batch))
	for i, macros := range batch {
		out[i] = m.Predict(macros)
	}
	return out
}

// FeatureImportance returns the persisted per-feature importances keyed by
// feature name. Empty when the model is unavailable.
func (m *Model) FeatureImportance() map[string]float64 {
	if !m.Available() || len(m.forest.Importances) != FeatureCount {
		return map[string]float64{}
	}
	out := make(map[string]float64, FeatureCount)
	for i, name := range m.featureNames {
		out[name] = m.forest.Importances[i]
	}
	return out
}

// Info returns training metadata. Zero-valued when unavailable.
func (m *Model) Info() Metadata {
	return m.meta
}
