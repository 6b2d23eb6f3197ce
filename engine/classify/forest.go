package classify

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tree is one decision tree in flattened array form, the usual export shape
// for offline-trained ensembles: node i tests Feature[i] <= Threshold[i] and
// descends to Left[i] or Right[i]; leaves have Left == -1 and carry per-class
// sample counts in Value[i].
type Tree struct {
	Feature   []int       `json:"feature"`
	Threshold []float64   `json:"threshold"`
	Left      []int       `json:"left"`
	Right     []int       `json:"right"`
	Value     [][]float64 `json:"value"`
}

// Forest is a serialized tree ensemble for binary classification.
type Forest struct {
	Trees       []Tree    `json:"trees"`
	Classes     int       `json:"classes"`
	Importances []float64 `json:"feature_importances"`
}

// LoadForest reads a persisted forest and sanity-checks its shape.
func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classify: read forest: %w", err)
	}
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("classify: parse forest: %w", err)
	}
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("classify: forest has no trees")
	}
	if f.Classes < 2 {
		return nil, fmt.Errorf("classify: forest has %d classes, want >= 2", f.Classes)
	}
	for i, t := range f.Trees {
		n := len(t.Feature)
		if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
			return nil, fmt.Errorf("classify: tree %d has inconsistent node arrays", i)
		}
	}
	return &f, nil
}

// leafDistribution walks one tree for the given features and returns the
// normalized class distribution at the reached leaf.
func (t *Tree) leafDistribution(features [FeatureCount]float64, classes int) []float64 {
	node := 0
	for t.Left[node] != -1 {
		fi := t.Feature[node]
		if fi >= 0 && fi < FeatureCount && features[fi] <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
	counts := t.Value[node]
	dist := make([]float64, classes)
	var total float64
	for i := 0; i < classes && i < len(counts); i++ {
		total += counts[i]
	}
	if total == 0 {
		return dist
	}
	for i := 0; i < classes && i < len(counts); i++ {
		dist[i] = counts[i] / total
	}
	return dist
}

// PredictProba averages the per-tree class distributions, the standard
// soft-voting rule for forests.
func (f *Forest) PredictProba(features [FeatureCount]float64) []float64 {
	probs := make([]float64, f.Classes)
	for i := range f.Trees {
		dist := f.Trees[i].leafDistribution(features, f.Classes)
		for c, p := range dist {
			probs[c] += p
		}
	}
	n := float64(len(f.Trees))
	for c := range probs {
		probs[c] /= n
	}
	return probs
}

// Predict returns the argmax class of the averaged distribution.
func (f *Forest) Predict(features [FeatureCount]float64) int {
	return argmax(f.PredictProba(features))
}

func argmax(probs []float64) int {
	best := 0
	for c, p := range probs {
		if p > probs[best] {
			best = c
		}
	}
	return best
}
