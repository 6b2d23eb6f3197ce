package classify

import (
	"encoding/json"
	"fmt"
	"os"
)

// Scaler holds per-feature mean and standard deviation, fit once offline.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// LoadScaler reads a persisted scaler and checks it against the feature contract.
func LoadScaler(path string) (*Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classify: read scaler: %w", err)
	}
	var s Scaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("classify: parse scaler: %w", err)
	}
	if len(s.Mean) != FeatureCount || len(s.Std) != FeatureCount {
		return nil, fmt.Errorf("classify: scaler has %d/%d features, want %d",
			len(s.Mean), len(s.Std), FeatureCount)
	}
	return &s, nil
}

// Transform standardizes a feature vector. A zero or negative std leaves the
// centered value unscaled rather than dividing by it.
func (s *Scaler) Transform(features [FeatureCount]float64) [FeatureCount]float64 {
	var out [FeatureCount]float64
	for i, v := range features {
		centered := v - s.Mean[i]
		if s.Std[i] > 0 {
			out[i] = centered / s.Std[i]
		} else {
			out[i] = centered
		}
	}
	return out
}
