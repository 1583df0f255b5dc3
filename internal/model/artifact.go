// Package model loads the trained regression artifact and runs inference
// over assembled feature rows. Training happens offline; this package only
// consumes the exported artifact.
package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Regressor is the fitted linear model: an intercept, one coefficient per
// numeric feature, and one weight per observed level of each categorical
// feature. Categorical levels are keyed by canonical string form so the
// encoding is stable between training and serving; an unseen level (or a
// missing value) contributes zero, mirroring one-hot encoding with unknown
// levels ignored.
type Regressor struct {
	Intercept          float64                       `json:"intercept"`
	Coefficients       map[string]float64            `json:"coefficients"`
	CategoricalWeights map[string]map[string]float64 `json:"categorical_weights"`
}

// Artifact is the on-disk model payload. The five fields are a
// compatibility boundary with the training pipeline; loading fails if the
// file cannot be decoded into this shape.
type Artifact struct {
	Model       Regressor          `json:"model"`
	FeatureCols []string           `json:"feature_cols"`
	NumCols     []string           `json:"num_cols"`
	CatCols     []string           `json:"cat_cols"`
	Metrics     map[string]float64 `json:"metrics"`
	ModelType   string             `json:"model_type"`
}

// LoadArtifact reads and decodes a model artifact from path.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if len(a.FeatureCols) == 0 {
		return nil, fmt.Errorf("model artifact %s: empty feature_cols", path)
	}
	return &a, nil
}

// SaveArtifact writes an artifact to path as indented JSON.
func SaveArtifact(path string, a *Artifact) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write model artifact: %w", err)
	}
	return nil
}
