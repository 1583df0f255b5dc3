package domain

import "time"

// Prediction is an immutable per-pile scoring result. DaysToFire is the raw
// model output; DaysToFireRounded the half-to-even rounding used for the
// predicted date and risk tier. Features is the fixed reporting snapshot
// taken from the pile's most recent observation.
type Prediction struct {
	PileID            int
	Stockyard         *int
	CoalGrade         *string
	ObservationDate   time.Time
	PredictedFireDate time.Time
	DaysToFire        float64
	DaysToFireRounded int
	RiskLevel         RiskLevel
	Confidence        Confidence
	Features          map[string]float64
	GeneratedAt       time.Time
}

// ModelInfo describes the loaded model artifact for the info endpoint.
type ModelInfo struct {
	ModelType           string
	FeatureCount        int
	NumericFeatures     []string
	CategoricalFeatures []string
	Metrics             map[string]float64
	ModelPath           string
}
