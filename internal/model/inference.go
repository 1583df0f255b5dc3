package model

import (
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/coalfire-prediction/internal/domain"
)

// Predictor evaluates a loaded artifact over feature rows. It is read-only
// after construction and safe for concurrent use.
type Predictor struct {
	artifact *Artifact
}

func NewPredictor(a *Artifact) *Predictor {
	return &Predictor{artifact: a}
}

// RowPrediction is the raw inference output for one feature row.
type RowPrediction struct {
	DaysToFire        float64
	DaysToFireRounded int
	FireDate          time.Time
}

// PredictDaysToFire scores every row, returning one unclamped estimate per
// row in input order. Before scoring it validates that every feature the
// artifact was trained on exists in the assembled schema; a stale artifact
// fails hard with the missing names enumerated rather than silently scoring
// on zeros.
func (p *Predictor) PredictDaysToFire(rows []domain.FeatureRow) ([]float64, error) {
	if err := p.validateFeatures(); err != nil {
		return nil, err
	}

	preds := make([]float64, len(rows))
	for i := range rows {
		preds[i] = p.score(&rows[i])
	}
	return preds, nil
}

// PredictFireDates scores every row and derives the rounded day count and
// predicted calendar date: observation date plus the rounded estimate.
// Rounding is half-to-even, matching the training pipeline.
func (p *Predictor) PredictFireDates(rows []domain.FeatureRow) ([]RowPrediction, error) {
	raw, err := p.PredictDaysToFire(rows)
	if err != nil {
		return nil, err
	}

	preds := make([]RowPrediction, len(rows))
	for i, days := range raw {
		rounded := RoundDays(days)
		preds[i] = RowPrediction{
			DaysToFire:        days,
			DaysToFireRounded: rounded,
			FireDate:          rows[i].Date.AddDate(0, 0, rounded),
		}
	}
	return preds, nil
}

// Info describes the artifact for the model info endpoint.
func (p *Predictor) Info(path string) domain.ModelInfo {
	return domain.ModelInfo{
		ModelType:           p.artifact.ModelType,
		FeatureCount:        len(p.artifact.FeatureCols),
		NumericFeatures:     append([]string(nil), p.artifact.NumCols...),
		CategoricalFeatures: append([]string(nil), p.artifact.CatCols...),
		Metrics:             p.artifact.Metrics,
		ModelPath:           path,
	}
}

// RoundDays rounds a raw day estimate half-to-even, the same tie-break the
// training pipeline uses, so 0.5 rounds to 0 and 1.5 to 2.
func RoundDays(v float64) int {
	return int(math.RoundToEven(v))
}

func (p *Predictor) validateFeatures() error {
	var missing []string
	for _, col := range p.artifact.FeatureCols {
		if !domain.IsFeatureColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &domain.SchemaError{Source: "model features", Missing: missing}
	}
	return nil
}

// score evaluates the linear model on one row. Missing numeric values and
// unseen categorical levels contribute zero.
func (p *Predictor) score(row *domain.FeatureRow) float64 {
	est := p.artifact.Model.Intercept
	for _, col := range p.artifact.NumCols {
		coef, ok := p.artifact.Model.Coefficients[col]
		if !ok {
			continue
		}
		if v, present := row.NumericFeature(col); present {
			est += coef * v
		}
	}
	for _, col := range p.artifact.CatCols {
		weights, ok := p.artifact.Model.CategoricalWeights[col]
		if !ok {
			continue
		}
		if level, present := row.CategoricalFeature(col); present {
			est += weights[level]
		}
	}
	return est
}
