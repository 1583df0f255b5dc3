package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/coalfire-prediction/internal/domain"
)

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }

func featureRow(date time.Time, tempMaxMean, stockTons float64, grade string) domain.FeatureRow {
	return domain.FeatureRow{
		PileID:      101,
		Date:        date,
		TempMaxMean: fptr(tempMaxMean),
		StockTons:   fptr(stockTons),
		CoalGrade:   sptr(grade),
	}
}

func TestPredictDaysToFire(t *testing.T) {
	predictor := NewPredictor(testArtifact())
	obs := time.Date(2024, time.April, 27, 0, 0, 0, 0, time.UTC)

	t.Run("linear score", func(t *testing.T) {
		// 10 - 0.1*65 + 0.0005*1000 - 1.0 = 3.0
		preds, err := predictor.PredictDaysToFire([]domain.FeatureRow{
			featureRow(obs, 65, 1000, "Д"),
		})
		require.NoError(t, err)
		require.Len(t, preds, 1)
		assert.InDelta(t, 3.0, preds[0], 1e-9)
	})

	t.Run("missing numeric contributes zero", func(t *testing.T) {
		row := featureRow(obs, 65, 1000, "Д")
		row.StockTons = nil
		preds, err := predictor.PredictDaysToFire([]domain.FeatureRow{row})
		require.NoError(t, err)
		assert.InDelta(t, 2.5, preds[0], 1e-9)
	})

	t.Run("unseen categorical level contributes zero", func(t *testing.T) {
		preds, err := predictor.PredictDaysToFire([]domain.FeatureRow{
			featureRow(obs, 65, 1000, "Т"),
		})
		require.NoError(t, err)
		assert.InDelta(t, 4.0, preds[0], 1e-9)
	})

	t.Run("empty input", func(t *testing.T) {
		preds, err := predictor.PredictDaysToFire(nil)
		require.NoError(t, err)
		assert.Empty(t, preds)
	})
}

func TestPredictDaysToFireStaleArtifact(t *testing.T) {
	artifact := testArtifact()
	artifact.FeatureCols = append(artifact.FeatureCols, "zeta_feature", "alpha_feature")
	predictor := NewPredictor(artifact)

	_, err := predictor.PredictDaysToFire([]domain.FeatureRow{{}})
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "model features", schemaErr.Source)
	assert.Equal(t, []string{"alpha_feature", "zeta_feature"}, schemaErr.Missing)
}

func TestPredictFireDates(t *testing.T) {
	predictor := NewPredictor(testArtifact())
	obs := time.Date(2024, time.April, 27, 0, 0, 0, 0, time.UTC)

	preds, err := predictor.PredictFireDates([]domain.FeatureRow{
		featureRow(obs, 65, 1000, "Д"), // scores 3.0
	})
	require.NoError(t, err)
	require.Len(t, preds, 1)

	assert.InDelta(t, 3.0, preds[0].DaysToFire, 1e-9)
	assert.Equal(t, 3, preds[0].DaysToFireRounded)
	assert.Equal(t, time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC), preds[0].FireDate)
}

func TestRoundDays(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int
	}{
		{"round down", 2.4, 2},
		{"round up", 2.6, 3},
		{"half rounds to even zero", 0.5, 0},
		{"half rounds to even two", 1.5, 2},
		{"two point five stays two", 2.5, 2},
		{"negative half", -0.5, 0},
		{"negative", -1.7, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundDays(tt.in))
		})
	}
}

func TestPredictorInfo(t *testing.T) {
	info := NewPredictor(testArtifact()).Info("models/fire.json")
	assert.Equal(t, "linear", info.ModelType)
	assert.Equal(t, 3, info.FeatureCount)
	assert.Equal(t, []string{"temp_max_mean", "stock_tons"}, info.NumericFeatures)
	assert.Equal(t, []string{"coal_grade"}, info.CategoricalFeatures)
	assert.Equal(t, "models/fire.json", info.ModelPath)
	assert.Equal(t, 2.4, info.Metrics["mae"])
}
