package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/coalfire-prediction/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	yard := 2
	grade := "Д"
	pred := domain.Prediction{
		PileID:            101,
		Stockyard:         &yard,
		CoalGrade:         &grade,
		ObservationDate:   time.Date(2024, time.April, 27, 0, 0, 0, 0, time.UTC),
		PredictedFireDate: time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
		DaysToFire:        3.2,
		DaysToFireRounded: 3,
		RiskLevel:         domain.RiskHigh,
		Confidence:        domain.ConfidenceHigh,
		Features:          map[string]float64{"stock_tons": 1300},
		GeneratedAt:       time.Date(2024, time.April, 27, 12, 30, 0, 0, time.UTC),
	}

	msg, err := serializeToMessage(pred)
	require.NoError(t, err)

	assert.Equal(t, "pile-101", string(msg.Key))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "high", headers["risk_level"])
	assert.Equal(t, "2024-04-27T12:30:00Z", headers["generated_at"])

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, float64(101), payload["pile_id"])
	assert.Equal(t, float64(2), payload["stockyard"])
	assert.Equal(t, "Д", payload["coal_grade"])
	assert.Equal(t, "2024-04-27", payload["observation_date"])
	assert.Equal(t, "2024-04-30", payload["predicted_fire_date"])
	assert.Equal(t, 3.2, payload["predicted_days_to_fire"])
	assert.Equal(t, float64(3), payload["predicted_days_to_fire_rounded"])
	assert.Equal(t, "high", payload["risk_level"])
	assert.Equal(t, "high", payload["confidence"])
}

func TestSerializeToMessageNilOptionals(t *testing.T) {
	pred := domain.Prediction{
		PileID:            102,
		ObservationDate:   time.Date(2024, time.April, 27, 0, 0, 0, 0, time.UTC),
		PredictedFireDate: time.Date(2024, time.May, 27, 0, 0, 0, 0, time.UTC),
		RiskLevel:         domain.RiskLow,
		Confidence:        domain.ConfidenceLow,
		GeneratedAt:       time.Date(2024, time.April, 27, 12, 30, 0, 0, time.UTC),
	}

	msg, err := serializeToMessage(pred)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Nil(t, payload["stockyard"])
	assert.Nil(t, payload["coal_grade"])
}
