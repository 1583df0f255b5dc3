// Package kafka publishes completed prediction batches for downstream
// consumers (alerting, dashboards). Publishing is optional and enabled by
// configuration.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/coalfire-prediction/internal/config"
	"github.com/couchcryptid/coalfire-prediction/internal/domain"
)

// Publisher produces prediction messages to the configured topic.
// It implements service.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the predictions topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaPredictionsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishPredictions serializes and publishes a prediction batch in a
// single WriteMessages call. Messages are keyed by pile so a compacted
// topic retains each pile's latest prediction.
func (p *Publisher) PublishPredictions(ctx context.Context, preds []domain.Prediction) error {
	if len(preds) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(preds))
	for i := range preds {
		msg, err := serializeToMessage(preds[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// predictionMessage is the published wire shape.
type predictionMessage struct {
	PileID            int                `json:"pile_id"`
	Stockyard         *int               `json:"stockyard"`
	CoalGrade         *string            `json:"coal_grade"`
	ObservationDate   string             `json:"observation_date"`
	PredictedFireDate string             `json:"predicted_fire_date"`
	DaysToFire        float64            `json:"predicted_days_to_fire"`
	DaysToFireRounded int                `json:"predicted_days_to_fire_rounded"`
	RiskLevel         string             `json:"risk_level"`
	Confidence        string             `json:"confidence"`
	Features          map[string]float64 `json:"features"`
	GeneratedAt       string             `json:"generated_at"`
}

// serializeToMessage marshals a Prediction into a Kafka message.
func serializeToMessage(pred domain.Prediction) (kafkago.Message, error) {
	data, err := json.Marshal(predictionMessage{
		PileID:            pred.PileID,
		Stockyard:         pred.Stockyard,
		CoalGrade:         pred.CoalGrade,
		ObservationDate:   pred.ObservationDate.Format("2006-01-02"),
		PredictedFireDate: pred.PredictedFireDate.Format("2006-01-02"),
		DaysToFire:        pred.DaysToFire,
		DaysToFireRounded: pred.DaysToFireRounded,
		RiskLevel:         string(pred.RiskLevel),
		Confidence:        string(pred.Confidence),
		Features:          pred.Features,
		GeneratedAt:       pred.GeneratedAt.Format(time.RFC3339),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(fmt.Sprintf("pile-%d", pred.PileID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_level", Value: []byte(pred.RiskLevel)},
			{Key: "generated_at", Value: []byte(pred.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
