// Package service orchestrates the prediction workflows: decode the
// uploaded CSV sources, assemble the feature dataset, run inference, score
// risk, and evaluate predictions against registered fires.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/coalfire-prediction/internal/domain"
	"github.com/couchcryptid/coalfire-prediction/internal/model"
	"github.com/couchcryptid/coalfire-prediction/internal/observability"
	"github.com/couchcryptid/coalfire-prediction/internal/pipeline"
)

// ErrModelNotLoaded is returned when inference is requested but no model
// artifact was loaded at startup. Maps to 503 at the HTTP boundary.
var ErrModelNotLoaded = errors.New("model not loaded")

// Publisher pushes completed prediction batches to an external consumer.
// Publishing is best-effort; failures never fail the request.
type Publisher interface {
	PublishPredictions(ctx context.Context, preds []domain.Prediction) error
}

// SourcePaths names the CSV files of one prediction run. FiresPath is
// optional for prediction (labels are only needed for evaluation); all
// weather files are concatenated.
type SourcePaths struct {
	SuppliesPath    string
	TemperaturePath string
	FiresPath       string
	WeatherPaths    []string
}

// DateRange describes the temporal coverage of a prediction run: the
// assembled dataset's span and the weather record's span. Years is derived
// from the weather span; PrimaryYear is its last year.
type DateRange struct {
	DataStart    *time.Time
	DataEnd      *time.Time
	DataYears    []int
	WeatherStart *time.Time
	WeatherEnd   *time.Time
	Years        []int
	PrimaryYear  *int
}

// PredictionService wires the pipeline, the predictor, and risk scoring.
// Constructed once at startup and shared across requests; all state is
// read-only after construction.
type PredictionService struct {
	predictor *model.Predictor
	modelPath string
	risk      domain.RiskThresholds
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New builds a PredictionService. predictor may be nil when the artifact
// failed to load; the service then reports not-ready and refuses inference
// instead of crashing the process. publisher may be nil.
func New(predictor *model.Predictor, modelPath string, risk domain.RiskThresholds, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *PredictionService {
	if predictor != nil {
		metrics.ModelLoaded.Set(1)
	} else {
		metrics.ModelLoaded.Set(0)
	}
	return &PredictionService{
		predictor: predictor,
		modelPath: modelPath,
		risk:      risk,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// ModelLoaded reports whether a model artifact is available for inference.
func (s *PredictionService) ModelLoaded() bool { return s.predictor != nil }

// ModelInfo describes the loaded artifact.
func (s *PredictionService) ModelInfo() (domain.ModelInfo, error) {
	if s.predictor == nil {
		return domain.ModelInfo{}, ErrModelNotLoaded
	}
	return s.predictor.Info(s.modelPath), nil
}

// CheckReadiness satisfies the HTTP server's readiness probe.
func (s *PredictionService) CheckReadiness(ctx context.Context) error {
	if s.predictor == nil {
		return ErrModelNotLoaded
	}
	return nil
}

// Predict assembles the dataset from the given CSV files, scores every
// observation row, and publishes the batch when a publisher is configured.
func (s *PredictionService) Predict(ctx context.Context, paths SourcePaths, horizonDays int) ([]domain.Prediction, *DateRange, error) {
	preds, dateRange, err := s.predict(ctx, paths, horizonDays)
	if err != nil {
		return nil, nil, err
	}

	if s.publisher != nil && len(preds) > 0 {
		if err := s.publisher.PublishPredictions(ctx, preds); err != nil {
			s.metrics.PublishErrors.Inc()
			s.logger.Error("publishing predictions failed", "error", err, "count", len(preds))
		} else {
			s.metrics.PredictionsPublished.Add(float64(len(preds)))
		}
	}
	return preds, dateRange, nil
}

// Evaluate regenerates predictions at the maximum horizon and matches them
// against each pile's earliest registered fire. causalOnly restricts the
// matching to predictions made before the fire started.
func (s *PredictionService) Evaluate(ctx context.Context, paths SourcePaths, causalOnly bool) (*domain.EvaluationResult, error) {
	if paths.FiresPath == "" {
		return nil, &domain.SchemaError{Source: "evaluation", Missing: []string{"fires"}}
	}

	fires, err := decodeFile(paths.FiresPath, pipeline.DecodeFires)
	if err != nil {
		return nil, err
	}

	// Evaluation always scores at the widest horizon so every pre-fire
	// observation is in play.
	preds, _, err := s.predict(ctx, paths, 30)
	if err != nil {
		return nil, err
	}

	mode := domain.MatchAll
	if causalOnly {
		mode = domain.MatchCausalOnly
	}
	result := domain.MatchPredictions(preds, domain.FirstFires(fires), mode)
	s.metrics.EvaluationMatches.Add(float64(result.Metrics.TotalMatches))

	s.logger.Info("evaluation complete",
		"matched", result.Metrics.TotalMatches,
		"invalid", result.Metrics.InvalidPredictions,
		"mae", result.Metrics.MAE,
		"causal_only", causalOnly,
	)
	return &result, nil
}

func (s *PredictionService) predict(ctx context.Context, paths SourcePaths, horizonDays int) ([]domain.Prediction, *DateRange, error) {
	if s.predictor == nil {
		return nil, nil, ErrModelNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	started := time.Now()

	src, err := s.decodeSources(paths)
	if err != nil {
		return nil, nil, err
	}

	rows := pipeline.Assemble(src, horizonDays)
	s.metrics.RowsAssembled.Observe(float64(len(rows)))
	s.logger.Info("dataset assembled",
		"rows", len(rows),
		"temperature_records", len(src.Temperature),
		"supply_records", len(src.Supplies),
		"weather_records", len(src.Weather),
		"horizon_days", horizonDays,
	)

	preds, err := s.score(rows)
	if err != nil {
		return nil, nil, err
	}

	s.metrics.PredictionsScored.Add(float64(len(preds)))
	s.metrics.PredictionDuration.Observe(time.Since(started).Seconds())
	return preds, extractDateRange(rows, src.Weather), nil
}

// score turns assembled rows into per-observation predictions. Every row is
// scored; the reporting snapshot and the stockyard/grade annotation come
// from fixed per-pile rows (last and first respectively) so they are
// uniform across a pile's predictions.
func (s *PredictionService) score(rows []domain.FeatureRow) ([]domain.Prediction, error) {
	rowPreds, err := s.predictor.PredictFireDates(rows)
	if err != nil {
		return nil, err
	}

	type pileMeta struct {
		stockyard *int
		coalGrade *string
	}
	meta := make(map[int]pileMeta)
	lastRow := make(map[int]*domain.FeatureRow)
	for i := range rows {
		row := &rows[i]
		if _, ok := meta[row.PileID]; !ok {
			meta[row.PileID] = pileMeta{stockyard: row.Stockyard, coalGrade: row.CoalGrade}
		}
		lastRow[row.PileID] = row // rows are (pile, day) sorted, last wins
	}

	generatedAt := domain.Clock().Now().UTC()
	preds := make([]domain.Prediction, len(rows))
	for i := range rows {
		row := &rows[i]
		m := meta[row.PileID]
		preds[i] = domain.Prediction{
			PileID:            row.PileID,
			Stockyard:         m.stockyard,
			CoalGrade:         m.coalGrade,
			ObservationDate:   row.Date,
			PredictedFireDate: rowPreds[i].FireDate,
			DaysToFire:        rowPreds[i].DaysToFire,
			DaysToFireRounded: rowPreds[i].DaysToFireRounded,
			RiskLevel:         s.risk.Level(rowPreds[i].DaysToFireRounded),
			Confidence:        domain.ConfidenceFor(rowPreds[i].DaysToFire),
			Features:          lastRow[row.PileID].FeatureSnapshot(),
			GeneratedAt:       generatedAt,
		}
	}
	return preds, nil
}

func (s *PredictionService) decodeSources(paths SourcePaths) (pipeline.Sources, error) {
	var src pipeline.Sources
	var err error

	if src.Supplies, err = decodeFile(paths.SuppliesPath, pipeline.DecodeSupplies); err != nil {
		return src, err
	}
	if src.Temperature, err = decodeFile(paths.TemperaturePath, pipeline.DecodeTemperature); err != nil {
		return src, err
	}
	if paths.FiresPath != "" {
		if src.Fires, err = decodeFile(paths.FiresPath, pipeline.DecodeFires); err != nil {
			return src, err
		}
	}
	for _, wp := range paths.WeatherPaths {
		records, err := decodeFile(wp, pipeline.DecodeWeather)
		if err != nil {
			return src, err
		}
		src.Weather = append(src.Weather, records...)
	}
	return src, nil
}

func decodeFile[T any](path string, decode func(r io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()
	return decode(f)
}

func extractDateRange(rows []domain.FeatureRow, weather []domain.WeatherRecord) *DateRange {
	dr := &DateRange{}

	for i := range rows {
		d := rows[i].Date
		if dr.DataStart == nil || d.Before(*dr.DataStart) {
			start := d
			dr.DataStart = &start
		}
		if dr.DataEnd == nil || d.After(*dr.DataEnd) {
			end := d
			dr.DataEnd = &end
		}
	}
	if dr.DataStart != nil {
		dr.DataYears = yearsBetween(*dr.DataStart, *dr.DataEnd)
	}

	for _, rec := range weather {
		if rec.Date == nil {
			continue
		}
		if dr.WeatherStart == nil || rec.Date.Before(*dr.WeatherStart) {
			start := *rec.Date
			dr.WeatherStart = &start
		}
		if dr.WeatherEnd == nil || rec.Date.After(*dr.WeatherEnd) {
			end := *rec.Date
			dr.WeatherEnd = &end
		}
	}
	if dr.WeatherStart != nil {
		dr.Years = yearsBetween(*dr.WeatherStart, *dr.WeatherEnd)
		primary := dr.WeatherEnd.Year()
		dr.PrimaryYear = &primary
	}
	return dr
}

func yearsBetween(start, end time.Time) []int {
	var years []int
	for y := start.Year(); y <= end.Year(); y++ {
		years = append(years, y)
	}
	return years
}
