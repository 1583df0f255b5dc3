package domain

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// MatchMode selects which predictions count when matching against fires.
type MatchMode int

const (
	// MatchAll pairs every prediction for a burned pile with its fire.
	MatchAll MatchMode = iota
	// MatchCausalOnly additionally requires the observation to predate the
	// fire, discarding predictions that already "knew" the outcome.
	MatchCausalOnly
)

// MatchedPrediction pairs one prediction with the real fire on its pile.
type MatchedPrediction struct {
	PileID            int
	Stockyard         *int
	CoalGrade         *string
	ObservationDate   time.Time
	PredictedFireDate time.Time
	RealFireDate      time.Time
	DaysDifference    int
	AbsDaysDifference int
	IsMatch           bool
}

// EvaluationMetrics summarizes prediction accuracy over matched pairs.
// Accuracy fields are the fraction of matches within ±N days; CorrectPM2 is
// the raw count behind AccuracyPM2. InvalidPredictions counts pairs rejected
// by MatchCausalOnly (always 0 under MatchAll).
type EvaluationMetrics struct {
	MAE                float64
	AccuracyPM1        float64
	AccuracyPM2        float64
	AccuracyPM3        float64
	TotalMatches       int
	CorrectPM2         int
	InvalidPredictions int
}

// EvaluationResult is the full outcome of matching predictions to fires.
type EvaluationResult struct {
	Matched []MatchedPrediction
	Metrics EvaluationMetrics
}

// FirstFires reduces fire records to each pile's earliest fire, dropping
// records without a fire_start. Results are sorted by pile id.
func FirstFires(records []FireRecord) []FireEvent {
	earliest := make(map[int]FireEvent)
	for _, rec := range records {
		if rec.FireStart == nil {
			continue
		}
		cur, ok := earliest[rec.PileID]
		if !ok || rec.FireStart.Before(cur.FireStart) {
			earliest[rec.PileID] = FireEvent{
				PileID:    rec.PileID,
				FireStart: *rec.FireStart,
				CoalGrade: rec.CoalGrade,
				Stockyard: rec.Stockyard,
			}
		}
	}

	events := make([]FireEvent, 0, len(earliest))
	for _, ev := range earliest {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].PileID < events[j].PileID })
	return events
}

// MatchPredictions pairs predictions with real fires on the same pile and
// computes accuracy metrics. A pair is a "match" (IsMatch) when the
// predicted fire date lands within ±2 days of the real one. Zero matched
// pairs yields all-zero metrics, not an error.
func MatchPredictions(preds []Prediction, fires []FireEvent, mode MatchMode) EvaluationResult {
	fireByPile := make(map[int]FireEvent, len(fires))
	for _, f := range fires {
		fireByPile[f.PileID] = f
	}

	var result EvaluationResult
	for _, p := range preds {
		fire, ok := fireByPile[p.PileID]
		if !ok {
			continue
		}
		if mode == MatchCausalOnly && !p.ObservationDate.Before(Day(fire.FireStart)) {
			result.Metrics.InvalidPredictions++
			continue
		}

		diff := DaysBetween(Day(p.PredictedFireDate), Day(fire.FireStart))
		absDiff := diff
		if absDiff < 0 {
			absDiff = -absDiff
		}
		result.Matched = append(result.Matched, MatchedPrediction{
			PileID:            p.PileID,
			Stockyard:         p.Stockyard,
			CoalGrade:         p.CoalGrade,
			ObservationDate:   p.ObservationDate,
			PredictedFireDate: p.PredictedFireDate,
			RealFireDate:      Day(fire.FireStart),
			DaysDifference:    diff,
			AbsDaysDifference: absDiff,
			IsMatch:           absDiff <= 2,
		})
	}

	result.Metrics = computeMetrics(result.Matched, result.Metrics.InvalidPredictions)
	return result
}

func computeMetrics(matched []MatchedPrediction, invalid int) EvaluationMetrics {
	m := EvaluationMetrics{InvalidPredictions: invalid, TotalMatches: len(matched)}
	if len(matched) == 0 {
		return m
	}

	absDiffs := make([]float64, len(matched))
	var within1, within2, within3 int
	for i, pair := range matched {
		absDiffs[i] = float64(pair.AbsDaysDifference)
		if pair.AbsDaysDifference <= 1 {
			within1++
		}
		if pair.AbsDaysDifference <= 2 {
			within2++
		}
		if pair.AbsDaysDifference <= 3 {
			within3++
		}
	}

	total := float64(len(matched))
	m.MAE = stat.Mean(absDiffs, nil)
	m.AccuracyPM1 = float64(within1) / total
	m.AccuracyPM2 = float64(within2) / total
	m.AccuracyPM3 = float64(within3) / total
	m.CorrectPM2 = within2
	return m
}

// RMSE over matched pairs; zero when nothing matched. Reported alongside MAE
// on the evaluation response.
func (r EvaluationResult) RMSE() float64 {
	if len(r.Matched) == 0 {
		return 0
	}
	var sumSq float64
	for _, pair := range r.Matched {
		d := float64(pair.DaysDifference)
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(r.Matched)))
}
