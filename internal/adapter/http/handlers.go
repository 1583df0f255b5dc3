package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/coalfire-prediction/internal/adapter/uploads"
	"github.com/couchcryptid/coalfire-prediction/internal/domain"
	"github.com/couchcryptid/coalfire-prediction/internal/pipeline"
	"github.com/couchcryptid/coalfire-prediction/internal/service"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		ModelLoaded: s.svc.ModelLoaded(),
		Version:     Version,
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.ModelInfo()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modelInfoResponse{
		ModelType:           info.ModelType,
		FeatureCount:        info.FeatureCount,
		NumericFeatures:     info.NumericFeatures,
		CategoricalFeatures: info.CategoricalFeatures,
		Metrics:             info.Metrics,
		ModelPath:           info.ModelPath,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	kind, err := uploads.ParseKind(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed or oversized multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing multipart field \"file\"")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "reading upload failed")
		return
	}

	rowCount, err := validateCSV(kind, data)
	if err != nil {
		var schemaErr *domain.SchemaError
		if errors.As(err, &schemaErr) {
			writeError(w, http.StatusBadRequest, "schema_error", schemaErr.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_csv", err.Error())
		return
	}

	up, err := s.registry.Save(kind, header.Filename, rowCount, data)
	if err != nil {
		s.logger.Error("registering upload failed", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "storing upload failed")
		return
	}

	s.metrics.UploadsReceived.WithLabelValues(string(kind)).Inc()
	s.metrics.UploadBytes.Add(float64(up.SizeBytes))
	s.logger.Info("upload registered",
		"upload_id", up.ID, "kind", kind, "filename", up.Filename, "rows", up.RowCount)

	resp := fileUploadResponse{
		UploadID:         up.ID,
		FileType:         string(kind),
		Filename:         up.Filename,
		RowCount:         up.RowCount,
		ValidationStatus: "success",
		Errors:           []string{},
		Warnings:         []string{},
		UploadedAt:       up.UploadedAt,
	}
	if rowCount == 0 {
		resp.ValidationStatus = "warning"
		resp.Warnings = append(resp.Warnings, "file contains no data rows")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	horizon := s.cfg.DefaultHorizonDays
	if req.HorizonDays != nil {
		horizon = *req.HorizonDays
	}
	if horizon < s.cfg.MinHorizonDays || horizon > s.cfg.MaxHorizonDays {
		writeError(w, http.StatusBadRequest, "invalid_request", "horizon_days outside allowed range")
		return
	}

	paths, err := s.sourcePaths(false)
	if err != nil {
		s.metrics.PredictionRequests.WithLabelValues(outcomeFor(err)).Inc()
		s.writeServiceError(w, err)
		return
	}

	started := time.Now()
	preds, dateRange, err := s.svc.Predict(r.Context(), paths, horizon)
	if err != nil {
		s.metrics.PredictionRequests.WithLabelValues(outcomeFor(err)).Inc()
		s.writeServiceError(w, err)
		return
	}
	s.metrics.PredictionRequests.WithLabelValues("success").Inc()

	var highRisk, criticalRisk int
	out := make([]pilePrediction, len(preds))
	for i, p := range preds {
		if p.RiskLevel == domain.RiskHigh || p.RiskLevel == domain.RiskCritical {
			highRisk++
		}
		if p.RiskLevel == domain.RiskCritical {
			criticalRisk++
		}
		out[i] = pilePrediction{
			PileID:            p.PileID,
			Stockyard:         p.Stockyard,
			CoalGrade:         p.CoalGrade,
			ObservationDate:   p.ObservationDate.Format("2006-01-02"),
			PredictedFireDate: p.PredictedFireDate.Format("2006-01-02"),
			DaysToFire:        p.DaysToFire,
			DaysToFireRounded: p.DaysToFireRounded,
			Confidence:        string(p.Confidence),
			RiskLevel:         string(p.RiskLevel),
			Features:          p.Features,
		}
	}

	writeJSON(w, http.StatusOK, predictionResponse{
		PredictionID:      uuid.New().String(),
		Status:            "completed",
		Predictions:       out,
		TotalPiles:        len(out),
		HighRiskCount:     highRisk,
		CriticalRiskCount: criticalRisk,
		CreatedAt:         time.Now().UTC(),
		ProcessingTimeMs:  float64(time.Since(started).Milliseconds()),
		DateRange:         toDateRangeInfo(dateRange),
	})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	paths, err := s.sourcePaths(true)
	if err != nil {
		s.metrics.EvaluationRequests.WithLabelValues(outcomeFor(err)).Inc()
		s.writeServiceError(w, err)
		return
	}

	result, err := s.svc.Evaluate(r.Context(), paths, req.CausalOnly)
	if err != nil {
		s.metrics.EvaluationRequests.WithLabelValues(outcomeFor(err)).Inc()
		s.writeServiceError(w, err)
		return
	}
	s.metrics.EvaluationRequests.WithLabelValues("success").Inc()

	matched := make([]matchedPrediction, len(result.Matched))
	for i, m := range result.Matched {
		matched[i] = matchedPrediction{
			PileID:            m.PileID,
			ObservationDate:   m.ObservationDate.Format("2006-01-02"),
			PredictedFireDate: m.PredictedFireDate.Format("2006-01-02"),
			RealFireDate:      m.RealFireDate.Format("2006-01-02"),
			DaysDifference:    m.DaysDifference,
			AbsDaysDifference: m.AbsDaysDifference,
			IsMatch:           m.IsMatch,
			Stockyard:         m.Stockyard,
			CoalGrade:         m.CoalGrade,
		}
	}

	writeJSON(w, http.StatusOK, metricsResponse{
		EvaluationID:       uuid.New().String(),
		MAE:                result.Metrics.MAE,
		RMSE:               result.RMSE(),
		AccuracyPM1:        result.Metrics.AccuracyPM1,
		AccuracyPM2:        result.Metrics.AccuracyPM2,
		AccuracyPM3:        result.Metrics.AccuracyPM3,
		TotalPredictions:   result.Metrics.TotalMatches,
		CorrectPM2:         result.Metrics.CorrectPM2,
		InvalidPredictions: result.Metrics.InvalidPredictions,
		EvaluatedAt:        time.Now().UTC(),
		MatchedPredictions: matched,
	})
}

// sourcePaths resolves the CSV files for a run from the upload registry:
// the latest supplies and temperature uploads, every weather upload, and
// (for evaluation) the latest fires upload. Missing datasets come back as
// one SchemaError naming them all.
func (s *Server) sourcePaths(includeFires bool) (service.SourcePaths, error) {
	var paths service.SourcePaths
	var missing []string

	supplies, err := s.registry.Latest(uploads.KindSupplies)
	if err != nil {
		return paths, err
	}
	if supplies == nil {
		missing = append(missing, "supplies")
	} else {
		paths.SuppliesPath = supplies.Path
	}

	temperature, err := s.registry.Latest(uploads.KindTemperature)
	if err != nil {
		return paths, err
	}
	if temperature == nil {
		missing = append(missing, "temperature")
	} else {
		paths.TemperaturePath = temperature.Path
	}

	weather, err := s.registry.All(uploads.KindWeather)
	if err != nil {
		return paths, err
	}
	if len(weather) == 0 {
		missing = append(missing, "weather")
	}
	for _, up := range weather {
		paths.WeatherPaths = append(paths.WeatherPaths, up.Path)
	}

	if includeFires {
		fires, err := s.registry.Latest(uploads.KindFires)
		if err != nil {
			return paths, err
		}
		if fires == nil {
			missing = append(missing, "fires")
		} else {
			paths.FiresPath = fires.Path
		}
	}

	if len(missing) > 0 {
		return paths, &domain.SchemaError{Source: "uploads", Missing: missing}
	}
	return paths, nil
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var schemaErr *domain.SchemaError
	switch {
	case errors.Is(err, service.ErrModelNotLoaded):
		writeError(w, http.StatusServiceUnavailable, "model_not_loaded", "no model artifact is loaded")
	case errors.As(err, &schemaErr):
		writeError(w, http.StatusBadRequest, "schema_error", schemaErr.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}

func outcomeFor(err error) string {
	var schemaErr *domain.SchemaError
	switch {
	case errors.Is(err, service.ErrModelNotLoaded):
		return "model_missing"
	case errors.As(err, &schemaErr):
		return "schema_error"
	default:
		return "error"
	}
}

// decodeBody parses an optional JSON body; an empty body leaves dst zeroed.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == io.EOF {
		return nil
	}
	return err
}

// validateCSV decodes the payload with the kind's decoder, returning the
// decoded row count. Schema problems surface before the file is registered.
func validateCSV(kind uploads.Kind, data []byte) (int, error) {
	switch kind {
	case uploads.KindFires:
		records, err := pipeline.DecodeFires(bytes.NewReader(data))
		return len(records), err
	case uploads.KindTemperature:
		records, err := pipeline.DecodeTemperature(bytes.NewReader(data))
		return len(records), err
	case uploads.KindSupplies:
		records, err := pipeline.DecodeSupplies(bytes.NewReader(data))
		return len(records), err
	default:
		records, err := pipeline.DecodeWeather(bytes.NewReader(data))
		return len(records), err
	}
}

func toDateRangeInfo(dr *service.DateRange) *dateRangeInfo {
	if dr == nil {
		return nil
	}
	fmtDate := func(t *time.Time) *string {
		if t == nil {
			return nil
		}
		s := t.Format("2006-01-02")
		return &s
	}
	info := &dateRangeInfo{
		DataStartDate:    fmtDate(dr.DataStart),
		DataEndDate:      fmtDate(dr.DataEnd),
		DataYears:        dr.DataYears,
		WeatherStartDate: fmtDate(dr.WeatherStart),
		WeatherEndDate:   fmtDate(dr.WeatherEnd),
		Years:            dr.Years,
		WeatherYears:     dr.Years,
		PrimaryYear:      dr.PrimaryYear,
	}
	return info
}
