package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/coalfire-prediction/internal/adapter/uploads"
	"github.com/couchcryptid/coalfire-prediction/internal/config"
	"github.com/couchcryptid/coalfire-prediction/internal/domain"
	"github.com/couchcryptid/coalfire-prediction/internal/model"
	"github.com/couchcryptid/coalfire-prediction/internal/observability"
	"github.com/couchcryptid/coalfire-prediction/internal/service"
)

const (
	temperatureCSV = `pile_id,coal_grade,temp_max,date
101,Д,45.0,2024-04-25
101,Д,55.0,2024-04-26
101,Д,65.0,2024-04-27
102,Г,30.0,2024-04-26
`
	suppliesCSV = `pile_id,coal_grade,stockyard,unload_time,load_time,to_stock_tons,from_stock_tons
101,Д,2,2024-04-25 08:00:00,,1000,
101,Д,2,2024-04-27 09:00:00,2024-04-27 18:00:00,500,200
102,Г,1,2024-04-26 10:00:00,,800,
`
	weatherCSV = `dt,temp_air,humidity,precip,wind_avg
2024-04-25,10.0,50,0.0,3.0
2024-04-26,12.0,55,1.2,4.0
2024-04-27,14.0,60,0.0,5.0
`
	firesCSV = `pile_id,fire_start
101,2024-04-29 06:00:00
`
)

func testArtifact() *model.Artifact {
	return &model.Artifact{
		Model: model.Regressor{
			Intercept:    10.0,
			Coefficients: map[string]float64{"temp_max_mean": -0.1},
			CategoricalWeights: map[string]map[string]float64{
				"coal_grade": {"Д": -1.0, "Г": 2.0},
			},
		},
		FeatureCols: []string{"temp_max_mean", "stock_tons", "coal_grade"},
		NumCols:     []string{"temp_max_mean", "stock_tons"},
		CatCols:     []string{"coal_grade"},
		Metrics:     map[string]float64{"mae": 2.4},
		ModelType:   "linear",
	}
}

func newTestServer(t *testing.T, withModel bool) *Server {
	t.Helper()

	dir := t.TempDir()
	registry, err := uploads.Open(filepath.Join(dir, "uploads.db"), filepath.Join(dir, "files"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = registry.Close() })

	var predictor *model.Predictor
	if withModel {
		predictor = model.NewPredictor(testArtifact())
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	svc := service.New(predictor, "models/test.json", domain.DefaultRiskThresholds(), nil, logger, metrics)

	cfg := &config.Config{
		HTTPAddr:           ":0",
		MaxUploadBytes:     1 << 20,
		DefaultHorizonDays: 3,
		MinHorizonDays:     1,
		MaxHorizonDays:     30,
	}
	return NewServer(cfg, svc, registry, metrics, logger)
}

func doRequest(srv *Server, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func uploadCSV(t *testing.T, srv *Server, kind, filename, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/csv?type="+kind, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func uploadAllSources(t *testing.T, srv *Server, withFires bool) {
	t.Helper()
	require.Equal(t, http.StatusOK, uploadCSV(t, srv, "temperature", "temperature.csv", temperatureCSV).Code)
	require.Equal(t, http.StatusOK, uploadCSV(t, srv, "supplies", "supplies.csv", suppliesCSV).Code)
	require.Equal(t, http.StatusOK, uploadCSV(t, srv, "weather", "weather.csv", weatherCSV).Code)
	if withFires {
		require.Equal(t, http.StatusOK, uploadCSV(t, srv, "fires", "fires.csv", firesCSV).Code)
	}
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestLivenessAndReadiness(t *testing.T) {
	t.Run("liveness is unconditional", func(t *testing.T) {
		srv := newTestServer(t, false)
		rec := doRequest(srv, http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready without a model", func(t *testing.T) {
		srv := newTestServer(t, false)
		rec := doRequest(srv, http.MethodGet, "/readyz", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("ready with a model", func(t *testing.T) {
		srv := newTestServer(t, true)
		rec := doRequest(srv, http.MethodGet, "/readyz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, true)
	rec := doRequest(srv, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[healthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.ModelLoaded)
	assert.Equal(t, Version, resp.Version)
}

func TestHandleModelInfo(t *testing.T) {
	t.Run("loaded", func(t *testing.T) {
		srv := newTestServer(t, true)
		rec := doRequest(srv, http.MethodGet, "/api/model/info", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeJSON[modelInfoResponse](t, rec)
		assert.Equal(t, "linear", resp.ModelType)
		assert.Equal(t, 3, resp.FeatureCount)
		assert.Equal(t, []string{"coal_grade"}, resp.CategoricalFeatures)
		assert.Equal(t, 2.4, resp.Metrics["mae"])
	})

	t.Run("not loaded", func(t *testing.T) {
		srv := newTestServer(t, false)
		rec := doRequest(srv, http.MethodGet, "/api/model/info", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		resp := decodeJSON[errorResponse](t, rec)
		assert.Equal(t, "model_not_loaded", resp.Error)
	})
}

func TestHandleUpload(t *testing.T) {
	srv := newTestServer(t, true)

	t.Run("success", func(t *testing.T) {
		rec := uploadCSV(t, srv, "temperature", "temps.csv", temperatureCSV)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decodeJSON[fileUploadResponse](t, rec)
		assert.NotEmpty(t, resp.UploadID)
		assert.Equal(t, "temperature", resp.FileType)
		assert.Equal(t, "temps.csv", resp.Filename)
		assert.Equal(t, 4, resp.RowCount)
		assert.Equal(t, "success", resp.ValidationStatus)
		assert.Empty(t, resp.Errors)
	})

	t.Run("unknown kind", func(t *testing.T) {
		rec := uploadCSV(t, srv, "thermal", "x.csv", temperatureCSV)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeJSON[errorResponse](t, rec)
		assert.Equal(t, "invalid_request", resp.Error)
	})

	t.Run("schema error", func(t *testing.T) {
		rec := uploadCSV(t, srv, "temperature", "bad.csv", "coal_grade,date\nД,2024-04-25\n")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeJSON[errorResponse](t, rec)
		assert.Equal(t, "schema_error", resp.Error)
		assert.Contains(t, resp.Message, "pile_id")
	})

	t.Run("header-only file warns", func(t *testing.T) {
		rec := uploadCSV(t, srv, "temperature", "empty.csv", "pile_id,date,temp_max\n")
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[fileUploadResponse](t, rec)
		assert.Equal(t, "warning", resp.ValidationStatus)
		assert.Equal(t, 0, resp.RowCount)
		assert.NotEmpty(t, resp.Warnings)
	})

	t.Run("missing file field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("notfile", "data"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/upload/csv?type=fires", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandlePredict(t *testing.T) {
	srv := newTestServer(t, true)
	uploadAllSources(t, srv, false)

	rec := doRequest(srv, http.MethodPost, "/api/predict", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeJSON[predictionResponse](t, rec)
	assert.NotEmpty(t, resp.PredictionID)
	assert.Equal(t, "completed", resp.Status)
	require.Len(t, resp.Predictions, 4)
	assert.Equal(t, 4, resp.TotalPiles)
	assert.Equal(t, 3, resp.HighRiskCount, "high count includes critical piles")
	assert.Equal(t, 1, resp.CriticalRiskCount)

	t.Run("prediction detail", func(t *testing.T) {
		first := resp.Predictions[0]
		assert.Equal(t, 101, first.PileID)
		assert.Equal(t, "2024-04-25", first.ObservationDate)
		assert.Equal(t, "2024-04-29", first.PredictedFireDate)
		assert.InDelta(t, 4.5, first.DaysToFire, 1e-9)
		assert.Equal(t, 4, first.DaysToFireRounded)
		assert.Equal(t, "high", first.RiskLevel)
		assert.Equal(t, "high", first.Confidence)
		assert.Equal(t, 1300.0, first.Features["stock_tons"])
	})

	t.Run("date range", func(t *testing.T) {
		require.NotNil(t, resp.DateRange)
		require.NotNil(t, resp.DateRange.DataStartDate)
		assert.Equal(t, "2024-04-25", *resp.DateRange.DataStartDate)
		assert.Equal(t, "2024-04-27", *resp.DateRange.DataEndDate)
		require.NotNil(t, resp.DateRange.PrimaryYear)
		assert.Equal(t, 2024, *resp.DateRange.PrimaryYear)
	})
}

func TestHandlePredictCustomHorizon(t *testing.T) {
	srv := newTestServer(t, true)
	uploadAllSources(t, srv, false)

	body := strings.NewReader(`{"horizon_days": 7}`)
	rec := doRequest(srv, http.MethodPost, "/api/predict", body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlePredictErrors(t *testing.T) {
	t.Run("no uploads", func(t *testing.T) {
		srv := newTestServer(t, true)
		rec := doRequest(srv, http.MethodPost, "/api/predict", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decodeJSON[errorResponse](t, rec)
		assert.Equal(t, "schema_error", resp.Error)
		assert.Contains(t, resp.Message, "supplies")
		assert.Contains(t, resp.Message, "temperature")
		assert.Contains(t, resp.Message, "weather")
	})

	t.Run("model not loaded", func(t *testing.T) {
		srv := newTestServer(t, false)
		uploadAllSources(t, srv, false)
		rec := doRequest(srv, http.MethodPost, "/api/predict", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		resp := decodeJSON[errorResponse](t, rec)
		assert.Equal(t, "model_not_loaded", resp.Error)
	})

	t.Run("horizon out of range", func(t *testing.T) {
		srv := newTestServer(t, true)
		uploadAllSources(t, srv, false)
		rec := doRequest(srv, http.MethodPost, "/api/predict", strings.NewReader(`{"horizon_days": 31}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := newTestServer(t, true)
		rec := doRequest(srv, http.MethodPost, "/api/predict", strings.NewReader(`{"horizon_days": `))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleEvaluate(t *testing.T) {
	srv := newTestServer(t, true)
	uploadAllSources(t, srv, true)

	rec := doRequest(srv, http.MethodPost, "/api/evaluate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeJSON[metricsResponse](t, rec)
	assert.NotEmpty(t, resp.EvaluationID)
	assert.InDelta(t, 1.0/3.0, resp.MAE, 1e-9)
	assert.InDelta(t, 1.0, resp.AccuracyPM1, 1e-9)
	assert.Equal(t, 3, resp.TotalPredictions)
	assert.Equal(t, 3, resp.CorrectPM2)
	assert.Equal(t, 0, resp.InvalidPredictions)
	require.Len(t, resp.MatchedPredictions, 3)

	first := resp.MatchedPredictions[0]
	assert.Equal(t, 101, first.PileID)
	assert.Equal(t, "2024-04-29", first.RealFireDate)
	assert.True(t, first.IsMatch)

	t.Run("causal only", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/api/evaluate", strings.NewReader(`{"causal_only": true}`))
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[metricsResponse](t, rec)
		assert.Equal(t, 3, resp.TotalPredictions)
	})
}

func TestHandleEvaluateRequiresFires(t *testing.T) {
	srv := newTestServer(t, true)
	uploadAllSources(t, srv, false)

	rec := doRequest(srv, http.MethodPost, "/api/evaluate", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeJSON[errorResponse](t, rec)
	assert.Equal(t, "schema_error", resp.Error)
	assert.Contains(t, resp.Message, "fires")
}

func TestMethodRouting(t *testing.T) {
	srv := newTestServer(t, true)

	rec := doRequest(srv, http.MethodGet, "/api/predict", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
