package http

import "time"

type predictionRequest struct {
	HorizonDays *int `json:"horizon_days"`
}

type pilePrediction struct {
	PileID            int                `json:"pile_id"`
	Stockyard         *int               `json:"stockyard"`
	CoalGrade         *string            `json:"coal_grade"`
	ObservationDate   string             `json:"observation_date"`
	PredictedFireDate string             `json:"predicted_fire_date"`
	DaysToFire        float64            `json:"predicted_days_to_fire"`
	DaysToFireRounded int                `json:"predicted_days_to_fire_rounded"`
	Confidence        string             `json:"confidence"`
	RiskLevel         string             `json:"risk_level"`
	Features          map[string]float64 `json:"features"`
}

type dateRangeInfo struct {
	DataStartDate    *string `json:"data_start_date,omitempty"`
	DataEndDate      *string `json:"data_end_date,omitempty"`
	DataYears        []int   `json:"data_years,omitempty"`
	WeatherStartDate *string `json:"weather_start_date,omitempty"`
	WeatherEndDate   *string `json:"weather_end_date,omitempty"`
	Years            []int   `json:"years,omitempty"`
	WeatherYears     []int   `json:"weather_years,omitempty"`
	PrimaryYear      *int    `json:"primary_year,omitempty"`
}

type predictionResponse struct {
	PredictionID      string           `json:"prediction_id"`
	Status            string           `json:"status"`
	Predictions       []pilePrediction `json:"predictions"`
	TotalPiles        int              `json:"total_piles"`
	HighRiskCount     int              `json:"high_risk_count"`
	CriticalRiskCount int              `json:"critical_risk_count"`
	CreatedAt         time.Time        `json:"created_at"`
	ProcessingTimeMs  float64          `json:"processing_time_ms"`
	DateRange         *dateRangeInfo   `json:"date_range,omitempty"`
}

type fileUploadResponse struct {
	UploadID         string    `json:"upload_id"`
	FileType         string    `json:"file_type"`
	Filename         string    `json:"filename"`
	RowCount         int       `json:"row_count"`
	ValidationStatus string    `json:"validation_status"`
	Errors           []string  `json:"errors"`
	Warnings         []string  `json:"warnings"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

type evaluationRequest struct {
	CausalOnly bool `json:"causal_only"`
}

type matchedPrediction struct {
	PileID            int     `json:"pile_id"`
	ObservationDate   string  `json:"observation_date"`
	PredictedFireDate string  `json:"predicted_fire_date"`
	RealFireDate      string  `json:"real_fire_date"`
	DaysDifference    int     `json:"days_difference"`
	AbsDaysDifference int     `json:"abs_days_difference"`
	IsMatch           bool    `json:"is_match"`
	Stockyard         *int    `json:"stockyard"`
	CoalGrade         *string `json:"coal_grade"`
}

type metricsResponse struct {
	EvaluationID       string              `json:"evaluation_id"`
	MAE                float64             `json:"mae"`
	RMSE               float64             `json:"rmse"`
	AccuracyPM1        float64             `json:"accuracy_pm1"`
	AccuracyPM2        float64             `json:"accuracy_pm2"`
	AccuracyPM3        float64             `json:"accuracy_pm3"`
	TotalPredictions   int                 `json:"total_predictions"`
	CorrectPM2         int                 `json:"correct_pm2"`
	InvalidPredictions int                 `json:"invalid_predictions"`
	EvaluatedAt        time.Time           `json:"evaluated_at"`
	MatchedPredictions []matchedPrediction `json:"matched_predictions"`
}

type modelInfoResponse struct {
	ModelType           string             `json:"model_type"`
	FeatureCount        int                `json:"feature_count"`
	NumericFeatures     []string           `json:"numeric_features"`
	CategoricalFeatures []string           `json:"categorical_features"`
	Metrics             map[string]float64 `json:"metrics"`
	ModelPath           string             `json:"model_path"`
}

type healthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	ModelLoaded bool      `json:"model_loaded"`
	Version     string    `json:"version"`
}

type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
