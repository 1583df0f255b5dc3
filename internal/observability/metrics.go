package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// prediction service.
type Metrics struct {
	PredictionRequests   *prometheus.CounterVec // labels: outcome={success,schema_error,model_missing,error}
	PredictionsScored    prometheus.Counter
	PredictionDuration   prometheus.Histogram
	EvaluationRequests   *prometheus.CounterVec // labels: outcome={success,schema_error,model_missing,error}
	EvaluationMatches    prometheus.Counter
	ModelLoaded          prometheus.Gauge
	RowsAssembled        prometheus.Histogram
	UploadsReceived      *prometheus.CounterVec // labels: kind={fires,temperature,supplies,weather}
	UploadBytes          prometheus.Counter
	PredictionsPublished prometheus.Counter
	PublishErrors        prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PredictionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coalfire",
			Name:      "prediction_requests_total",
			Help:      "Prediction requests by outcome.",
		}, []string{"outcome"}),
		PredictionsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coalfire",
			Name:      "predictions_scored_total",
			Help:      "Total per-observation predictions generated.",
		}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coalfire",
			Name:      "prediction_duration_seconds",
			Help:      "Duration of a complete assemble-and-score cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		EvaluationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coalfire",
			Name:      "evaluation_requests_total",
			Help:      "Evaluation requests by outcome.",
		}, []string{"outcome"}),
		EvaluationMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coalfire",
			Name:      "evaluation_matches_total",
			Help:      "Total prediction-to-fire pairs matched during evaluation.",
		}),
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coalfire",
			Name:      "model_loaded",
			Help:      "1 when a model artifact is loaded, 0 otherwise.",
		}),
		RowsAssembled: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coalfire",
			Name:      "rows_assembled",
			Help:      "Number of feature rows produced per dataset assembly.",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
		}),
		UploadsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coalfire",
			Name:      "uploads_received_total",
			Help:      "CSV uploads by dataset kind.",
		}, []string{"kind"}),
		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coalfire",
			Name:      "upload_bytes_total",
			Help:      "Total bytes of CSV accepted for upload.",
		}),
		PredictionsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coalfire",
			Name:      "predictions_published_total",
			Help:      "Predictions published to the Kafka topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coalfire",
			Name:      "publish_errors_total",
			Help:      "Failed Kafka publish attempts.",
		}),
	}

	prometheus.MustRegister(
		m.PredictionRequests,
		m.PredictionsScored,
		m.PredictionDuration,
		m.EvaluationRequests,
		m.EvaluationMatches,
		m.ModelLoaded,
		m.RowsAssembled,
		m.UploadsReceived,
		m.UploadBytes,
		m.PredictionsPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PredictionRequests:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "coalfire", Name: "prediction_requests_total"}, []string{"outcome"}),
		PredictionsScored:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "coalfire", Name: "predictions_scored_total"}),
		PredictionDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "coalfire", Name: "prediction_duration_seconds"}),
		EvaluationRequests:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "coalfire", Name: "evaluation_requests_total"}, []string{"outcome"}),
		EvaluationMatches:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "coalfire", Name: "evaluation_matches_total"}),
		ModelLoaded:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "coalfire", Name: "model_loaded"}),
		RowsAssembled:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "coalfire", Name: "rows_assembled"}),
		UploadsReceived:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "coalfire", Name: "uploads_received_total"}, []string{"kind"}),
		UploadBytes:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "coalfire", Name: "upload_bytes_total"}),
		PredictionsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "coalfire", Name: "predictions_published_total"}),
		PublishErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "coalfire", Name: "publish_errors_total"}),
	}
}
