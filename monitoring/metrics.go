// Package monitoring exposes serving metrics in Prometheus format.
package monitoring

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mlserve/serving"
)

const namespace = "mlserve"

// Metrics collects prediction and model load metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	predictions       *prometheus.CounterVec
	predictionLatency *prometheus.HistogramVec
	loads             *prometheus.CounterVec
	loadLatency       prometheus.Histogram
}

// NewMetrics registers the serving metrics plus the Go runtime and process
// collectors. loaded reports how many models the cache holds; it may be nil.
func NewMetrics(loaded func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by model and response status code.",
		}, []string{"model", "code"}),
		predictionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Latency of prediction requests, including any model load they waited on.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Model load attempts by result.",
		}, []string{"result"}),
		loadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_load_duration_seconds",
			Help:      "Time spent fetching and decoding model artifacts.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}

	m.registry.MustRegister(
		m.predictions,
		m.predictionLatency,
		m.loads,
		m.loadLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if loaded != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "models_loaded",
			Help:      "Models currently held in the cache.",
		}, func() float64 { return float64(loaded()) }))
	}
	return m
}

// ObservePrediction records one prediction request. Callers pass an empty
// model for requests that never reached a loaded model, which keeps
// arbitrary ids out of the label set.
func (m *Metrics) ObservePrediction(model string, code int, d time.Duration) {
	if model == "" {
		model = "unresolved"
	}
	m.predictions.WithLabelValues(model, strconv.Itoa(code)).Inc()
	m.predictionLatency.WithLabelValues(model).Observe(d.Seconds())
}

// RecordLoad implements serving.LoadRecorder.
func (m *Metrics) RecordLoad(_ context.Context, event serving.LoadEvent) error {
	result := "success"
	if event.Err != nil {
		result = "failure"
	}
	m.loads.WithLabelValues(result).Inc()
	m.loadLatency.Observe(event.Duration.Seconds())
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
