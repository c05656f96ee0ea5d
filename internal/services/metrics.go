package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	Registry          *prometheus.Registry
	ForecastRuns      *prometheus.CounterVec
	ForecastDuration  *prometheus.HistogramVec
	ForecastFallbacks prometheus.Counter
	Uploads           *prometheus.CounterVec
}

// NewMetrics registers the forecast collectors together with the Go runtime
// and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		ForecastRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_runs_total",
			Help: "Forecast runs by strategy and outcome.",
		}, []string{"strategy", "status"}),
		ForecastDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forecast_duration_seconds",
			Help:    "Wall time of forecast runs, from preparation to persistence.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"strategy"}),
		ForecastFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "forecast_fallbacks_total",
			Help: "Runs where the requested strategy was replaced by the fallback.",
		}),
		Uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Accepted uploads by validation outcome.",
		}, []string{"valid"}),
	}
}

func (m *Metrics) observeRun(strategy, status string, seconds float64) {
	if m == nil {
		return
	}
	m.ForecastRuns.WithLabelValues(strategy, status).Inc()
	if status == statusSuccess {
		m.ForecastDuration.WithLabelValues(strategy).Observe(seconds)
	}
}

func (m *Metrics) observeFallback() {
	if m == nil {
		return
	}
	m.ForecastFallbacks.Inc()
}

func (m *Metrics) observeUpload(valid bool) {
	if m == nil {
		return
	}
	label := "false"
	if valid {
		label = "true"
	}
	m.Uploads.WithLabelValues(label).Inc()
}

const (
	statusSuccess = "success"
	statusError   = "error"
)
