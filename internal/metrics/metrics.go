package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPLatency     *prometheus.HistogramVec
	RecalcPasses    prometheus.Counter
	RecalcFailures  prometheus.Counter
	RecalcUpdated   prometheus.Counter
	Predictions     *prometheus.CounterVec
	CustomersJoined *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by route and status code.",
			}, []string{"route", "code"}),
			HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency distribution for HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
			RecalcPasses: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recalculation_passes_total",
				Help:      "Total wait-time recalculation passes completed.",
			}),
			RecalcFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recalculation_failures_total",
				Help:      "Total wait-time recalculation passes that failed.",
			}),
			RecalcUpdated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recalculation_rows_updated_total",
				Help:      "Total customer rows updated by recalculation passes.",
			}),
			Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wait_predictions_total",
				Help:      "Total wait-time predictions by source.",
			}, []string{"source"}),
			CustomersJoined: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "customers_joined_total",
				Help:      "Total customers added to the queue by service type.",
			}, []string{"queue_type"}),
		}

		prometheus.MustRegister(
			metricsInstance.HTTPRequests,
			metricsInstance.HTTPLatency,
			metricsInstance.RecalcPasses,
			metricsInstance.RecalcFailures,
			metricsInstance.RecalcUpdated,
			metricsInstance.Predictions,
			metricsInstance.CustomersJoined,
		)
	})
	return metricsInstance
}
