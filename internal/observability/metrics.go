package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Inbound request rate by route template. Watch for: 5xx share, sudden drops.
	HTTPRequestsTotal *prometheus.CounterVec

	// Inbound latency. Dominated by the upstream call on /weather routes.
	HTTPRequestDuration *prometheus.HistogramVec

	// Requests currently being served.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream provider calls by operation (current, forecast, search) and status class.
	WeatherAPICallsTotal *prometheus.CounterVec

	// Upstream latency. There is no client timeout by default, so watch the tail.
	WeatherAPIDuration *prometheus.HistogramVec

	// Upstream failures by operation and client.ErrorCategory.
	WeatherAPIErrorsTotal *prometheus.CounterVec

	// Requests rejected by parameter validation before any upstream call.
	ValidationRejectsTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of weather provider calls",
		},
		[]string{"operation", "status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "Weather provider latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation", "status"},
	)
	WeatherAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiErrorsTotal",
			Help: "Weather provider failures by operation and error category",
		},
		[]string{"operation", "category"},
	)
	ValidationRejectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validationRejectsTotal",
			Help: "Requests rejected with 400 before contacting the weather provider",
		},
		[]string{"route", "param"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIErrorsTotal,
		ValidationRejectsTotal,
	)
}

// StatusLabel maps an HTTP status code to the status label used by upstream call metrics.
func StatusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
