package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Platform API calls made by the client, by endpoint and classified outcome (ok, app_error, transport_error).
	PlatformAPICallsTotal *prometheus.CounterVec

	// Platform API round-trip latency by endpoint and status class. Watch for: p95 growth against a local service.
	PlatformAPIDuration *prometheus.HistogramVec

	// Client errors by stable category (see client.CategorizeError).
	PlatformAPIErrorsTotal *prometheus.CounterVec

	// Contract scenario outcomes. Watch for: any result="fail".
	ContractScenariosTotal *prometheus.CounterVec

	// Contract scenario wall time.
	ContractScenarioDuration *prometheus.HistogramVec

	// Best-effort deletes issued for platforms a failed scenario left behind.
	ContractCleanupsTotal *prometheus.CounterVec

	// Service double: HTTP request rate.
	HTTPRequestsTotal *prometheus.CounterVec

	// Service double: HTTP request latency.
	HTTPRequestDuration *prometheus.HistogramVec

	// Service double: requests currently being served.
	HTTPRequestsInFlight prometheus.Gauge

	// Service double: rate limit denials.
	RateLimitDeniedTotal prometheus.Counter

	// Service double: store operation failures by backend and operation.
	StoreErrorsTotal *prometheus.CounterVec

	// Service double: platforms currently stored.
	PlatformsStored prometheus.Gauge

	// Service double: store circuit breaker state (0=closed, 1=open, 2=half_open). Watch for: sustained 1.
	StoreCircuitState *prometheus.GaugeVec

	// Service double: store circuit breaker transitions.
	StoreCircuitTransitionsTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	PlatformAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platformApiCallsTotal",
			Help: "Total number of platform API calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)
	PlatformAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platformApiDurationSeconds",
			Help:    "Platform API latency in seconds (per request)",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"endpoint", "status"},
	)
	PlatformAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platformApiErrorsTotal",
			Help: "Platform API client errors by category",
		},
		[]string{"category"},
	)
	ContractScenariosTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contractScenariosTotal",
			Help: "Contract scenario runs by scenario and result",
		},
		[]string{"scenario", "result"},
	)
	ContractScenarioDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contractScenarioDurationSeconds",
			Help:    "Contract scenario wall time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scenario"},
	)
	ContractCleanupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contractCleanupsTotal",
			Help: "Best-effort platform deletes issued after a scenario exit, by result",
		},
		[]string{"result"},
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
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storeErrorsTotal",
			Help: "Platform store errors by backend and operation",
		},
		[]string{"backend", "operation"},
	)
	PlatformsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "platformsStored",
			Help: "Number of platforms held by the service double",
		},
	)

	StoreCircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storeCircuitState",
			Help: "Store circuit breaker state by backend (0=closed, 1=open, 2=half_open)",
		},
		[]string{"backend"},
	)
	StoreCircuitTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storeCircuitTransitionsTotal",
			Help: "Store circuit breaker state transitions by backend",
		},
		[]string{"backend", "from", "to"},
	)

	registry.MustRegister(
		PlatformAPICallsTotal, PlatformAPIDuration, PlatformAPIErrorsTotal,
		ContractScenariosTotal, ContractScenarioDuration, ContractCleanupsTotal,
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		RateLimitDeniedTotal, StoreErrorsTotal, PlatformsStored,
		StoreCircuitState, StoreCircuitTransitionsTotal,
	)
}

// RecordScenario records one finished contract scenario.
func RecordScenario(name string, passed bool, seconds float64) {
	result := "pass"
	if !passed {
		result = "fail"
	}
	ContractScenariosTotal.WithLabelValues(name, result).Inc()
	ContractScenarioDuration.WithLabelValues(name).Observe(seconds)
}

// RecordStoreCircuitTransition counts a breaker transition and updates the state gauge.
func RecordStoreCircuitTransition(backend, from, to string, toValue int) {
	StoreCircuitTransitionsTotal.WithLabelValues(backend, from, to).Inc()
	StoreCircuitState.WithLabelValues(backend).Set(float64(toValue))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
