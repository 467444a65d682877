package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate by route template.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency. Watch p95 on /api/search; it includes upstream calls.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// OpenWeatherMap calls per endpoint (geocode, current, forecast).
	WeatherAPICallsTotal *prometheus.CounterVec

	// OpenWeatherMap latency per endpoint.
	WeatherAPIDuration *prometheus.HistogramVec

	// Retry attempts. Zero unless reliability.retry_max_attempts > 1.
	WeatherAPIRetriesTotal *prometheus.CounterVec

	// Upstream errors by stable category (see client.CategorizeError).
	WeatherAPIErrorsTotal *prometheus.CounterVec

	// Dashboard lookups by kind (search, coords, default, refresh) and outcome.
	LookupsTotal *prometheus.CounterVec

	// Lookups whose result was dropped because a newer lookup was issued.
	LookupsSupersededTotal prometheus.Counter

	// Theme toggles by resulting theme.
	ThemeTogglesTotal *prometheus.CounterVec

	// Toasts shown by message kind.
	ToastsTotal *prometheus.CounterVec

	// Connected WebSocket viewers.
	WebSocketClients prometheus.Gauge

	// Preference store errors by backend and operation.
	KVErrorsTotal *prometheus.CounterVec

	// Rate limit denials on /api.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker state: 0 closed, 1 open, 2 half-open.
	CircuitBreakerState prometheus.Gauge

	// Circuit breaker transitions.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	registerOnce sync.Once
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
			Help:    "HTTP request latency in seconds",
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
			Help: "Total number of OpenWeatherMap API calls",
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiRetriesTotal",
			Help: "Total number of retry attempts for weather API calls",
		},
		[]string{"endpoint"},
	)
	WeatherAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiErrorsTotal",
			Help: "Weather API errors by category",
		},
		[]string{"endpoint", "category"},
	)
	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboardLookupsTotal",
			Help: "Dashboard weather lookups by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	LookupsSupersededTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboardLookupsSupersededTotal",
			Help: "Lookup results discarded because a newer lookup was issued",
		},
	)
	ThemeTogglesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "themeTogglesTotal",
			Help: "Theme toggles by resulting theme",
		},
		[]string{"theme"},
	)
	ToastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboardToastsTotal",
			Help: "Error toasts shown",
		},
		[]string{"kind"},
	)
	WebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocketClients",
			Help: "Connected WebSocket viewers",
		},
	)
	KVErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvErrorsTotal",
			Help: "Preference store errors",
		},
		[]string{"backend", "op"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CircuitBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Weather API circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Weather API circuit breaker transitions",
		},
		[]string{"from", "to"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIRetriesTotal, WeatherAPIErrorsTotal,
		LookupsTotal, LookupsSupersededTotal, ThemeTogglesTotal, ToastsTotal,
		WebSocketClients, KVErrorsTotal, RateLimitDeniedTotal,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
	)
}

// RegisterUptimeGauge exposes process uptime computed by fn. Registered once.
func RegisterUptimeGauge(fn func() float64) {
	registerOnce.Do(func() {
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "uptimeSeconds",
				Help: "Seconds since the dashboard started",
			},
			fn,
		))
	})
}

// RecordCircuitBreakerTransition updates the breaker gauge and transition counter.
func RecordCircuitBreakerTransition(from, to string, toValue int) {
	CircuitBreakerTransitionsTotal.WithLabelValues(from, to).Inc()
	CircuitBreakerState.Set(float64(toValue))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
