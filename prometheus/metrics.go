package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "api_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Signup counters
	SignupCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "api_signup_total",
			Help: "Total number of account signups",
		},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "missing_token", "invalid_token", "tenant_inactive", ...
	)

	// Weather sync counters
	WeatherSyncCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_weather_sync_total",
			Help: "Total number of weather sync requests",
		},
		[]string{"result"}, // "synced", "skipped", "failed"
	)

	WeatherProviderCallCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "api_weather_provider_calls_total",
			Help: "Total number of calls to the external forecast provider",
		},
	)

	// Upload counters
	UploadCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_uploads_total",
			Help: "Total number of file uploads",
		},
		[]string{"scope", "result"}, // scope "photo" or "avatar"
	)

	// Realtime subscriber events
	RealtimeEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_realtime_events_total",
			Help: "Total number of realtime change events delivered",
		},
		[]string{"table"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// Realtime subscribers currently connected
	RealtimeSubscribersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_realtime_subscribers",
			Help: "Number of currently connected realtime subscribers",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_info",
			Help: "Information about the API service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(SignupCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(WeatherSyncCounter)
	prometheus.MustRegister(WeatherProviderCallCounter)
	prometheus.MustRegister(UploadCounter)
	prometheus.MustRegister(RealtimeEventCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(RealtimeSubscribersGauge)
	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// RecordAuthError increments the auth error counter for the given type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			return err
		}
	}
}
