package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notes_service"

var (
	// HTTP request metrics
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// StatusCodeCategoryCounter counts responses by 2xx/4xx/5xx
	StatusCodeCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_status_category_total",
			Help:      "Total number of responses by status category (2xx, 4xx, 5xx)",
		},
		[]string{"category", "method", "path"},
	)

	// Authentication metrics
	AuthAttemptsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Total number of login attempts",
		},
	)

	AuthSuccessCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_success_total",
			Help:      "Total number of successful logins",
		},
	)

	AuthErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_errors_total",
			Help:      "Total number of rejected credentials and tokens by error kind",
		},
		[]string{"kind"},
	)

	// Database operation metrics
	DbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Duration of database operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Resource metrics
	NoteOperationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "note_operations_total",
			Help:      "Total number of note operations",
		},
		[]string{"operation"},
	)

	UserOperationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_operations_total",
			Help:      "Total number of user management operations",
		},
		[]string{"operation"},
	)

	// Quota metrics
	QuotaRejectionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Total number of note creations rejected by the plan limit",
		},
		[]string{"plan"},
	)

	TenantUpgradesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenant_upgrades_total",
			Help:      "Total number of tenants upgraded to the pro plan",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HttpRequestsTotal,
		HttpRequestDuration,
		StatusCodeCategoryCounter,
		AuthAttemptsCounter,
		AuthSuccessCounter,
		AuthErrorsCounter,
		DbOperationDuration,
		NoteOperationsCounter,
		UserOperationsCounter,
		QuotaRejectionsCounter,
		TenantUpgradesCounter,
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordAuthAttempt counts a login attempt and its outcome
func RecordAuthAttempt(success bool) {
	AuthAttemptsCounter.Inc()
	if success {
		AuthSuccessCounter.Inc()
	}
}

// RecordAuthError counts a rejected credential or token
func RecordAuthError(kind string) {
	AuthErrorsCounter.WithLabelValues(kind).Inc()
}

// RecordNoteOperation increments the counter for note operations
func RecordNoteOperation(operation string) {
	NoteOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordUserOperation increments the counter for user operations
func RecordUserOperation(operation string) {
	UserOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordQuotaRejection counts a note creation refused by plan
func RecordQuotaRejection(plan string) {
	QuotaRejectionsCounter.WithLabelValues(plan).Inc()
}

// RecordTenantUpgrade counts a successful plan upgrade
func RecordTenantUpgrade() {
	TenantUpgradesCounter.Inc()
}

// MetricsMiddleware records request count, duration and status category.
// Errors are handed to the error handler first so the recorded status is final.
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			method := c.Request().Method
			path := c.Path()
			status := c.Response().Status
			statusStr := strconv.Itoa(status)

			HttpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
			HttpRequestDuration.WithLabelValues(method, path, statusStr).Observe(time.Since(start).Seconds())
			if category := statusCategory(status); category != "" {
				StatusCodeCategoryCounter.WithLabelValues(category, method, path).Inc()
			}
			return nil
		}
	}
}

func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}

// GetPrometheusHandler returns an HTTP handler for exposing Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}
