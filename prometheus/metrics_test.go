package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddlewareRecordsFinalStatus(t *testing.T) {
	e := echo.New()
	e.Use(MetricsMiddleware())
	e.GET("/metrics-test/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "missing")
	})

	before := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues(http.MethodGet, "/metrics-test/:id", "404"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics-test/42", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	after := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues(http.MethodGet, "/metrics-test/:id", "404"))
	assert.Equal(t, before+1, after)
}

func TestStatusCategory(t *testing.T) {
	assert.Equal(t, "2xx", statusCategory(201))
	assert.Equal(t, "4xx", statusCategory(403))
	assert.Equal(t, "5xx", statusCategory(500))
	assert.Equal(t, "", statusCategory(304))
}

func TestRecordQuotaRejection(t *testing.T) {
	before := testutil.ToFloat64(QuotaRejectionsCounter.WithLabelValues("free"))
	RecordQuotaRejection("free")
	assert.Equal(t, before+1, testutil.ToFloat64(QuotaRejectionsCounter.WithLabelValues("free")))
}
