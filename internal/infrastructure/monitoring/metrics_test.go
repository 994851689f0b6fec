package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsTwice(t *testing.T) {
	// Private registries: a second collector must not panic on registration
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}

func TestRecorders(t *testing.T) {
	m := NewMetrics()

	m.RecordAcquireAttempt("primary", false)
	m.RecordAcquireAttempt("sh", true)
	m.RecordRefresh(true)
	m.RecordJob(true, 10*time.Millisecond)
	m.RecordJob(false, 10*time.Millisecond)
	m.RecordInstall("APM", true, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AcquireAttempts.WithLabelValues("primary", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AcquireAttempts.WithLabelValues("sh", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionRefreshes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionPrivileged))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InstallsTotal.WithLabelValues("APM", "success")))

	m.SetPrivileged(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionPrivileged))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordAcquireAttempt("sh", true)
		m.RecordRefresh(false)
		m.RecordJob(true, time.Millisecond)
		m.RecordInstall("KPM", false, time.Millisecond)
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
		m.IncWSConnections()
		m.DecWSConnections()
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/modules/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/modules/foo", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/modules/:id", "204")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "apcore_http_requests_total")
}
