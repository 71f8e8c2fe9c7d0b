package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.GuardDecisionsTotal.WithLabelValues("redirect").Inc()
	m.SessionEventsTotal.WithLabelValues("login").Add(2)

	require.Equal(t, 1.0, testutil.ToFloat64(m.GuardDecisionsTotal.WithLabelValues("redirect")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `workout_web_guard_decisions_total{decision="redirect"} 1`))
	require.True(t, strings.Contains(string(body), `workout_web_session_events_total{event="login"} 2`))
}

func TestNewWithNilRegistry(t *testing.T) {
	m := New(nil)
	require.NotNil(t, m.Registry())
}
