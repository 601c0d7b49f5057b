package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-token-server/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	m.RecordOutcome("password", "success")
	m.RecordOutcome("password", "success")
	m.RecordOutcome("password", "invalid_grant")
	m.ObserveRequest(http.MethodPost, "/connect/token", http.StatusOK, 20*time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "token_grant_outcomes_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `token_grant_outcomes_total{grant_type="password",outcome="success"} 2`)
	require.Contains(t, body, `token_grant_outcomes_total{grant_type="password",outcome="invalid_grant"} 1`)
	require.Contains(t, body, `http_requests_total{method="POST",path="/connect/token",status="200"} 1`)
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := metrics.New(reg)
	require.NoError(t, err)
	second, err := metrics.New(reg)
	require.NoError(t, err)

	first.RecordOutcome("client_credentials", "success")
	second.RecordOutcome("client_credentials", "success")

	rec := httptest.NewRecorder()
	second.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), `token_grant_outcomes_total{grant_type="client_credentials",outcome="success"} 2`)
}
