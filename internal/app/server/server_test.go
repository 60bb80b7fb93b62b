package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stationhr/internal/domain/leave"
	"stationhr/internal/domain/leave/leavetest"
	"stationhr/internal/platform/config"
	"stationhr/internal/platform/jobs"
	"stationhr/internal/platform/metrics"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func testRouter(db Pinger) (http.Handler, *metrics.Collector) {
	svc := leave.NewService(leavetest.NewMemory(), leave.Options{Now: func() time.Time {
		return time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	}})
	collector := metrics.New()
	cfg := config.Config{
		MaxBodyBytes:       4096,
		MetricsEnabled:     true,
		RateLimitPerMinute: 100,
		CORSAllowedOrigins: []string{"https://hr.example.org"},
		JWTSecret:          "secret",
	}
	return NewRouter(Deps{Config: cfg, Leave: svc, Jobs: jobs.New(nil, svc, collector), Metrics: collector, DB: db}), collector
}

func TestHealthAndReadiness(t *testing.T) {
	router, _ := testRouter(pinger{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down, _ := testRouter(pinger{err: errors.New("connection refused")})
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	router, _ := testRouter(pinger{})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/leave/balances", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"requestsTotal":1`)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := testRouter(pinger{})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/leave/requests", nil)
	req.Header.Set("Origin", "https://hr.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "https://hr.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}
