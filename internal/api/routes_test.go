package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/irfndi/forecast-ai-go/internal/config"
	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

type stubJobs struct{}

func (stubJobs) Upload(context.Context, string, []byte) (*models.UploadResponse, error) {
	return &models.UploadResponse{JobID: "job-1"}, nil
}

func (stubJobs) Job(_ context.Context, jobID string) (*models.Job, error) {
	return &models.Job{JobID: jobID, Status: models.JobPending}, nil
}

func (stubJobs) RecentJobs(context.Context, int) ([]models.Job, error) {
	return []models.Job{{JobID: "job-1"}}, nil
}

func (stubJobs) JobWithForecast(_ context.Context, jobID string) (*models.JobWithForecast, error) {
	return &models.JobWithForecast{Job: &models.Job{JobID: jobID}}, nil
}

func (stubJobs) DeleteJob(context.Context, string) error { return nil }

type stubForecasts struct{}

func (stubForecasts) Run(_ context.Context, req models.ForecastRequest) (*models.ForecastRecord, error) {
	return &models.ForecastRecord{JobID: req.JobID, ModelType: "decomposition"}, nil
}

func (stubForecasts) LatestForecast(context.Context, string) (*models.ForecastRecord, error) {
	return nil, utils.ErrNotFound
}

type stubInsights struct{}

func (stubInsights) Get(_ context.Context, jobID string) (*models.InsightsBundle, error) {
	return &models.InsightsBundle{JobID: jobID}, nil
}

func (stubInsights) Regenerate(_ context.Context, jobID string) (*models.InsightsBundle, error) {
	return &models.InsightsBundle{JobID: jobID}, nil
}

type stubAnalytics struct{}

func (stubAnalytics) Anomalies(_ context.Context, jobID, method string, _ float64) (*models.AnomalyReport, error) {
	return &models.AnomalyReport{JobID: jobID, Method: method, Anomalies: []models.Anomaly{}}, nil
}

func (stubAnalytics) Recommendations(_ context.Context, jobID string) (*models.RecommendationReport, error) {
	return &models.RecommendationReport{JobID: jobID}, nil
}

func (stubAnalytics) Scenario(context.Context, string, models.ScenarioParams) (*models.ScenarioResult, error) {
	return &models.ScenarioResult{ScenarioName: "Price +0.0%, Volume +0.0%"}, nil
}

type okChecker struct{}

func (okChecker) HealthCheck(context.Context) error { return nil }

func newRouter(t *testing.T, security config.SecurityConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "forecast_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	router := gin.New()
	SetupRoutes(router, Dependencies{
		Jobs:      stubJobs{},
		Forecasts: stubForecasts{},
		Insights:  stubInsights{},
		Analytics: stubAnalytics{},
		Database:  okChecker{},
		Redis:     okChecker{},
		Metrics:   reg,
		Security:  security,
		Version:   "test",
	})
	return router
}

func do(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupRoutes_Open(t *testing.T) {
	router := newRouter(t, config.SecurityConfig{})

	tests := []struct {
		method string
		path   string
		body   string
		code   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/jobs", "", http.StatusOK},
		{http.MethodGet, "/api/v1/jobs/job-1", "", http.StatusOK},
		{http.MethodGet, "/api/v1/jobs/job-1/full", "", http.StatusOK},
		{http.MethodDelete, "/api/v1/jobs/job-1", "", http.StatusOK},
		{http.MethodPost, "/api/v1/forecast", `{"job_id":"job-1"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/forecast/job-1", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/insights?job_id=job-1", "", http.StatusOK},
		{http.MethodPost, "/api/v1/insights/regenerate?job_id=job-1", "", http.StatusOK},
		{http.MethodGet, "/api/v1/anomalies/job-1", "", http.StatusOK},
		{http.MethodGet, "/api/v1/recommendations/job-1", "", http.StatusOK},
		{http.MethodPost, "/api/v1/scenario/job-1", `{"price_change":5}`, http.StatusOK},
		{http.MethodPost, "/api/v1/auth/token", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(router, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestSetupRoutes_Metrics(t *testing.T) {
	router := newRouter(t, config.SecurityConfig{})

	w := do(router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "forecast_test_total 1")
}

func TestSetupRoutes_Auth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-key"), bcrypt.MinCost)
	require.NoError(t, err)

	router := newRouter(t, config.SecurityConfig{
		AuthEnabled: true,
		JWTSecret:   "jwt-secret",
		JWTExpiry:   "1h",
		APIKeyHash:  string(hash),
	})

	w := do(router, http.MethodGet, "/api/v1/jobs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodPost, "/api/v1/auth/token", "", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodPost, "/api/v1/auth/token", "", map[string]string{"X-API-Key": "s3cret-key"})
	require.Equal(t, http.StatusOK, w.Code)

	var token struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &token))
	require.NotEmpty(t, token.Token)

	w = do(router, http.MethodGet, "/api/v1/jobs", "", map[string]string{"Authorization": "Bearer " + token.Token})
	assert.Equal(t, http.StatusOK, w.Code)

	// health stays public
	w = do(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
