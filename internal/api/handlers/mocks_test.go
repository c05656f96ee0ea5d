package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/services"
)

type mockJobs struct{ mock.Mock }

func (m *mockJobs) Upload(ctx context.Context, filename string, data []byte) (*models.UploadResponse, error) {
	args := m.Called(ctx, filename, data)
	resp, _ := args.Get(0).(*models.UploadResponse)
	return resp, args.Error(1)
}

func (m *mockJobs) Job(ctx context.Context, jobID string) (*models.Job, error) {
	args := m.Called(ctx, jobID)
	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *mockJobs) RecentJobs(ctx context.Context, limit int) ([]models.Job, error) {
	args := m.Called(ctx, limit)
	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

func (m *mockJobs) JobWithForecast(ctx context.Context, jobID string) (*models.JobWithForecast, error) {
	args := m.Called(ctx, jobID)
	full, _ := args.Get(0).(*models.JobWithForecast)
	return full, args.Error(1)
}

func (m *mockJobs) DeleteJob(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

type mockForecasts struct{ mock.Mock }

func (m *mockForecasts) Run(ctx context.Context, req models.ForecastRequest) (*models.ForecastRecord, error) {
	args := m.Called(ctx, req)
	rec, _ := args.Get(0).(*models.ForecastRecord)
	return rec, args.Error(1)
}

func (m *mockForecasts) LatestForecast(ctx context.Context, jobID string) (*models.ForecastRecord, error) {
	args := m.Called(ctx, jobID)
	rec, _ := args.Get(0).(*models.ForecastRecord)
	return rec, args.Error(1)
}

type mockInsights struct{ mock.Mock }

func (m *mockInsights) Get(ctx context.Context, jobID string) (*models.InsightsBundle, error) {
	args := m.Called(ctx, jobID)
	b, _ := args.Get(0).(*models.InsightsBundle)
	return b, args.Error(1)
}

func (m *mockInsights) Regenerate(ctx context.Context, jobID string) (*models.InsightsBundle, error) {
	args := m.Called(ctx, jobID)
	b, _ := args.Get(0).(*models.InsightsBundle)
	return b, args.Error(1)
}

type mockAnalytics struct{ mock.Mock }

func (m *mockAnalytics) Anomalies(ctx context.Context, jobID, method string, threshold float64) (*models.AnomalyReport, error) {
	args := m.Called(ctx, jobID, method, threshold)
	r, _ := args.Get(0).(*models.AnomalyReport)
	return r, args.Error(1)
}

func (m *mockAnalytics) Recommendations(ctx context.Context, jobID string) (*models.RecommendationReport, error) {
	args := m.Called(ctx, jobID)
	r, _ := args.Get(0).(*models.RecommendationReport)
	return r, args.Error(1)
}

func (m *mockAnalytics) Scenario(ctx context.Context, jobID string, params models.ScenarioParams) (*models.ScenarioResult, error) {
	args := m.Called(ctx, jobID, params)
	r, _ := args.Get(0).(*models.ScenarioResult)
	return r, args.Error(1)
}

type mockChecker struct{ err error }

func (m mockChecker) HealthCheck(context.Context) error { return m.err }

type mockHost struct{}

func (mockHost) Stats(context.Context) services.HostStats {
	return services.HostStats{CPUCores: 4, MaxRuns: 2}
}
