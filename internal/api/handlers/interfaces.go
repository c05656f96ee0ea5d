// Package handlers implements the HTTP handlers of the forecast API.
package handlers

import (
	"context"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/services"
)

// JobService manages uploaded datasets.
type JobService interface {
	Upload(ctx context.Context, filename string, data []byte) (*models.UploadResponse, error)
	Job(ctx context.Context, jobID string) (*models.Job, error)
	RecentJobs(ctx context.Context, limit int) ([]models.Job, error)
	JobWithForecast(ctx context.Context, jobID string) (*models.JobWithForecast, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// ForecastService runs and returns forecasts.
type ForecastService interface {
	Run(ctx context.Context, req models.ForecastRequest) (*models.ForecastRecord, error)
	LatestForecast(ctx context.Context, jobID string) (*models.ForecastRecord, error)
}

// InsightService returns narrative insights for a job.
type InsightService interface {
	Get(ctx context.Context, jobID string) (*models.InsightsBundle, error)
	Regenerate(ctx context.Context, jobID string) (*models.InsightsBundle, error)
}

// AnalyticsService derives analytics from a job's latest forecast.
type AnalyticsService interface {
	Anomalies(ctx context.Context, jobID, method string, threshold float64) (*models.AnomalyReport, error)
	Recommendations(ctx context.Context, jobID string) (*models.RecommendationReport, error)
	Scenario(ctx context.Context, jobID string, params models.ScenarioParams) (*models.ScenarioResult, error)
}

// HealthChecker is a dependency that can report its health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HostStatter reports host resource usage.
type HostStatter interface {
	Stats(ctx context.Context) services.HostStats
}
