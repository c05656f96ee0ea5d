// Package services orchestrates uploads, forecast runs, insights and analytics
// over the pipeline, forecast and persistence packages.
package services

import (
	"context"
	"time"

	"github.com/irfndi/forecast-ai-go/internal/models"
)

// JobStore is the persistence the services need. *database.JobRepository
// implements it.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job, data []byte) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	GetJobData(ctx context.Context, jobID string) ([]byte, string, error)
	UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus) error
	RecentJobs(ctx context.Context, limit int) ([]models.Job, error)
	SaveForecast(ctx context.Context, rec *models.ForecastRecord) error
	LatestForecast(ctx context.Context, jobID string) (*models.ForecastRecord, error)
	SaveInsights(ctx context.Context, bundle *models.InsightsBundle) error
	LatestInsights(ctx context.Context, jobID string) (*models.InsightsBundle, error)
	DeleteJob(ctx context.Context, jobID string) error
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
