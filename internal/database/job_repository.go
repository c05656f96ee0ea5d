package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/utils"
	"github.com/jackc/pgx/v5"
)

const jobColumns = `job_id, status, original_filename, row_count, column_count, columns, date_range, validation_result, created_at, updated_at`

// JobRepository persists jobs, their uploads, forecasts and insights.
type JobRepository struct {
	db Querier
}

// NewJobRepository creates a new job repository.
//
// Parameters:
//
//	db: The database pool, or a mock satisfying Querier.
//
// Returns:
//
//	*JobRepository: The initialized repository.
func NewJobRepository(db Querier) *JobRepository {
	return &JobRepository{db: db}
}

// CreateJob stores a job together with the raw upload bytes.
func (r *JobRepository) CreateJob(ctx context.Context, job *models.Job, data []byte) error {
	columns, err := json.Marshal(job.Columns)
	if err != nil {
		return fmt.Errorf("failed to encode columns: %w", err)
	}
	validation, err := json.Marshal(job.Validation)
	if err != nil {
		return fmt.Errorf("failed to encode validation result: %w", err)
	}
	var dateRange []byte
	if job.DateRange != nil {
		if dateRange, err = json.Marshal(job.DateRange); err != nil {
			return fmt.Errorf("failed to encode date range: %w", err)
		}
	}

	query := `
		INSERT INTO jobs (job_id, status, original_filename, row_count, column_count, columns, date_range, validation_result, file_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`
	_, err = r.db.Exec(ctx, query,
		job.JobID, string(job.Status), job.OriginalFilename, job.RowCount, job.ColumnCount,
		columns, dateRange, validation, data, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJob returns the job, or utils.ErrNotFound.
func (r *JobRepository) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = $1`, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// GetJobData returns the stored upload and its original filename.
func (r *JobRepository) GetJobData(ctx context.Context, jobID string) ([]byte, string, error) {
	var (
		data     []byte
		filename string
	)
	err := r.db.QueryRow(ctx, `SELECT file_data, original_filename FROM jobs WHERE job_id = $1`, jobID).Scan(&data, &filename)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", utils.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to get job data: %w", err)
	}
	return data, filename, nil
}

func (r *JobRepository) UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE jobs SET status = $2, updated_at = NOW() WHERE job_id = $1`,
		jobID, string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// RecentJobs lists jobs newest first.
func (r *JobRepository) RecentJobs(ctx context.Context, limit int) ([]models.Job, error) {
	rows, err := r.db.Query(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]models.Job, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

// SaveForecast stores a completed run.
func (r *JobRepository) SaveForecast(ctx context.Context, rec *models.ForecastRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode forecast: %w", err)
	}
	query := `
		INSERT INTO forecasts (job_id, model_type, aggregation, horizon, target_column, record, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.Exec(ctx, query,
		rec.JobID, rec.ModelType, string(rec.Aggregation), rec.Horizon, rec.TargetColumn, payload, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save forecast: %w", err)
	}
	return nil
}

// LatestForecast returns the most recent forecast of a job, or
// utils.ErrNotFound.
func (r *JobRepository) LatestForecast(ctx context.Context, jobID string) (*models.ForecastRecord, error) {
	var payload []byte
	err := r.db.QueryRow(ctx,
		`SELECT record FROM forecasts WHERE job_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		jobID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get forecast: %w", err)
	}

	var rec models.ForecastRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode forecast: %w", err)
	}
	return &rec, nil
}

func (r *JobRepository) SaveInsights(ctx context.Context, bundle *models.InsightsBundle) error {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to encode insights: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO insights (job_id, bundle, created_at) VALUES ($1, $2, $3)`,
		bundle.JobID, payload, bundle.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save insights: %w", err)
	}
	return nil
}

func (r *JobRepository) LatestInsights(ctx context.Context, jobID string) (*models.InsightsBundle, error) {
	var payload []byte
	err := r.db.QueryRow(ctx,
		`SELECT bundle FROM insights WHERE job_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		jobID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get insights: %w", err)
	}

	var bundle models.InsightsBundle
	if err := json.Unmarshal(payload, &bundle); err != nil {
		return nil, fmt.Errorf("failed to decode insights: %w", err)
	}
	return &bundle, nil
}

// DeleteJob removes a job with its forecasts and insights in one transaction.
func (r *JobRepository) DeleteJob(ctx context.Context, jobID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM insights WHERE job_id = $1`, jobID); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("failed to delete insights: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM forecasts WHERE job_id = $1`, jobID); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("failed to delete forecasts: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM jobs WHERE job_id = $1`, jobID)
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		return utils.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit job deletion: %w", err)
	}
	return nil
}

// DeleteJobsBefore removes jobs created before cutoff; forecasts and insights
// cascade. It returns the number of jobs removed.
func (r *JobRepository) DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM jobs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var (
		job                            models.Job
		status                         string
		columns, dateRange, validation []byte
	)
	err := row.Scan(
		&job.JobID,
		&status,
		&job.OriginalFilename,
		&job.RowCount,
		&job.ColumnCount,
		&columns,
		&dateRange,
		&validation,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = models.JobStatus(status)

	if len(columns) > 0 {
		if err := json.Unmarshal(columns, &job.Columns); err != nil {
			return nil, fmt.Errorf("failed to decode columns: %w", err)
		}
	}
	if len(dateRange) > 0 && string(dateRange) != "null" {
		job.DateRange = &models.DateRange{}
		if err := json.Unmarshal(dateRange, job.DateRange); err != nil {
			return nil, fmt.Errorf("failed to decode date range: %w", err)
		}
	}
	if len(validation) > 0 {
		if err := json.Unmarshal(validation, &job.Validation); err != nil {
			return nil, fmt.Errorf("failed to decode validation result: %w", err)
		}
	}
	return &job, nil
}
