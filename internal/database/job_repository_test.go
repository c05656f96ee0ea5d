package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/utils"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jobRowColumns = []string{
	"job_id", "status", "original_filename", "row_count", "column_count",
	"columns", "date_range", "validation_result", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*JobRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewJobRepository(mock), mock
}

func sampleJob() *models.Job {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.Job{
		JobID:            "job_20240301100000_abcd1234",
		Status:           models.JobPending,
		OriginalFilename: "sales.csv",
		RowCount:         120,
		ColumnCount:      3,
		Columns:          []string{"date", "revenue", "region"},
		DateRange:        &models.DateRange{Start: "2023-01-01", End: "2023-12-31"},
		Validation:       models.ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}, RowCount: 120, ColumnCount: 3},
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func jobRow(t *testing.T, job *models.Job) []interface{} {
	t.Helper()
	columns, err := json.Marshal(job.Columns)
	require.NoError(t, err)
	dateRange, err := json.Marshal(job.DateRange)
	require.NoError(t, err)
	validation, err := json.Marshal(job.Validation)
	require.NoError(t, err)
	return []interface{}{
		job.JobID, string(job.Status), job.OriginalFilename, job.RowCount, job.ColumnCount,
		columns, dateRange, validation, job.CreatedAt, job.UpdatedAt,
	}
}

func TestJobRepository_CreateJob(t *testing.T) {
	repo, mock := newMockRepo(t)
	job := sampleJob()

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(job.JobID, "pending", "sales.csv", 120, 3,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), []byte("raw"), job.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.CreateJob(context.Background(), job, []byte("raw")))
}

func TestJobRepository_CreateJobError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("duplicate key"))

	err := repo.CreateJob(context.Background(), sampleJob(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create job")
}

func TestJobRepository_GetJob(t *testing.T) {
	repo, mock := newMockRepo(t)
	want := sampleJob()

	mock.ExpectQuery("SELECT job_id, status").
		WithArgs(want.JobID).
		WillReturnRows(pgxmock.NewRows(jobRowColumns).AddRow(jobRow(t, want)...))

	got, err := repo.GetJob(context.Background(), want.JobID)
	require.NoError(t, err)
	assert.Equal(t, want.JobID, got.JobID)
	assert.Equal(t, models.JobPending, got.Status)
	assert.Equal(t, want.Columns, got.Columns)
	require.NotNil(t, got.DateRange)
	assert.Equal(t, "2023-12-31", got.DateRange.End)
	assert.True(t, got.Validation.IsValid)
	assert.Equal(t, 120, got.Validation.RowCount)
}

func TestJobRepository_GetJobNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT job_id, status").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(jobRowColumns))

	_, err := repo.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestJobRepository_GetJobData(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT file_data, original_filename FROM jobs").
		WithArgs("job_1").
		WillReturnRows(pgxmock.NewRows([]string{"file_data", "original_filename"}).AddRow([]byte("date,revenue\n"), "sales.csv"))

	data, name, err := repo.GetJobData(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Equal(t, "date,revenue\n", string(data))
	assert.Equal(t, "sales.csv", name)
}

func TestJobRepository_UpdateJobStatus(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs("job_1", "processing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs("missing", "error").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.UpdateJobStatus(context.Background(), "job_1", models.JobProcessing))
	assert.ErrorIs(t, repo.UpdateJobStatus(context.Background(), "missing", models.JobError), utils.ErrNotFound)
}

func TestJobRepository_RecentJobs(t *testing.T) {
	repo, mock := newMockRepo(t)
	first := sampleJob()
	second := sampleJob()
	second.JobID = "job_2"
	second.Status = models.JobCompleted

	mock.ExpectQuery("FROM jobs ORDER BY created_at DESC LIMIT").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(jobRowColumns).
			AddRow(jobRow(t, second)...).
			AddRow(jobRow(t, first)...))

	jobs, err := repo.RecentJobs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job_2", jobs[0].JobID)
	assert.Equal(t, models.JobCompleted, jobs[0].Status)
}

func TestJobRepository_ForecastRoundTrip(t *testing.T) {
	repo, mock := newMockRepo(t)
	actual := 120.0
	rec := &models.ForecastRecord{
		JobID:        "job_1",
		ModelType:    models.StrategyDecomposition,
		Aggregation:  models.AggregationMonthly,
		Horizon:      6,
		TargetColumn: "revenue",
		Metrics:      models.ForecastMetrics{MAPE: 8.2},
		Forecast:     []models.ForecastPoint{{Date: "2024-01-31", Predicted: 130}},
		Historical:   []models.ForecastPoint{{Date: "2023-12-31", Actual: &actual, Predicted: 118}},
		CreatedAt:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO forecasts").
		WithArgs("job_1", "decomposition", "monthly", 6, "revenue", pgxmock.AnyArg(), rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT record FROM forecasts").
		WithArgs("job_1").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(payload))

	require.NoError(t, repo.SaveForecast(context.Background(), rec))
	got, err := repo.LatestForecast(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Equal(t, 8.2, got.Metrics.MAPE)
	require.Len(t, got.Historical, 1)
	assert.Equal(t, 120.0, *got.Historical[0].Actual)
}

func TestJobRepository_LatestForecastNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT record FROM forecasts").
		WithArgs("job_1").
		WillReturnRows(pgxmock.NewRows([]string{"record"}))

	_, err := repo.LatestForecast(context.Background(), "job_1")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestJobRepository_InsightsRoundTrip(t *testing.T) {
	repo, mock := newMockRepo(t)
	bundle := &models.InsightsBundle{
		JobID:       "job_1",
		Title:       "Strong Growth Expected",
		GeneratedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(bundle)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO insights").
		WithArgs("job_1", pgxmock.AnyArg(), bundle.GeneratedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT bundle FROM insights").
		WithArgs("job_1").
		WillReturnRows(pgxmock.NewRows([]string{"bundle"}).AddRow(payload))
	mock.ExpectQuery("SELECT bundle FROM insights").
		WithArgs("job_2").
		WillReturnRows(pgxmock.NewRows([]string{"bundle"}))

	require.NoError(t, repo.SaveInsights(context.Background(), bundle))
	got, err := repo.LatestInsights(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Equal(t, "Strong Growth Expected", got.Title)

	_, err = repo.LatestInsights(context.Background(), "job_2")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestJobRepository_DeleteJob(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM insights").WithArgs("job_1").WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("DELETE FROM forecasts").WithArgs("job_1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM jobs").WithArgs("job_1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteJob(context.Background(), "job_1"))
}

func TestJobRepository_DeleteJobNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM insights").WithArgs("nope").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM forecasts").WithArgs("nope").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM jobs").WithArgs("nope").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.DeleteJob(context.Background(), "nope"), utils.ErrNotFound)
}

func TestJobRepository_DeleteJobRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM insights").WithArgs("job_1").WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err := repo.DeleteJob(context.Background(), "job_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete insights")
}

func TestJobRepository_DeleteJobsBefore(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM jobs WHERE created_at").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := repo.DeleteJobsBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestEnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	for range schemaStatements {
		mock.ExpectExec("CREATE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	require.NoError(t, EnsureSchema(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS jobs").WillReturnError(errors.New("permission denied"))
	err = EnsureSchema(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply schema")
}
