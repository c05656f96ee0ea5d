package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/forecast-ai-go/internal/cache"
	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

func TestForecastService_Upload(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Upload(context.Background(), "sales.csv", []byte(salesCSV(24)))
	require.NoError(t, err)

	assert.Regexp(t, `^job_\d{14}_[0-9a-f]{8}$`, resp.JobID)
	assert.True(t, resp.Validation.IsValid)
	assert.Equal(t, 24, resp.Validation.RowCount)
	assert.Len(t, resp.Preview, 10)
	assert.Contains(t, resp.NumericColumns, "revenue")
	assert.Contains(t, resp.CategoricalColumns, "region")

	job, err := env.svc.Job(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, job.Status)
	assert.Equal(t, "sales.csv", job.OriginalFilename)
	require.NotNil(t, job.DateRange)
	assert.Equal(t, "2022-01-15", job.DateRange.Start)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Uploads.WithLabelValues("true")))
}

func TestForecastService_UploadRejectsUnsupportedFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Upload(context.Background(), "sales.json", []byte(`{"a":1}`))
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
	assert.Empty(t, env.store.jobs)
}

func TestForecastService_Run(t *testing.T) {
	env := newTestEnv(t)
	jobID, rec := env.forecastJob(t)

	assert.Equal(t, models.StrategyDecomposition, rec.ModelType)
	assert.Equal(t, models.AggregationMonthly, rec.Aggregation)
	assert.Equal(t, 3, rec.Horizon)
	assert.Equal(t, "revenue", rec.TargetColumn)
	assert.Len(t, rec.Forecast, 3)
	assert.NotEmpty(t, rec.Historical)
	require.NotEmpty(t, rec.TopProducts)
	assert.Equal(t, "Widget", rec.TopProducts[0].Group)
	require.NotEmpty(t, rec.TopRegions)
	assert.Equal(t, "North", rec.TopRegions[0].Group)

	assert.Equal(t, []models.JobStatus{models.JobProcessing, models.JobCompleted}, env.store.statuses[jobID])
	assert.Len(t, env.store.forecasts[jobID], 1)
	assert.True(t, env.redis.Exists("forecast:"+jobID))
	assert.Equal(t, 1, env.prepared.Len())

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ForecastRuns.WithLabelValues(models.StrategyDecomposition, statusSuccess)))
	assert.Zero(t, testutil.ToFloat64(env.metrics.ForecastFallbacks))
}

func TestForecastService_RunReusesPreparedSeries(t *testing.T) {
	env := newTestEnv(t)
	jobID, first := env.forecastJob(t)

	second, err := env.svc.Run(context.Background(), models.ForecastRequest{JobID: jobID, Model: "prophet"})
	require.NoError(t, err)

	assert.Equal(t, 1, env.prepared.Len())
	assert.Equal(t, first.Forecast, second.Forecast)
	assert.Len(t, env.store.forecasts[jobID], 2)
}

func TestForecastService_RunFallsBack(t *testing.T) {
	env := newTestEnv(t)
	jobID := env.upload(t)

	rec, err := env.svc.Run(context.Background(), models.ForecastRequest{JobID: jobID, Model: "lightgbm"})
	require.NoError(t, err)

	assert.Equal(t, models.StrategyDecomposition, rec.ModelType)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ForecastFallbacks))
}

func TestForecastService_RunRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)
	jobID := env.upload(t)

	tests := []struct {
		name   string
		req    models.ForecastRequest
		config bool
	}{
		{"missing job id", models.ForecastRequest{}, false},
		{"aggregation", models.ForecastRequest{JobID: jobID, Aggregation: "hourly"}, false},
		{"horizon", models.ForecastRequest{JobID: jobID, Horizon: 36}, false},
		{"model", models.ForecastRequest{JobID: jobID, Model: "arima"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Run(context.Background(), tt.req)
			require.Error(t, err)
			if tt.config {
				assert.True(t, utils.IsConfigurationError(err))
			} else {
				assert.True(t, utils.IsValidationError(err))
			}
		})
	}
	assert.Equal(t, models.JobPending, env.store.status(jobID), "rejected requests never claim the job")
}

func TestForecastService_RunUnknownJob(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Run(context.Background(), models.ForecastRequest{JobID: "job_missing"})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestForecastService_RunFailureMarksJob(t *testing.T) {
	env := newTestEnv(t)
	jobID := env.upload(t)

	_, err := env.svc.Run(context.Background(), models.ForecastRequest{JobID: jobID, TargetColumn: "profit"})
	require.Error(t, err)
	assert.True(t, utils.IsConfigurationError(err))

	assert.Equal(t, models.JobError, env.store.status(jobID))
	assert.Empty(t, env.store.forecasts[jobID])
	assert.False(t, env.redis.Exists("forecast:"+jobID))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ForecastRuns.WithLabelValues(models.StrategyDecomposition, statusError)))
}

func TestForecastService_RunPersistFailure(t *testing.T) {
	env := newTestEnv(t)
	jobID := env.upload(t)
	env.store.saveErr = errors.New("disk full")

	_, err := env.svc.Run(context.Background(), models.ForecastRequest{JobID: jobID})
	require.Error(t, err)
	assert.Equal(t, models.JobError, env.store.status(jobID))
	assert.False(t, env.redis.Exists("forecast:"+jobID))
}

func TestForecastService_RunCapacity(t *testing.T) {
	guard := NewResourceGuard(ResourceGuardConfig{MaxConcurrentRuns: 1}, quietLogger())
	env := newTestEnv(t, func(o *ForecastServiceOptions) { o.Guard = guard })
	jobID := env.upload(t)

	require.NoError(t, guard.Acquire())
	_, err := env.svc.Run(context.Background(), models.ForecastRequest{JobID: jobID})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, models.JobPending, env.store.status(jobID))

	guard.Release()
	_, err = env.svc.Run(context.Background(), models.ForecastRequest{JobID: jobID})
	require.NoError(t, err)
	assert.NoError(t, guard.Acquire(), "slot is released after the run")
}

func TestForecastService_RecentJobsLimit(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t)

	tests := []struct {
		limit int
		want  int
	}{
		{0, 10},
		{-1, 10},
		{5, 5},
		{500, MaxRecentJobs},
	}
	for _, tt := range tests {
		jobs, err := env.svc.RecentJobs(context.Background(), tt.limit)
		require.NoError(t, err)
		assert.Len(t, jobs, 1)
		assert.Equal(t, tt.want, env.store.lastLimit)
	}
}

func TestForecastService_LatestForecastUsesCache(t *testing.T) {
	env := newTestEnv(t)
	jobID, rec := env.forecastJob(t)

	delete(env.store.forecasts, jobID)

	got, err := env.svc.LatestForecast(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, rec.Forecast, got.Forecast)

	env.redis.FlushAll()
	_, err = env.svc.LatestForecast(context.Background(), jobID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestForecastService_JobWithForecast(t *testing.T) {
	env := newTestEnv(t)
	jobID := env.upload(t)

	full, err := env.svc.JobWithForecast(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, jobID, full.Job.JobID)
	assert.Nil(t, full.Forecast)

	_, err = env.svc.Run(context.Background(), models.ForecastRequest{JobID: jobID})
	require.NoError(t, err)

	full, err = env.svc.JobWithForecast(context.Background(), jobID)
	require.NoError(t, err)
	require.NotNil(t, full.Forecast)
	assert.Equal(t, models.JobCompleted, full.Job.Status)

	_, err = env.svc.JobWithForecast(context.Background(), "job_missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestForecastService_DeleteJob(t *testing.T) {
	env := newTestEnv(t)
	jobID, _ := env.forecastJob(t)

	require.NoError(t, env.svc.DeleteJob(context.Background(), jobID))

	assert.NotContains(t, env.store.jobs, jobID)
	assert.False(t, env.redis.Exists("forecast:"+jobID))
	_, ok := env.prepared.Get(cache.PreparedKey(jobID, models.AggregationMonthly, "revenue", ""))
	assert.False(t, ok)

	assert.ErrorIs(t, env.svc.DeleteJob(context.Background(), jobID), utils.ErrNotFound)
}
