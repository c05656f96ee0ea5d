package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/forecast-ai-go/internal/cache"
	"github.com/irfndi/forecast-ai-go/internal/forecast"
	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/pipeline"
	"github.com/irfndi/forecast-ai-go/internal/telemetry"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

const (
	// MaxRecentJobs caps RecentJobs.
	MaxRecentJobs = 50

	defaultRecentJobs = 10
	defaultTarget     = "revenue"
	previewRows       = 10
	topGroups         = 5
)

// ForecastServiceOptions wires a ForecastService. Guard, Notifier and Metrics
// are optional.
type ForecastServiceOptions struct {
	Store          JobStore
	Registry       *forecast.Registry
	Results        *cache.ResultCache
	Prepared       *cache.PreparedCache
	Guard          *ResourceGuard
	Notifier       *NotificationService
	Metrics        *Metrics
	Logger         *logrus.Logger
	DefaultHorizon int
	Timeout        time.Duration
}

// ForecastService accepts uploads and runs forecasts against them.
type ForecastService struct {
	store          JobStore
	registry       *forecast.Registry
	results        *cache.ResultCache
	prepared       *cache.PreparedCache
	guard          *ResourceGuard
	notifier       *NotificationService
	metrics        *Metrics
	logger         *logrus.Logger
	defaultHorizon int
	timeout        time.Duration
	background     sync.WaitGroup
	now            func() time.Time
}

// NewForecastService creates a forecast service.
func NewForecastService(opts ForecastServiceOptions) *ForecastService {
	if opts.DefaultHorizon <= 0 {
		opts.DefaultHorizon = 6
	}
	return &ForecastService{
		store:          opts.Store,
		registry:       opts.Registry,
		results:        opts.Results,
		prepared:       opts.Prepared,
		guard:          opts.Guard,
		notifier:       opts.Notifier,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		defaultHorizon: opts.DefaultHorizon,
		timeout:        opts.Timeout,
		now:            time.Now,
	}
}

// Upload parses and validates a file and stores it as a pending job. Files
// that fail validation are still stored; the result carries the errors.
func (s *ForecastService) Upload(ctx context.Context, filename string, data []byte) (*models.UploadResponse, error) {
	table, err := pipeline.Load(filename, data)
	if err != nil {
		return nil, err
	}
	p := pipeline.New(table, s.logger)
	validation := p.Validate()
	all, numeric, categorical := p.ColumnInfo()

	now := s.now().UTC()
	job := &models.Job{
		JobID:            utils.NewJobID(now),
		Status:           models.JobPending,
		OriginalFilename: filename,
		RowCount:         validation.RowCount,
		ColumnCount:      validation.ColumnCount,
		Columns:          all,
		DateRange:        validation.DateRange,
		Validation:       validation,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateJob(ctx, job, data); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	s.metrics.observeUpload(validation.IsValid)

	s.logger.WithFields(logrus.Fields{
		"job_id":   job.JobID,
		"filename": filename,
		"rows":     validation.RowCount,
		"valid":    validation.IsValid,
		"errors":   len(validation.Errors),
		"warnings": len(validation.Warnings),
	}).Info("Upload accepted")

	return &models.UploadResponse{
		JobID:              job.JobID,
		Validation:         validation,
		Preview:            p.Preview(previewRows),
		Columns:            all,
		NumericColumns:     numeric,
		CategoricalColumns: categorical,
	}, nil
}

// Run trains the requested strategy on a stored upload. The record is
// persisted only after the whole run succeeds; any failure after the job is
// claimed marks it as errored.
func (s *ForecastService) Run(ctx context.Context, req models.ForecastRequest) (*models.ForecastRecord, error) {
	if err := s.normalize(&req); err != nil {
		return nil, err
	}
	strategy, err := s.registry.Resolve(req.Model)
	if err != nil {
		return nil, err
	}

	job, err := s.store.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, err
	}

	if s.guard != nil {
		if err := s.guard.Acquire(); err != nil {
			s.metrics.observeRun(strategy.Name(), statusError, 0)
			return nil, err
		}
		defer s.guard.Release()
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, span := telemetry.StartForecastSpan(ctx, telemetry.RunInfo{
		JobID:       req.JobID,
		Strategy:    strategy.Name(),
		Aggregation: string(req.Aggregation),
		Horizon:     req.Horizon,
		Target:      req.TargetColumn,
	})
	start := s.now()

	rec, err := s.run(ctx, job, req)
	if err != nil {
		s.markFailed(ctx, req.JobID)
		s.metrics.observeRun(strategy.Name(), statusError, 0)
		telemetry.EndForecastSpan(span, strategy.Name(), 0, err)
		s.logger.WithFields(logrus.Fields{
			"job_id":   req.JobID,
			"strategy": strategy.Name(),
			"error":    err,
		}).Error("Forecast run failed")
		return nil, err
	}

	elapsed := s.now().Sub(start)
	if rec.ModelType != strategy.Name() {
		s.metrics.observeFallback()
	}
	s.metrics.observeRun(rec.ModelType, statusSuccess, elapsed.Seconds())
	telemetry.EndForecastSpan(span, rec.ModelType, rec.Metrics.MAPE, nil)

	s.logger.WithFields(logrus.Fields{
		"job_id":      req.JobID,
		"strategy":    rec.ModelType,
		"horizon":     rec.Horizon,
		"mape":        rec.Metrics.MAPE,
		"duration_ms": elapsed.Milliseconds(),
	}).Info("Forecast run completed")

	if s.notifier.Enabled() {
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			s.notifier.NotifyForecastCompleted(context.WithoutCancel(ctx), job, rec)
		}()
	}
	return rec, nil
}

func (s *ForecastService) run(ctx context.Context, job *models.Job, req models.ForecastRequest) (*models.ForecastRecord, error) {
	if err := s.store.UpdateJobStatus(ctx, job.JobID, models.JobProcessing); err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	p, err := s.loadPipeline(ctx, job.JobID)
	if err != nil {
		return nil, err
	}
	series, err := s.prepare(ctx, job.JobID, p, req.Aggregation, req.TargetColumn, req.GroupBy)
	if err != nil {
		return nil, err
	}

	result, err := s.registry.Dispatch(ctx, req.Model, series, forecast.Config{
		Target:      req.TargetColumn,
		Aggregation: req.Aggregation,
		Horizon:     req.Horizon,
	})
	if err != nil {
		return nil, err
	}

	rec := &models.ForecastRecord{
		JobID:             job.JobID,
		ModelType:         result.Strategy,
		Aggregation:       req.Aggregation,
		Horizon:           req.Horizon,
		TargetColumn:      req.TargetColumn,
		GroupBy:           req.GroupBy,
		Metrics:           result.Metrics,
		Forecast:          result.Forecast,
		Historical:        result.Historical,
		Decomposition:     result.Decomposition,
		FeatureImportance: result.FeatureImportance,
		CreatedAt:         s.now().UTC(),
	}
	raw := p.Raw()
	switch {
	case raw.HasColumn("product_name"):
		rec.TopProducts = p.TopByColumn("product_name", req.TargetColumn, topGroups)
	case raw.HasColumn("product_id"):
		rec.TopProducts = p.TopByColumn("product_id", req.TargetColumn, topGroups)
	}
	if raw.HasColumn("region") {
		rec.TopRegions = p.TopByColumn("region", req.TargetColumn, topGroups)
	}

	if err := s.store.SaveForecast(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.store.UpdateJobStatus(ctx, job.JobID, models.JobCompleted); err != nil {
		return nil, fmt.Errorf("failed to complete job: %w", err)
	}

	s.results.SetForecast(ctx, rec)
	if err := s.results.InvalidateInsights(ctx, job.JobID); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate cached insights")
	}
	return rec, nil
}

// normalize fills request defaults and rejects out-of-range values.
func (s *ForecastService) normalize(req *models.ForecastRequest) error {
	if req.JobID == "" {
		return utils.NewValidationError("job_id is required")
	}
	if req.Aggregation == "" {
		req.Aggregation = models.AggregationMonthly
	}
	if !req.Aggregation.Valid() {
		return utils.NewValidationErrorf("Invalid aggregation '%s'. Available: daily, weekly, monthly", req.Aggregation)
	}
	if req.Horizon == 0 {
		req.Horizon = s.defaultHorizon
	}
	if req.Horizon < 1 || req.Horizon > 24 {
		return utils.NewValidationErrorf("horizon must be between 1 and 24 months, got %d", req.Horizon)
	}
	if req.TargetColumn == "" {
		req.TargetColumn = defaultTarget
	}
	if req.Model == "" {
		req.Model = models.StrategyDecomposition
	}
	return nil
}

// markFailed records the error status even when ctx has expired.
func (s *ForecastService) markFailed(ctx context.Context, jobID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.UpdateJobStatus(ctx, jobID, models.JobError); err != nil {
		s.logger.WithFields(logrus.Fields{"job_id": jobID, "error": err}).Warn("Failed to mark job as errored")
	}
}

func (s *ForecastService) loadPipeline(ctx context.Context, jobID string) (*pipeline.Pipeline, error) {
	data, filename, err := s.store.GetJobData(ctx, jobID)
	if err != nil {
		return nil, err
	}
	table, err := pipeline.Load(filename, data)
	if err != nil {
		return nil, err
	}
	return pipeline.New(table, s.logger), nil
}

// prepare returns the modeling series for a job and configuration, reusing
// the in-process LRU. p is loaded on demand when nil.
func (s *ForecastService) prepare(ctx context.Context, jobID string, p *pipeline.Pipeline, agg models.Aggregation, target, groupBy string) (*pipeline.Frame, error) {
	key := cache.PreparedKey(jobID, agg, target, groupBy)
	if s.prepared != nil {
		if f, ok := s.prepared.Get(key); ok {
			return f.Clone(), nil
		}
	}

	if p == nil {
		var err error
		if p, err = s.loadPipeline(ctx, jobID); err != nil {
			return nil, err
		}
	}
	f, err := p.PrepareForModeling(agg, target, groupBy)
	if err != nil {
		return nil, err
	}
	if s.prepared != nil {
		s.prepared.Add(key, f)
	}
	return f.Clone(), nil
}

// Job returns a stored job.
func (s *ForecastService) Job(ctx context.Context, jobID string) (*models.Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// RecentJobs lists the newest jobs. limit defaults to 10 and is capped at
// MaxRecentJobs.
func (s *ForecastService) RecentJobs(ctx context.Context, limit int) ([]models.Job, error) {
	if limit <= 0 {
		limit = defaultRecentJobs
	}
	if limit > MaxRecentJobs {
		limit = MaxRecentJobs
	}
	return s.store.RecentJobs(ctx, limit)
}

// LatestForecast returns the newest forecast of a job, from cache when
// possible.
func (s *ForecastService) LatestForecast(ctx context.Context, jobID string) (*models.ForecastRecord, error) {
	if rec, ok := s.results.GetForecast(ctx, jobID); ok {
		return rec, nil
	}
	rec, err := s.store.LatestForecast(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.results.SetForecast(ctx, rec)
	return rec, nil
}

// JobWithForecast returns a job and its latest forecast. A job that has not
// been forecast yet is returned without one.
func (s *ForecastService) JobWithForecast(ctx context.Context, jobID string) (*models.JobWithForecast, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	out := &models.JobWithForecast{Job: job}
	rec, err := s.LatestForecast(ctx, jobID)
	switch {
	case err == nil:
		out.Forecast = rec
	case !errors.Is(err, utils.ErrNotFound):
		return nil, err
	}
	return out, nil
}

// DeleteJob removes a job, its results and every cached copy of them.
func (s *ForecastService) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.store.DeleteJob(ctx, jobID); err != nil {
		return err
	}
	if err := s.results.Invalidate(ctx, jobID); err != nil {
		s.logger.WithFields(logrus.Fields{"job_id": jobID, "error": err}).Warn("Failed to invalidate cached results")
	}
	if s.prepared != nil {
		s.prepared.Purge(jobID)
	}
	s.logger.WithField("job_id", jobID).Info("Deleted job and associated data")
	return nil
}

// Wait blocks until background notifications have finished.
func (s *ForecastService) Wait() {
	s.background.Wait()
}
