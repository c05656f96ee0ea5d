package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/irfndi/forecast-ai-go/internal/cache"
	"github.com/irfndi/forecast-ai-go/internal/insights"
	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

// ErrNoForecast is returned when a job has no forecast to derive results from.
var ErrNoForecast = fmt.Errorf("no forecast found, run a forecast first: %w", utils.ErrNotFound)

// InsightService produces and stores narrative insights for forecast runs.
type InsightService struct {
	store     JobStore
	results   *cache.ResultCache
	forecasts *ForecastService
	group     singleflight.Group
	logger    *logrus.Logger
	now       func() time.Time
}

// NewInsightService creates an insight service on top of a forecast service.
func NewInsightService(store JobStore, results *cache.ResultCache, forecasts *ForecastService, logger *logrus.Logger) *InsightService {
	return &InsightService{
		store:     store,
		results:   results,
		forecasts: forecasts,
		logger:    logger,
		now:       time.Now,
	}
}

// Get returns the latest insights of a job, generating them on first use.
func (s *InsightService) Get(ctx context.Context, jobID string) (*models.InsightsBundle, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	if bundle, ok := s.results.GetInsights(ctx, jobID); ok {
		return bundle, nil
	}

	bundle, err := s.store.LatestInsights(ctx, jobID)
	switch {
	case err == nil:
		s.results.SetInsights(ctx, bundle)
		return bundle, nil
	case !errors.Is(err, utils.ErrNotFound):
		return nil, err
	}
	return s.generateOnce(ctx, jobID)
}

// Regenerate discards stored insights and generates a fresh bundle.
func (s *InsightService) Regenerate(ctx context.Context, jobID string) (*models.InsightsBundle, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.generateOnce(ctx, jobID)
}

// generateOnce shares one generation among concurrent callers for a job. A
// caller whose context ends stops waiting; the generation itself completes.
func (s *InsightService) generateOnce(ctx context.Context, jobID string) (*models.InsightsBundle, error) {
	ch := s.group.DoChan(jobID, func() (interface{}, error) {
		return s.generate(context.WithoutCancel(ctx), jobID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.InsightsBundle), nil
	}
}

func (s *InsightService) generate(ctx context.Context, jobID string) (*models.InsightsBundle, error) {
	start := s.now()
	rec, err := s.forecasts.LatestForecast(ctx, jobID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, ErrNoForecast
		}
		return nil, err
	}

	series, err := s.forecasts.prepare(ctx, jobID, nil, rec.Aggregation, rec.TargetColumn, rec.GroupBy)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare history for insights: %w", err)
	}

	bundle := insights.Generate(insights.Input{
		History:           insights.HistoryFromFrame(series, rec.TargetColumn),
		Forecast:          rec.Forecast,
		Metrics:           rec.Metrics,
		Target:            rec.TargetColumn,
		FeatureImportance: rec.FeatureImportance,
	})
	bundle.JobID = jobID
	bundle.GeneratedAt = s.now().UTC()

	if err := s.store.SaveInsights(ctx, &bundle); err != nil {
		return nil, err
	}
	s.results.SetInsights(ctx, &bundle)

	s.logger.WithFields(logrus.Fields{
		"job_id":      jobID,
		"title":       bundle.Title,
		"duration_ms": s.now().Sub(start).Milliseconds(),
	}).Info("Generated insights")
	return &bundle, nil
}
