package services

import (
	"context"
	"errors"

	"github.com/irfndi/forecast-ai-go/internal/analytics"
	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

// AnalyticsService derives anomalies, recommendations and scenarios from the
// latest forecast of a job.
type AnalyticsService struct {
	forecasts *ForecastService
}

// NewAnalyticsService reads the latest forecast through the forecast service
// and its result cache.
func NewAnalyticsService(forecasts *ForecastService) *AnalyticsService {
	return &AnalyticsService{forecasts: forecasts}
}

// Anomalies flags unusual historical actuals. An empty method selects IQR.
func (s *AnalyticsService) Anomalies(ctx context.Context, jobID, method string, threshold float64) (*models.AnomalyReport, error) {
	rec, err := s.latest(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if method == "" {
		method = analytics.MethodIQR
	}
	found, err := analytics.DetectAnomalies(rec.Historical, method, threshold)
	if err != nil {
		return nil, err
	}
	return &models.AnomalyReport{JobID: jobID, Method: method, Anomalies: found, Count: len(found)}, nil
}

// Recommendations lists up to four revenue actions for the latest forecast.
func (s *AnalyticsService) Recommendations(ctx context.Context, jobID string) (*models.RecommendationReport, error) {
	rec, err := s.latest(ctx, jobID)
	if err != nil {
		return nil, err
	}
	recs := analytics.Recommend(rec.Forecast, rec.Historical, rec.FeatureImportance)
	return &models.RecommendationReport{JobID: jobID, Recommendations: recs, Count: len(recs)}, nil
}

// Scenario re-projects the latest forecast under price and volume changes.
func (s *AnalyticsService) Scenario(ctx context.Context, jobID string, params models.ScenarioParams) (*models.ScenarioResult, error) {
	rec, err := s.latest(ctx, jobID)
	if err != nil {
		return nil, err
	}
	result := analytics.Simulate(rec.Forecast, params)
	return &result, nil
}

func (s *AnalyticsService) latest(ctx context.Context, jobID string) (*models.ForecastRecord, error) {
	rec, err := s.forecasts.LatestForecast(ctx, jobID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, ErrNoForecast
	}
	return rec, err
}
