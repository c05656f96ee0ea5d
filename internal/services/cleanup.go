package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/forecast-ai-go/internal/config"
)

// JobPurger deletes jobs created before a cutoff.
type JobPurger interface {
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupService handles automatic cleanup of expired jobs
type CleanupService struct {
	store     JobPurger
	retention time.Duration
	schedule  string
	cron      *cron.Cron
	logger    *logrus.Logger
	now       func() time.Time
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(store JobPurger, cfg config.CleanupConfig, logger *logrus.Logger) *CleanupService {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = "@every 1h"
	}
	return &CleanupService{
		store:     store,
		retention: time.Duration(cfg.JobRetentionHours) * time.Hour,
		schedule:  schedule,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(logger)),
			cron.SkipIfStillRunning(cron.PrintfLogger(logger)),
		)),
		logger: logger,
		now:    time.Now,
	}
}

// Start registers the cleanup job and starts the scheduler. A retention of
// zero disables cleanup.
func (c *CleanupService) Start(ctx context.Context) error {
	if c.retention <= 0 {
		c.logger.Info("Job cleanup disabled")
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if _, err := c.RunCleanup(ctx); err != nil {
			c.logger.WithError(err).Error("Cleanup failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", c.schedule, err)
	}

	c.logger.WithFields(logrus.Fields{
		"schedule":        c.schedule,
		"retention_hours": c.retention.Hours(),
	}).Info("Starting cleanup service")
	c.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running cleanup to finish.
func (c *CleanupService) Stop() {
	c.logger.Info("Stopping cleanup service")
	<-c.cron.Stop().Done()
}

// RunCleanup deletes jobs older than the retention window.
func (c *CleanupService) RunCleanup(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.retention)

	deleted, err := c.store.DeleteJobsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup jobs: %w", err)
	}
	if deleted > 0 {
		c.logger.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Cleaned up expired jobs")
	}
	return deleted, nil
}
