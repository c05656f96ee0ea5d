package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	forecastPrefix = "forecast:"
	insightsPrefix = "insights:"
)

// ResultCacheEntry wraps a cached payload with its timestamps.
type ResultCacheEntry struct {
	Payload   json.RawMessage `json:"payload"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// ResultCacheStats tracks cache performance metrics
type ResultCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// ResultCache keeps the latest forecast and insights of a job in Redis.
// Failures degrade to misses; the database stays authoritative.
type ResultCache struct {
	redis       redis.Cmdable
	forecastTTL time.Duration
	insightsTTL time.Duration
	logger      *logrus.Logger

	mu    sync.Mutex
	stats ResultCacheStats
}

func NewResultCache(client redis.Cmdable, forecastTTL, insightsTTL time.Duration, logger *logrus.Logger) *ResultCache {
	return &ResultCache{
		redis:       client,
		forecastTTL: forecastTTL,
		insightsTTL: insightsTTL,
		logger:      logger,
	}
}

func (c *ResultCache) GetForecast(ctx context.Context, jobID string) (*models.ForecastRecord, bool) {
	var rec models.ForecastRecord
	if !c.get(ctx, forecastPrefix+jobID, &rec) {
		return nil, false
	}
	return &rec, true
}

func (c *ResultCache) SetForecast(ctx context.Context, rec *models.ForecastRecord) {
	c.set(ctx, forecastPrefix+rec.JobID, rec, c.forecastTTL)
}

func (c *ResultCache) GetInsights(ctx context.Context, jobID string) (*models.InsightsBundle, bool) {
	var bundle models.InsightsBundle
	if !c.get(ctx, insightsPrefix+jobID, &bundle) {
		return nil, false
	}
	return &bundle, true
}

func (c *ResultCache) SetInsights(ctx context.Context, bundle *models.InsightsBundle) {
	c.set(ctx, insightsPrefix+bundle.JobID, bundle, c.insightsTTL)
}

// InvalidateInsights drops only the cached insights of a job.
func (c *ResultCache) InvalidateInsights(ctx context.Context, jobID string) error {
	if err := c.redis.Del(ctx, insightsPrefix+jobID).Err(); err != nil {
		return fmt.Errorf("failed to invalidate insights cache: %w", err)
	}
	return nil
}

// Invalidate drops every cached result of a job.
func (c *ResultCache) Invalidate(ctx context.Context, jobID string) error {
	if err := c.redis.Del(ctx, forecastPrefix+jobID, insightsPrefix+jobID).Err(); err != nil {
		return fmt.Errorf("failed to invalidate result cache: %w", err)
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (c *ResultCache) Stats() ResultCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *ResultCache) get(ctx context.Context, key string, dst interface{}) bool {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithFields(logrus.Fields{"key": key, "error": err}).Warn("Result cache read failed")
		}
		c.record(func(s *ResultCacheStats) { s.Misses++ })
		return false
	}

	var entry ResultCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || json.Unmarshal(entry.Payload, dst) != nil {
		c.logger.WithField("key", key).Warn("Discarding undecodable result cache entry")
		c.record(func(s *ResultCacheStats) { s.Misses++ })
		return false
	}

	c.record(func(s *ResultCacheStats) { s.Hits++ })
	return true
}

func (c *ResultCache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.WithFields(logrus.Fields{"key": key, "error": err}).Warn("Failed to encode result cache entry")
		return
	}
	now := time.Now()
	data, err := json.Marshal(ResultCacheEntry{Payload: payload, CachedAt: now, ExpiresAt: now.Add(ttl)})
	if err != nil {
		return
	}

	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.WithFields(logrus.Fields{"key": key, "error": err}).Warn("Result cache write failed")
		return
	}
	c.record(func(s *ResultCacheStats) { s.Sets++ })
}

func (c *ResultCache) record(update func(*ResultCacheStats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}
