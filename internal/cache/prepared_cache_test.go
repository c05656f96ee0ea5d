package cache

import (
	"testing"
	"time"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameOf(v float64) *pipeline.Frame {
	return pipeline.NewSeriesFrame(
		[]time.Time{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		map[string][]float64{"revenue": {v}},
	)
}

func TestPreparedKey(t *testing.T) {
	assert.Equal(t, "job_1|monthly|revenue|", PreparedKey("job_1", models.AggregationMonthly, "revenue", ""))
	assert.Equal(t, "job_1|weekly|units|region", PreparedKey("job_1", models.AggregationWeekly, "units", "region"))
}

func TestPreparedCache_Eviction(t *testing.T) {
	c, err := NewPreparedCache(2)
	require.NoError(t, err)

	c.Add("a|monthly|revenue|", frameOf(1))
	c.Add("b|monthly|revenue|", frameOf(2))
	_, ok := c.Get("a|monthly|revenue|")
	require.True(t, ok)

	c.Add("c|monthly|revenue|", frameOf(3))
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get("b|monthly|revenue|")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.Get("a|monthly|revenue|")
	assert.True(t, ok)
}

func TestPreparedCache_PurgeJob(t *testing.T) {
	c, err := NewPreparedCache(8)
	require.NoError(t, err)

	c.Add(PreparedKey("job_1", models.AggregationMonthly, "revenue", ""), frameOf(1))
	c.Add(PreparedKey("job_1", models.AggregationDaily, "revenue", ""), frameOf(2))
	c.Add(PreparedKey("job_10", models.AggregationDaily, "revenue", ""), frameOf(3))

	c.Purge("job_1")
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(PreparedKey("job_10", models.AggregationDaily, "revenue", ""))
	assert.True(t, ok)
}

func TestPreparedCache_Disabled(t *testing.T) {
	c, err := NewPreparedCache(0)
	require.NoError(t, err)

	c.Add("k", frameOf(1))
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
	c.Purge("k")
}
