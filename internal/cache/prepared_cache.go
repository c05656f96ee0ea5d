package cache

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/pipeline"
)

// PreparedCache keeps recently prepared series in process, keyed by job and
// preparation settings. Frames are shared; callers must not mutate them.
type PreparedCache struct {
	frames *lru.Cache[string, *pipeline.Frame]
}

// NewPreparedCache returns a cache holding at most size frames. A
// non-positive size disables caching.
func NewPreparedCache(size int) (*PreparedCache, error) {
	if size <= 0 {
		return &PreparedCache{}, nil
	}
	frames, err := lru.New[string, *pipeline.Frame](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create prepared cache: %w", err)
	}
	return &PreparedCache{frames: frames}, nil
}

// PreparedKey identifies one preparation of a job's upload.
func PreparedKey(jobID string, agg models.Aggregation, target, groupBy string) string {
	return fmt.Sprintf("%s|%s|%s|%s", jobID, agg, target, groupBy)
}

// Get returns the cached frame for key. A disabled cache always misses.
func (c *PreparedCache) Get(key string) (*pipeline.Frame, bool) {
	if c.frames == nil {
		return nil, false
	}
	return c.frames.Get(key)
}

// Add stores f under key, evicting the least recently used frame when full.
func (c *PreparedCache) Add(key string, f *pipeline.Frame) {
	if c.frames == nil {
		return
	}
	c.frames.Add(key, f)
}

// Purge drops every entry of a job.
func (c *PreparedCache) Purge(jobID string) {
	if c.frames == nil {
		return
	}
	prefix := jobID + "|"
	for _, key := range c.frames.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.frames.Remove(key)
		}
	}
}

// Len is the number of cached frames.
func (c *PreparedCache) Len() int {
	if c.frames == nil {
		return 0
	}
	return c.frames.Len()
}
