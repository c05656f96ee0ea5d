package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/forecast-ai-go/internal/forecast"
)

// ErrCapacityExceeded is returned when every training slot is taken.
var ErrCapacityExceeded = errors.New("forecast capacity exceeded, retry later")

// ResourceGuardConfig bounds concurrent training and memory use.
type ResourceGuardConfig struct {
	// MemoryThresholdPercent is the host memory use above which the tree
	// ensemble strategy reports itself unavailable.
	MemoryThresholdPercent float64
	// MaxConcurrentRuns caps concurrent training runs. Zero derives the cap
	// from the CPU count and installed memory.
	MaxConcurrentRuns int
	MinRuns           int
	MaxRuns           int
}

// HostStats is a snapshot of host resources and training slot usage.
type HostStats struct {
	CPUCores          int     `json:"cpu_cores"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryGB          float64 `json:"memory_gb"`
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	MemoryPressure    bool    `json:"memory_pressure"`
	Goroutines        int     `json:"goroutines"`
	ActiveRuns        int     `json:"active_runs"`
	MaxRuns           int     `json:"max_runs"`
}

// ResourceGuard hands out training slots and reports memory pressure.
type ResourceGuard struct {
	cpuCores        int
	memoryGB        float64
	memoryThreshold float64
	limit           int
	slots           chan struct{}
	logger          *logrus.Logger

	readMemory func(ctx context.Context) (float64, error)
}

// NewResourceGuard samples the host once and sizes the slot pool.
func NewResourceGuard(config ResourceGuardConfig, logger *logrus.Logger) *ResourceGuard {
	if config.MemoryThresholdPercent <= 0 || config.MemoryThresholdPercent > 100 {
		config.MemoryThresholdPercent = 90
	}
	if config.MinRuns <= 0 {
		config.MinRuns = 1
	}
	if config.MaxRuns <= 0 {
		config.MaxRuns = 4
	}

	g := &ResourceGuard{
		cpuCores:        runtime.NumCPU(),
		memoryThreshold: config.MemoryThresholdPercent,
		logger:          logger,
		readMemory:      usedMemoryPercent,
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		g.memoryGB = float64(memInfo.Total) / (1024 * 1024 * 1024)
	} else {
		logger.WithError(err).Warn("Could not get memory info, using default")
		g.memoryGB = 8.0
	}

	g.limit = config.MaxConcurrentRuns
	if g.limit <= 0 {
		g.limit = g.deriveLimit(config)
	}
	g.slots = make(chan struct{}, g.limit)

	logger.WithFields(logrus.Fields{
		"cpu_cores":        g.cpuCores,
		"memory_gb":        g.memoryGB,
		"max_runs":         g.limit,
		"memory_threshold": g.memoryThreshold,
	}).Info("Resource guard initialized")

	return g
}

// deriveLimit allows one run per two cores, reduced on small hosts.
func (g *ResourceGuard) deriveLimit(config ResourceGuardConfig) int {
	limit := g.cpuCores / 2

	switch {
	case g.memoryGB < 4.0:
		limit /= 2
	case g.memoryGB < 8.0:
		limit = limit * 3 / 4
	}

	if limit < config.MinRuns {
		limit = config.MinRuns
	}
	if limit > config.MaxRuns {
		limit = config.MaxRuns
	}
	return limit
}

// Acquire takes a training slot without blocking.
func (g *ResourceGuard) Acquire() error {
	select {
	case g.slots <- struct{}{}:
		return nil
	default:
		return ErrCapacityExceeded
	}
}

// Release returns a slot taken by Acquire.
func (g *ResourceGuard) Release() {
	select {
	case <-g.slots:
	default:
	}
}

// Limit returns the number of training slots.
func (g *ResourceGuard) Limit() int {
	return g.limit
}

// CheckCapacity reports memory pressure as forecast.ErrStrategyUnavailable so
// the registry can fall back to the lighter strategy.
func (g *ResourceGuard) CheckCapacity(ctx context.Context) error {
	used, err := g.readMemory(ctx)
	if err != nil {
		g.logger.WithError(err).Warn("Memory sampling failed, assuming capacity")
		return nil
	}
	if used > g.memoryThreshold {
		return fmt.Errorf("%w: memory usage %.1f%% exceeds %.1f%%", forecast.ErrStrategyUnavailable, used, g.memoryThreshold)
	}
	return nil
}

// Stats samples the host. CPU usage is measured since the previous call.
func (g *ResourceGuard) Stats(ctx context.Context) HostStats {
	stats := HostStats{
		CPUCores:   g.cpuCores,
		MemoryGB:   g.memoryGB,
		Goroutines: runtime.NumGoroutine(),
		ActiveRuns: len(g.slots),
		MaxRuns:    g.limit,
	}
	if percent, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percent) > 0 {
		stats.CPUPercent = percent[0]
	}
	if used, err := g.readMemory(ctx); err == nil {
		stats.MemoryUsedPercent = used
		stats.MemoryPressure = used > g.memoryThreshold
	}
	return stats
}

func usedMemoryPercent(ctx context.Context) (float64, error) {
	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get memory usage: %w", err)
	}
	return memInfo.UsedPercent, nil
}
