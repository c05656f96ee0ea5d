// Package forecast trains forecasting strategies on a prepared series and
// scores them on a chronological hold-out split.
package forecast

import (
	"context"
	"errors"
	"time"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/pipeline"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

// ErrStrategyUnavailable marks a strategy that cannot run right now. The
// registry falls back to the decomposition strategy when it sees it.
var ErrStrategyUnavailable = errors.New("forecast strategy unavailable")

// trainFraction is the share of rows used for training; the rest is held out.
const trainFraction = 0.8

// minSeriesLength is the smallest series that leaves a training set of two
// rows and a non-empty test split.
const minSeriesLength = 3

// Config parameterizes a single training run.
type Config struct {
	Target      string
	Aggregation models.Aggregation
	// Horizon is always expressed in months; see Periods.
	Horizon int
}

// Strategy is one forecasting method.
type Strategy interface {
	Name() string
	// Available reports whether the strategy can run. It returns an error
	// wrapping ErrStrategyUnavailable when a fallback should be used.
	Available(ctx context.Context) error
	Train(ctx context.Context, series *pipeline.Frame, cfg Config) (*models.ForecastResult, error)
}

// CapacityChecker reports whether the host can afford a heavy training run.
type CapacityChecker interface {
	CheckCapacity(ctx context.Context) error
}

// splitIndex returns the number of training rows for a series of length n.
func splitIndex(n int) int {
	return int(float64(n) * trainFraction)
}

func checkLength(n int) error {
	if n < minSeriesLength {
		return utils.NewValidationErrorf("At least %d data points are required to train a forecast model, got %d", minSeriesLength, n)
	}
	return nil
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func floor0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
