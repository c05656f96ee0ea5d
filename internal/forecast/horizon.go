package forecast

import (
	"time"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/pipeline"
)

// Periods converts a horizon in months to a number of periods at the given
// granularity: 30 per month for daily, 4 for weekly, 1 for monthly.
func Periods(horizonMonths int, agg models.Aggregation) int {
	switch agg {
	case models.AggregationDaily:
		return horizonMonths * 30
	case models.AggregationWeekly:
		return horizonMonths * 4
	default:
		return horizonMonths
	}
}

// FutureDates returns the forecast dates following last. The first date is the
// first period anchor (day, Sunday or month end) on or after last plus one day.
func FutureDates(last time.Time, horizonMonths int, agg models.Aggregation) []time.Time {
	n := Periods(horizonMonths, agg)
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, n)
	d := pipeline.PeriodEnd(agg, last.AddDate(0, 0, 1))
	for i := range out {
		out[i] = d
		d = pipeline.NextPeriod(agg, d)
	}
	return out
}
