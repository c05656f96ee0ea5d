package forecast

import (
	"math"
	"time"

	"github.com/irfndi/forecast-ai-go/internal/calendar"
	"github.com/irfndi/forecast-ai-go/internal/pipeline"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

// promotionColumn is the optional binary regressor.
const promotionColumn = "promotion_flag"

// dateSeries is a target series with one value per date.
type dateSeries struct {
	dates []time.Time
	y     []float64
	promo []float64
}

// collapseDates extracts target and promotion columns, summing the target and
// taking the maximum promotion flag across rows that share a date. Missing
// values count as 0.
func collapseDates(f *pipeline.Frame, target string) (*dateSeries, error) {
	y, ok := f.Numeric(target)
	if !ok {
		return nil, utils.NewConfigurationErrorf("target_column", "Target column '%s' not found in data", target)
	}
	promo, hasPromo := f.Numeric(promotionColumn)

	sorted := f.SortByDate()
	y, _ = sorted.Numeric(target)
	if hasPromo {
		promo, _ = sorted.Numeric(promotionColumn)
	}

	s := &dateSeries{}
	for i, d := range sorted.Dates {
		d = calendar.Date(d)
		v := zeroIfNaN(y[i])
		p := 0.0
		if hasPromo {
			p = zeroIfNaN(promo[i])
		}
		last := len(s.dates) - 1
		if last >= 0 && s.dates[last].Equal(d) {
			s.y[last] += v
			if hasPromo {
				s.promo[last] = math.Max(s.promo[last], p)
			}
			continue
		}
		s.dates = append(s.dates, d)
		s.y = append(s.y, v)
		if hasPromo {
			s.promo = append(s.promo, p)
		}
	}
	return s, nil
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
