package forecast

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/pipeline"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// seasonalCSV is one row per month with a linear trend and a yearly cycle.
func seasonalCSV(months int) string {
	var b strings.Builder
	b.WriteString("date,revenue,units_sold,price,promotion_flag\n")
	for i := 0; i < months; i++ {
		d := time.Date(2021, time.Month(1+i), 15, 0, 0, 0, 0, time.UTC)
		revenue := 1000 + 10*float64(i) + 200*math.Sin(2*math.Pi*float64(d.Month())/12)
		promo := 0
		if d.Month() == time.November {
			promo = 1
		}
		fmt.Fprintf(&b, "%s,%.2f,%d,%.2f,%d\n", d.Format("2006-01-02"), revenue, 100+i, 10+float64(i%3), promo)
	}
	return b.String()
}

func preparedSeries(t *testing.T, csv string, agg models.Aggregation) *pipeline.Frame {
	t.Helper()
	table, err := pipeline.Load("sales.csv", []byte(csv))
	require.NoError(t, err)
	f, err := pipeline.New(table, quietLogger()).PrepareForModeling(agg, "revenue", "")
	require.NoError(t, err)
	return f
}

func monthlyConfig(horizon int) Config {
	return Config{Target: "revenue", Aggregation: models.AggregationMonthly, Horizon: horizon}
}

// dailySeries is a bare daily revenue frame with a weekly cycle.
func dailySeries(days int) *pipeline.Frame {
	dates := make([]time.Time, days)
	values := make([]float64, days)
	for i := range dates {
		dates[i] = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		values[i] = 500 + 50*math.Sin(2*math.Pi*float64(i)/7) + float64(i)
	}
	return pipeline.NewSeriesFrame(dates, map[string][]float64{"revenue": values})
}
