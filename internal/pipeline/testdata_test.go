package pipeline

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// salesCSV renders one row per day starting at start. Revenue follows the
// month so monthly totals differ; every tenth day runs a promotion.
func salesCSV(start time.Time, days int) string {
	var b strings.Builder
	b.WriteString("Date,revenue,units_sold,price,promotion_flag,region\n")
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		promo := 0
		if i%10 == 0 {
			promo = 1
		}
		region := "North"
		if i%2 == 1 {
			region = "South"
		}
		revenue := 100 + 10*float64(d.Month()) + float64(i%7)
		fmt.Fprintf(&b, "%s,%.1f,%d,%.2f,%d,%s\n", d.Format("2006-01-02"), revenue, 10+i%5, 9.99+float64(i%3), promo, region)
	}
	return b.String()
}

func loadFrame(t *testing.T, csv string) *Frame {
	t.Helper()
	table, err := Load("sales.csv", []byte(csv))
	require.NoError(t, err)
	return FromTable(table)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seriesFrame builds a daily revenue frame starting 2024-01-01.
func seriesFrame(values []float64) *Frame {
	dates := make([]time.Time, len(values))
	for i := range dates {
		dates[i] = day(2024, 1, 1).AddDate(0, 0, i)
	}
	return NewSeriesFrame(dates, map[string][]float64{"revenue": values})
}
