package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"gonum.org/v1/gonum/stat"

	"github.com/irfndi/forecast-ai-go/internal/calendar"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

// Lag offsets and rolling windows, in periods.
var (
	LagOffsets     = []int{1, 7, 14, 30}
	RollingWindows = []int{7, 14, 30}
)

// CalendarColumns are derived from the date alone.
var CalendarColumns = []string{
	"year", "month", "day", "day_of_week", "week_of_year", "quarter",
	"is_weekend", "is_month_start", "is_month_end",
}

// HolidayColumns are the numeric holiday features. holiday_name is added as a
// categorical column alongside them.
var HolidayColumns = []string{"is_holiday", "days_to_holiday", "days_from_holiday"}

// HolidayNameColumn holds the holiday label, empty on ordinary days.
const HolidayNameColumn = "holiday_name"

// CalendarFeatures returns the calendar columns of a single date. Day of week
// counts Monday as 0.
func CalendarFeatures(t time.Time) map[string]float64 {
	d := calendar.Date(t)
	dow := (int(d.Weekday()) + 6) % 7
	_, week := d.ISOWeek()
	return map[string]float64{
		"year":           float64(d.Year()),
		"month":          float64(d.Month()),
		"day":            float64(d.Day()),
		"day_of_week":    float64(dow),
		"week_of_year":   float64(week),
		"quarter":        float64((int(d.Month())-1)/3 + 1),
		"is_weekend":     boolFloat(dow >= 5),
		"is_month_start": boolFloat(d.Day() == 1),
		"is_month_end":   boolFloat(d.AddDate(0, 0, 1).Month() != d.Month()),
	}
}

// HolidayFeatures returns the numeric holiday columns for each date.
func HolidayFeatures(dates []time.Time) []map[string]float64 {
	flags := calendar.Flags(dates)
	out := make([]map[string]float64, len(flags))
	for i, fl := range flags {
		out[i] = map[string]float64{
			"is_holiday":        boolFloat(fl.IsHoliday),
			"days_to_holiday":   float64(fl.DaysToHoliday),
			"days_from_holiday": float64(fl.DaysFromHoliday),
		}
	}
	return out
}

// TargetFeatureNames lists the engineered columns derived from the target.
func TargetFeatureNames(target string) []string {
	var names []string
	for _, lag := range LagOffsets {
		names = append(names, fmt.Sprintf("%s_lag_%d", target, lag))
	}
	for _, w := range RollingWindows {
		names = append(names, fmt.Sprintf("%s_rolling_mean_%d", target, w), fmt.Sprintf("%s_rolling_std_%d", target, w))
	}
	return append(names, target+"_diff", target+"_pct_change")
}

// NextTargetFeatures computes the target-derived features of a row that would
// follow history. Lags reach back into history and clamp to its first value;
// rolling statistics cover the trailing window of history.
func NextTargetFeatures(target string, history []float64) map[string]float64 {
	out := make(map[string]float64)
	n := len(history)
	if n == 0 {
		for _, name := range TargetFeatureNames(target) {
			out[name] = 0
		}
		return out
	}
	for _, lag := range LagOffsets {
		idx := n - lag
		if idx < 0 {
			idx = 0
		}
		out[fmt.Sprintf("%s_lag_%d", target, lag)] = history[idx]
	}
	for _, w := range RollingWindows {
		start := n - w
		if start < 0 {
			start = 0
		}
		win := history[start:]
		out[fmt.Sprintf("%s_rolling_mean_%d", target, w)] = stat.Mean(win, nil)
		std := 0.0
		if len(win) > 1 {
			std = stat.StdDev(win, nil)
		}
		out[fmt.Sprintf("%s_rolling_std_%d", target, w)] = std
	}
	diff, pct := 0.0, 0.0
	if n > 1 {
		diff = history[n-1] - history[n-2]
		pct = pctChange(history[n-2], history[n-1])
	}
	out[target+"_diff"] = diff
	out[target+"_pct_change"] = pct
	return out
}

// EngineerFeatures adds calendar, lag, rolling, difference, elasticity and
// holiday columns for target. Series features are computed within each group
// when the frame is grouped. Gaps left by warm-up are back-filled, then
// forward-filled, then zero-filled.
func EngineerFeatures(f *Frame, target string) (*Frame, error) {
	if _, ok := f.Numeric(target); !ok {
		return nil, utils.NewConfigurationErrorf("target_column", "Target column '%s' not found in data", target)
	}
	out := f.SortByDate()
	n := out.Len()

	cal := make(map[string][]float64, len(CalendarColumns))
	for _, name := range CalendarColumns {
		cal[name] = make([]float64, n)
	}
	for i, d := range out.Dates {
		for name, v := range CalendarFeatures(d) {
			cal[name][i] = v
		}
	}
	for _, name := range CalendarColumns {
		out.SetNumeric(name, cal[name])
	}

	y, _ := out.Numeric(target)
	derived := make(map[string][]float64)
	names := TargetFeatureNames(target)
	price, hasPrice := out.Numeric("price")
	units, hasUnits := out.Numeric("units_sold")
	elastic := hasPrice && hasUnits
	if elastic {
		names = append(names, "price_lag_1", "units_lag_1", "price_elasticity")
	}
	for _, name := range names {
		derived[name] = nanSlice(n)
	}

	groups := out.groupIndices()
	for _, idx := range groups {
		series := gather(y, idx)
		for _, lag := range LagOffsets {
			scatter(derived[fmt.Sprintf("%s_lag_%d", target, lag)], idx, shift(series, lag))
		}
		for _, w := range RollingWindows {
			scatter(derived[fmt.Sprintf("%s_rolling_mean_%d", target, w)], idx, rollingMean(series, w))
			scatter(derived[fmt.Sprintf("%s_rolling_std_%d", target, w)], idx, rollingStd(series, w))
		}
		scatter(derived[target+"_diff"], idx, difference(series))
		scatter(derived[target+"_pct_change"], idx, percentChange(series))
		if elastic {
			p, u := gather(price, idx), gather(units, idx)
			scatter(derived["price_lag_1"], idx, shift(p, 1))
			scatter(derived["units_lag_1"], idx, shift(u, 1))
			scatter(derived["price_elasticity"], idx, elasticity(p, u))
		}
	}
	for _, name := range names {
		out.SetNumeric(name, derived[name])
	}

	hol := HolidayFeatures(out.Dates)
	holCols := make(map[string][]float64, len(HolidayColumns))
	for _, name := range HolidayColumns {
		holCols[name] = make([]float64, n)
	}
	for i, row := range hol {
		for name, v := range row {
			holCols[name][i] = v
		}
	}
	for _, name := range HolidayColumns {
		out.SetNumeric(name, holCols[name])
	}
	nameCol := newCategorical(HolidayNameColumn, n)
	for i, fl := range calendar.Flags(out.Dates) {
		nameCol.Strs[i] = fl.HolidayName
	}
	out.addColumn(nameCol)

	fillGaps(out, groups)
	return out, nil
}

// rollingMean is the trailing mean with a minimum of one period: a simple
// moving average once the window is full and an expanding mean before that.
func rollingMean(values []float64, window int) []float64 {
	n := len(values)
	out := make([]float64, n)
	sum := 0.0
	for i := 0; i < n && i < window-1; i++ {
		sum += values[i]
		out[i] = sum / float64(i+1)
	}
	if n < window {
		return out
	}
	sma := trend.NewSmaWithPeriod[float64](window)
	full := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
	if len(full) != n-window+1 {
		for i := window - 1; i < n; i++ {
			out[i] = stat.Mean(values[i-window+1:i+1], nil)
		}
		return out
	}
	for j, v := range full {
		out[j+window-1] = v
	}
	return out
}

func shift(values []float64, k int) []float64 {
	out := nanSlice(len(values))
	for i := k; i < len(values); i++ {
		out[i] = values[i-k]
	}
	return out
}

func difference(values []float64) []float64 {
	out := nanSlice(len(values))
	for i := 1; i < len(values); i++ {
		out[i] = values[i] - values[i-1]
	}
	return out
}

func percentChange(values []float64) []float64 {
	out := nanSlice(len(values))
	for i := 1; i < len(values); i++ {
		out[i] = pctChange(values[i-1], values[i])
	}
	return out
}

// pctChange is the fractional change from prev to cur; a zero base yields 0.
func pctChange(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev
}

// elasticity is Δunits% / Δprice%, 0 where price is flat or the ratio is not finite.
func elasticity(price, units []float64) []float64 {
	out := make([]float64, len(price))
	for i := 1; i < len(price); i++ {
		if price[i-1] == 0 || units[i-1] == 0 {
			continue
		}
		dp := (price[i] - price[i-1]) / price[i-1]
		du := (units[i] - units[i-1]) / units[i-1]
		if dp == 0 {
			continue
		}
		out[i] = utils.Finite(du / dp)
	}
	return out
}

// fillGaps resolves remaining NaNs per group: next valid value first, then the
// previous valid value, then zero.
func fillGaps(f *Frame, groups [][]int) {
	for _, name := range f.NumericNames() {
		values := f.cols[name].Nums
		for _, idx := range groups {
			next := math.NaN()
			for j := len(idx) - 1; j >= 0; j-- {
				if v := values[idx[j]]; !math.IsNaN(v) {
					next = v
				} else {
					values[idx[j]] = next
				}
			}
			prev := math.NaN()
			for _, i := range idx {
				if v := values[i]; !math.IsNaN(v) {
					prev = v
				} else {
					values[i] = prev
				}
			}
			for _, i := range idx {
				if math.IsNaN(values[i]) {
					values[i] = 0
				}
			}
		}
	}
}

func gather(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for j, i := range idx {
		out[j] = values[i]
	}
	return out
}

func scatter(dst []float64, idx []int, values []float64) {
	for j, i := range idx {
		dst[i] = values[j]
	}
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
