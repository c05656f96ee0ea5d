package pipeline

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Quantile returns the linearly interpolated p-quantile of the non-NaN values.
// It returns NaN when no values remain.
func Quantile(values []float64, p float64) float64 {
	sorted := finiteSorted(values)
	if len(sorted) == 0 {
		return math.NaN()
	}
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// Median returns the median of the non-NaN values, averaging the middle pair.
func Median(values []float64) float64 {
	sorted := finiteSorted(values)
	n := len(sorted)
	switch {
	case n == 0:
		return math.NaN()
	case n%2 == 1:
		return sorted[n/2]
	default:
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
}

func finiteSorted(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// rollingStd is the sample standard deviation over a trailing window with a
// minimum of one period; a single-value window yields NaN.
func rollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		w := values[start : i+1]
		if len(w) < 2 {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.StdDev(w, nil)
	}
	return out
}
