package pipeline

import (
	"math"
	"sort"
)

// iqrMultiplier scales the interquartile range when bounding outliers.
const iqrMultiplier = 1.5

// Clean drops rows without a valid date, fills numeric gaps with the column
// median and categorical gaps with the column mode. The input is not modified.
func Clean(f *Frame) *Frame {
	var keep []int
	for i := 0; i < f.Len(); i++ {
		if !f.HasDate || f.DateValid[i] {
			keep = append(keep, i)
		}
	}
	out := f.Take(keep)

	for _, name := range out.names {
		col, ok := out.cols[name]
		if !ok {
			continue
		}
		if col.Kind == Numeric {
			fill := Median(col.Nums)
			if math.IsNaN(fill) {
				fill = 0
			}
			for i, v := range col.Nums {
				if math.IsNaN(v) {
					col.Nums[i] = fill
				}
			}
			continue
		}
		fill := mode(col)
		for i := range col.Strs {
			if col.Null[i] {
				col.Strs[i] = fill
				col.Null[i] = false
			}
		}
	}
	return out
}

// mode returns the most frequent non-missing label, the lexically smallest on ties.
func mode(col *Column) string {
	counts := make(map[string]int)
	for i, s := range col.Strs {
		if !col.Null[i] {
			counts[s]++
		}
	}
	labels := make([]string, 0, len(counts))
	for s := range counts {
		labels = append(labels, s)
	}
	sort.Strings(labels)

	best, bestCount := "", 0
	for _, s := range labels {
		if counts[s] > bestCount {
			best, bestCount = s, counts[s]
		}
	}
	return best
}

// BoundOutliers clips numeric columns to [Q1 - 1.5*IQR, Q3 + 1.5*IQR]. With no
// columns given every numeric column is bounded. The input is not modified.
func BoundOutliers(f *Frame, columns ...string) *Frame {
	out := f.Clone()
	if len(columns) == 0 {
		columns = out.NumericNames()
	}
	for _, name := range columns {
		col, ok := out.cols[name]
		if !ok || col.Kind != Numeric {
			continue
		}
		q1, q3 := Quantile(col.Nums, 0.25), Quantile(col.Nums, 0.75)
		if math.IsNaN(q1) || math.IsNaN(q3) {
			continue
		}
		iqr := q3 - q1
		lower, upper := q1-iqrMultiplier*iqr, q3+iqrMultiplier*iqr
		for i, v := range col.Nums {
			switch {
			case math.IsNaN(v):
			case v < lower:
				col.Nums[i] = lower
			case v > upper:
				col.Nums[i] = upper
			}
		}
	}
	return out
}

// measureBoundColumns lists numeric columns worth bounding: indicator columns
// holding only 0 and 1 are skipped so promotions survive clipping.
func measureBoundColumns(f *Frame) []string {
	var out []string
	for _, name := range f.NumericNames() {
		if !isIndicator(f.cols[name].Nums) {
			out = append(out, name)
		}
	}
	return out
}

func isIndicator(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) && v != 0 && v != 1 {
			return false
		}
	}
	return true
}
