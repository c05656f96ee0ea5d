package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/irfndi/forecast-ai-go/internal/calendar"
	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

type aggOp int

const (
	opSum aggOp = iota
	opMean
	opMax
)

type aggSpec struct {
	name string
	op   aggOp
}

type accumulator struct {
	sum   float64
	count int
	max   float64
}

func (a *accumulator) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.count++
}

func (a *accumulator) result(op aggOp) float64 {
	switch op {
	case opMean:
		if a.count == 0 {
			return math.NaN()
		}
		return a.sum / float64(a.count)
	case opMax:
		if a.count == 0 {
			return math.NaN()
		}
		return a.max
	default:
		return a.sum
	}
}

// PeriodEnd returns the label of the bucket containing t: the day itself, the
// Sunday closing its week, or the last day of its month.
func PeriodEnd(agg models.Aggregation, t time.Time) time.Time {
	d := calendar.Date(t)
	switch agg {
	case models.AggregationDaily:
		return d
	case models.AggregationWeekly:
		return d.AddDate(0, 0, (7-int(d.Weekday()))%7)
	default:
		return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	}
}

// NextPeriod returns the bucket label following end.
func NextPeriod(agg models.Aggregation, end time.Time) time.Time {
	switch agg {
	case models.AggregationDaily:
		return end.AddDate(0, 0, 1)
	case models.AggregationWeekly:
		return end.AddDate(0, 0, 7)
	default:
		return time.Date(end.Year(), end.Month()+2, 0, 0, 0, 0, 0, time.UTC)
	}
}

func aggregationSpecs(f *Frame, target string) []aggSpec {
	specs := []aggSpec{{target, opSum}}
	optional := []aggSpec{{"units_sold", opSum}, {"price", opMean}, {"promotion_flag", opMax}}
	for _, s := range optional {
		if s.name == target {
			continue
		}
		if _, ok := f.Numeric(s.name); ok {
			specs = append(specs, s)
		}
	}
	return specs
}

// Aggregate resamples a cleaned frame to the given granularity. The target and
// unit counts are summed, price averaged and the promotion flag maxed. When
// groupBy names an existing column, buckets are formed per (period, group).
func Aggregate(f *Frame, agg models.Aggregation, target, groupBy string) (*Frame, error) {
	if _, ok := f.Numeric(target); !ok {
		return nil, utils.NewConfigurationErrorf("target_column", "Target column '%s' not found in data", target)
	}
	if !f.HasDate {
		return nil, utils.NewConfigurationErrorf("date", "date column is required for aggregation")
	}
	if !agg.Valid() {
		agg = models.AggregationMonthly
	}

	sorted := f.SortByDate()
	specs := aggregationSpecs(sorted, target)

	if groupBy != "" && groupBy != DateColumn && sorted.HasColumn(groupBy) {
		return aggregateGrouped(sorted, agg, specs, groupBy), nil
	}
	return aggregatePeriods(sorted, agg, specs), nil
}

func aggregatePeriods(f *Frame, agg models.Aggregation, specs []aggSpec) *Frame {
	if f.Len() == 0 {
		return emptyAggregate(specs, "", Numeric)
	}

	buckets := make(map[time.Time][]accumulator)
	for i, d := range f.Dates {
		key := PeriodEnd(agg, d)
		accs, ok := buckets[key]
		if !ok {
			accs = make([]accumulator, len(specs))
			buckets[key] = accs
		}
		for s, spec := range specs {
			accs[s].add(f.cols[spec.name].Nums[i])
		}
	}

	first := PeriodEnd(agg, f.Dates[0])
	last := PeriodEnd(agg, f.Dates[f.Len()-1])
	var labels []time.Time
	for d := first; !d.After(last); d = NextPeriod(agg, d) {
		labels = append(labels, d)
	}

	out := newFrame(len(labels), true)
	values := make([][]float64, len(specs))
	for s := range specs {
		values[s] = make([]float64, len(labels))
	}
	for r, d := range labels {
		out.Dates[r] = d
		out.DateValid[r] = true
		accs := buckets[d]
		for s, spec := range specs {
			if accs == nil {
				values[s][r] = (&accumulator{}).result(spec.op)
				continue
			}
			values[s][r] = accs[s].result(spec.op)
		}
	}
	for s, spec := range specs {
		out.SetNumeric(spec.name, values[s])
	}
	return out
}

func aggregateGrouped(f *Frame, agg models.Aggregation, specs []aggSpec, groupBy string) *Frame {
	groupCol := f.cols[groupBy]

	type key struct {
		period time.Time
		group  string
	}
	type bucket struct {
		accs   []accumulator
		num    float64
		exists bool
	}
	buckets := make(map[key]*bucket)
	var keys []key
	for i, d := range f.Dates {
		if groupCol.Missing(i) {
			continue
		}
		k := key{PeriodEnd(agg, d), groupCol.String(i)}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{accs: make([]accumulator, len(specs))}
			if groupCol.Kind == Numeric {
				b.num = groupCol.Nums[i]
			}
			buckets[k] = b
			keys = append(keys, k)
		}
		for s, spec := range specs {
			b.accs[s].add(f.cols[spec.name].Nums[i])
		}
	}

	sort.SliceStable(keys, func(a, b int) bool {
		if !keys[a].period.Equal(keys[b].period) {
			return keys[a].period.Before(keys[b].period)
		}
		if groupCol.Kind == Numeric {
			return buckets[keys[a]].num < buckets[keys[b]].num
		}
		return keys[a].group < keys[b].group
	})

	if len(keys) == 0 {
		return emptyAggregate(specs, groupBy, groupCol.Kind)
	}

	out := newFrame(len(keys), true)
	out.GroupBy = groupBy
	var group *Column
	if groupCol.Kind == Numeric {
		group = newNumeric(groupBy, len(keys))
	} else {
		group = newCategorical(groupBy, len(keys))
	}
	values := make([][]float64, len(specs))
	for s := range specs {
		values[s] = make([]float64, len(keys))
	}
	for r, k := range keys {
		out.Dates[r] = k.period
		out.DateValid[r] = true
		b := buckets[k]
		if group.Kind == Numeric {
			group.Nums[r] = b.num
		} else {
			group.Strs[r] = k.group
		}
		for s, spec := range specs {
			values[s][r] = b.accs[s].result(spec.op)
		}
	}
	out.addColumn(group)
	for s, spec := range specs {
		out.SetNumeric(spec.name, values[s])
	}
	return out
}

func emptyAggregate(specs []aggSpec, groupBy string, kind ColumnKind) *Frame {
	out := newFrame(0, true)
	if groupBy != "" {
		out.GroupBy = groupBy
		if kind == Numeric {
			out.addColumn(newNumeric(groupBy, 0))
		} else {
			out.addColumn(newCategorical(groupBy, 0))
		}
	}
	for _, spec := range specs {
		out.SetNumeric(spec.name, nil)
	}
	return out
}
