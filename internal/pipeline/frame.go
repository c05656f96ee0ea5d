package pipeline

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// DateColumn is the normalized name of the date column.
const DateColumn = "date"

// ColumnKind distinguishes numeric measures from categorical labels.
type ColumnKind int

const (
	Numeric ColumnKind = iota
	Categorical
)

// Column is a typed column. Missing numeric cells are NaN; missing categorical
// cells are flagged in Null.
type Column struct {
	Name string
	Kind ColumnKind
	Nums []float64
	Strs []string
	Null []bool
}

func newNumeric(name string, n int) *Column {
	return &Column{Name: name, Kind: Numeric, Nums: make([]float64, n)}
}

func newCategorical(name string, n int) *Column {
	return &Column{Name: name, Kind: Categorical, Strs: make([]string, n), Null: make([]bool, n)}
}

// Len returns the number of cells.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Nums)
	}
	return len(c.Strs)
}

// Missing reports whether cell i is empty.
func (c *Column) Missing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Nums[i])
	}
	return c.Null[i]
}

// MissingCount returns the number of empty cells.
func (c *Column) MissingCount() int {
	count := 0
	for i := 0; i < c.Len(); i++ {
		if c.Missing(i) {
			count++
		}
	}
	return count
}

// String renders cell i as a label regardless of kind.
func (c *Column) String(i int) string {
	if c.Kind == Numeric {
		return strconv.FormatFloat(c.Nums[i], 'f', -1, 64)
	}
	return c.Strs[i]
}

func (c *Column) take(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Nums = make([]float64, len(idx))
		for j, i := range idx {
			out.Nums[j] = c.Nums[i]
		}
		return out
	}
	out.Strs = make([]string, len(idx))
	out.Null = make([]bool, len(idx))
	for j, i := range idx {
		out.Strs[j] = c.Strs[i]
		out.Null[j] = c.Null[i]
	}
	return out
}

// Frame is a column-oriented table with a dedicated date column.
// DateValid marks rows whose date parsed; prepared frames are always valid.
type Frame struct {
	Dates     []time.Time
	DateValid []bool
	HasDate   bool
	GroupBy   string

	names []string
	cols  map[string]*Column
}

func newFrame(n int, hasDate bool) *Frame {
	f := &Frame{HasDate: hasDate, cols: make(map[string]*Column)}
	if hasDate {
		f.Dates = make([]time.Time, n)
		f.DateValid = make([]bool, n)
		f.names = append(f.names, DateColumn)
	}
	return f
}

// NewSeriesFrame builds a frame from dates and numeric columns. It is the entry
// point for callers that already hold an aggregated series.
func NewSeriesFrame(dates []time.Time, columns map[string][]float64, order ...string) *Frame {
	f := newFrame(len(dates), true)
	copy(f.Dates, dates)
	for i := range f.DateValid {
		f.DateValid[i] = true
	}
	if len(order) == 0 {
		for name := range columns {
			order = append(order, name)
		}
		sort.Strings(order)
	}
	for _, name := range order {
		col := newNumeric(name, len(dates))
		copy(col.Nums, columns[name])
		f.addColumn(col)
	}
	return f
}

// Len returns the row count.
func (f *Frame) Len() int {
	if f.HasDate {
		return len(f.Dates)
	}
	for _, c := range f.cols {
		return c.Len()
	}
	return 0
}

// Names returns column names in order, including the date column.
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// HasColumn reports whether name is present, the date column included.
func (f *Frame) HasColumn(name string) bool {
	if name == DateColumn {
		return f.HasDate
	}
	_, ok := f.cols[name]
	return ok
}

// Column returns a non-date column by name.
func (f *Frame) Column(name string) (*Column, bool) {
	c, ok := f.cols[name]
	return c, ok
}

// Numeric returns the values of a numeric column.
func (f *Frame) Numeric(name string) ([]float64, bool) {
	c, ok := f.cols[name]
	if !ok || c.Kind != Numeric {
		return nil, false
	}
	return c.Nums, true
}

// NumericNames returns the numeric column names in order.
func (f *Frame) NumericNames() []string {
	return f.namesOfKind(Numeric)
}

// CategoricalNames returns the categorical column names in order.
func (f *Frame) CategoricalNames() []string {
	return f.namesOfKind(Categorical)
}

func (f *Frame) namesOfKind(kind ColumnKind) []string {
	var out []string
	for _, name := range f.names {
		if c, ok := f.cols[name]; ok && c.Kind == kind {
			out = append(out, name)
		}
	}
	return out
}

// SetNumeric adds or replaces a numeric column.
func (f *Frame) SetNumeric(name string, values []float64) {
	col := newNumeric(name, len(values))
	copy(col.Nums, values)
	f.addColumn(col)
}

func (f *Frame) addColumn(col *Column) {
	if _, exists := f.cols[col.Name]; !exists {
		f.names = append(f.names, col.Name)
	}
	f.cols[col.Name] = col
}

// Take returns a new frame holding rows idx in that order.
func (f *Frame) Take(idx []int) *Frame {
	out := &Frame{HasDate: f.HasDate, GroupBy: f.GroupBy, names: f.Names(), cols: make(map[string]*Column, len(f.cols))}
	if f.HasDate {
		out.Dates = make([]time.Time, len(idx))
		out.DateValid = make([]bool, len(idx))
		for j, i := range idx {
			out.Dates[j] = f.Dates[i]
			out.DateValid[j] = f.DateValid[i]
		}
	}
	for name, c := range f.cols {
		out.cols[name] = c.take(idx)
	}
	return out
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	idx := make([]int, f.Len())
	for i := range idx {
		idx[i] = i
	}
	return f.Take(idx)
}

// SortByDate returns a copy ordered by ascending date, keeping ties in row order.
func (f *Frame) SortByDate() *Frame {
	idx := make([]int, f.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return f.Dates[idx[a]].Before(f.Dates[idx[b]]) })
	return f.Take(idx)
}

// groupIndices partitions row indices by the frame's group column, in order of
// first appearance. Without a group column all rows form one partition.
func (f *Frame) groupIndices() [][]int {
	col, ok := f.cols[f.GroupBy]
	if f.GroupBy == "" || !ok {
		all := make([]int, f.Len())
		for i := range all {
			all[i] = i
		}
		return [][]int{all}
	}
	pos := make(map[string]int)
	var groups [][]int
	for i := 0; i < col.Len(); i++ {
		key := col.String(i)
		p, seen := pos[key]
		if !seen {
			p = len(groups)
			pos[key] = p
			groups = append(groups, nil)
		}
		groups[p] = append(groups[p], i)
	}
	return groups
}

// Records renders the first n rows as maps keyed by column name. Dates are
// formatted YYYY-MM-DD and missing cells are nil.
func (f *Frame) Records(n int) []map[string]interface{} {
	if n > f.Len() || n < 0 {
		n = f.Len()
	}
	out := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		row := make(map[string]interface{}, len(f.names))
		for _, name := range f.names {
			if name == DateColumn {
				if f.DateValid[i] {
					row[name] = f.Dates[i].Format("2006-01-02")
				} else {
					row[name] = nil
				}
				continue
			}
			c := f.cols[name]
			switch {
			case c.Missing(i):
				row[name] = nil
			case c.Kind == Numeric:
				row[name] = c.Nums[i]
			default:
				row[name] = c.Strs[i]
			}
		}
		out[i] = row
	}
	return out
}
