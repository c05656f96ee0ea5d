package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/pipeline"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

// TreeParams configures the gradient-boosted tree ensemble.
type TreeParams struct {
	Trees           int
	LearningRate    float64
	MaxLeaves       int
	MinSamplesLeaf  int
	FeatureFraction float64
	BaggingFraction float64
	BaggingFreq     int
	Seed            int64
}

// DefaultTreeParams is a moderate-capacity, regularized ensemble.
func DefaultTreeParams() TreeParams {
	return TreeParams{
		Trees:           100,
		LearningRate:    0.05,
		MaxLeaves:       31,
		MinSamplesLeaf:  2,
		FeatureFraction: 0.8,
		BaggingFraction: 0.8,
		BaggingFreq:     5,
		Seed:            42,
	}
}

const (
	topImportances = 10
	// bandScale and bandZ define the fixed-width band: ±1.96 × 0.1 × std(y).
	bandScale = 0.1
	bandZ     = 1.96
)

// excludedFeatures never enter the tree feature set besides the target.
var excludedFeatures = map[string]bool{
	pipeline.DateColumn:        true,
	pipeline.HolidayNameColumn: true,
	"product_id":               true,
	"product_name":             true,
	"region":                   true,
}

// TreeEnsemble is the gradient-boosted tree strategy.
type TreeEnsemble struct {
	params  TreeParams
	enabled bool
	guard   CapacityChecker
}

// NewTreeEnsemble returns the tree strategy. guard may be nil.
func NewTreeEnsemble(params TreeParams, enabled bool, guard CapacityChecker) *TreeEnsemble {
	return &TreeEnsemble{params: params, enabled: enabled, guard: guard}
}

// Name implements Strategy.
func (t *TreeEnsemble) Name() string { return models.StrategyTreeEnsemble }

// Available implements Strategy.
func (t *TreeEnsemble) Available(ctx context.Context) error {
	if !t.enabled {
		return fmt.Errorf("%w: tree ensemble disabled by configuration", ErrStrategyUnavailable)
	}
	if t.guard != nil {
		if err := t.guard.CheckCapacity(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrStrategyUnavailable, err)
		}
	}
	return nil
}

// ensemble is a trained boosted model.
type ensemble struct {
	init  float64
	trees []*regressionTree
}

func (e *ensemble) predict(x []float64) float64 {
	v := e.init
	for _, t := range e.trees {
		v += t.predict(x)
	}
	return utils.Finite(v)
}

// Train implements Strategy.
func (t *TreeEnsemble) Train(ctx context.Context, series *pipeline.Frame, cfg Config) (*models.ForecastResult, error) {
	if _, ok := series.Numeric(cfg.Target); !ok {
		return nil, utils.NewConfigurationErrorf("target_column", "Target column '%s' not found in data", cfg.Target)
	}
	f := series.SortByDate()
	n := f.Len()
	if err := checkLength(n); err != nil {
		return nil, err
	}

	features := featureColumns(f, cfg.Target)
	if len(features) == 0 {
		return nil, utils.NewValidationError("No numeric feature columns available for the tree ensemble")
	}
	x := featureMatrix(f, features)
	yRaw, _ := f.Numeric(cfg.Target)
	y := make([]float64, n)
	for i, v := range yRaw {
		y[i] = zeroIfNaN(v)
	}

	split := splitIndex(n)
	model, splitCounts, err := t.fit(ctx, x[:split], y[:split], len(features))
	if err != nil {
		return nil, err
	}

	testPred := make([]float64, 0, n-split)
	for i := split; i < n; i++ {
		testPred = append(testPred, model.predict(x[i]))
	}
	metrics := Evaluate(y[split:], testPred, f.Dates[split:], split)

	band := bandZ * utils.Finite(bandScale*stat.PopStdDev(y, nil))

	historical := make([]models.ForecastPoint, n)
	for i := 0; i < n; i++ {
		pred := model.predict(x[i])
		actual := utils.Round(y[i], 2)
		historical[i] = models.ForecastPoint{
			Date:       formatDate(f.Dates[i]),
			Actual:     &actual,
			Predicted:  floor0(utils.Round(pred, 2)),
			LowerBound: floor0(utils.Round(pred-band, 2)),
			UpperBound: utils.Round(pred+band, 2),
		}
	}

	future := FutureDates(f.Dates[n-1], cfg.Horizon, cfg.Aggregation)
	preds := recursiveForecast(model, f, features, cfg.Target, future)
	forecastPts := make([]models.ForecastPoint, len(future))
	for i, d := range future {
		p := preds[i]
		forecastPts[i] = models.ForecastPoint{
			Date:       formatDate(d),
			Predicted:  utils.Round(p, 2),
			LowerBound: floor0(utils.Round(p-band, 2)),
			UpperBound: utils.Round(p+band, 2),
		}
	}

	return &models.ForecastResult{
		Strategy:          models.StrategyTreeEnsemble,
		Forecast:          forecastPts,
		Historical:        historical,
		Metrics:           metrics,
		FeatureImportance: importances(features, splitCounts),
	}, nil
}

// fit boosts regression trees on squared error. Rows are re-bagged every
// BaggingFreq rounds; each tree sees a random feature subset.
func (t *TreeEnsemble) fit(ctx context.Context, x [][]float64, y []float64, numFeatures int) (*ensemble, []int, error) {
	p := t.params
	rng := rand.New(rand.NewSource(p.Seed))
	n := len(y)

	model := &ensemble{init: stat.Mean(y, nil)}
	current := make([]float64, n)
	for i := range current {
		current[i] = model.init
	}
	grad := make([]float64, n)
	counts := make([]int, numFeatures)

	bagSize := int(math.Max(1, math.Round(float64(n)*p.BaggingFraction)))
	featSize := int(math.Max(1, math.Round(float64(numFeatures)*p.FeatureFraction)))
	var bag []int

	for iter := 0; iter < p.Trees; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if bag == nil || (p.BaggingFreq > 0 && iter%p.BaggingFreq == 0) {
			bag = sampleWithoutReplacement(rng, n, bagSize)
		}
		for i := range grad {
			grad[i] = y[i] - current[i]
		}
		builder := &treeBuilder{
			x:         x,
			grad:      grad,
			features:  sampleWithoutReplacement(rng, numFeatures, featSize),
			maxLeaves: p.MaxLeaves,
			minLeaf:   p.MinSamplesLeaf,
			shrinkage: p.LearningRate,
		}
		tree, splits := builder.build(bag)
		for _, f := range splits {
			counts[f]++
		}
		model.trees = append(model.trees, tree)
		for i := range current {
			current[i] += tree.predict(x[i])
		}
	}
	return model, counts, nil
}

// featureColumns lists numeric columns usable as features, in frame order.
func featureColumns(f *pipeline.Frame, target string) []string {
	var out []string
	for _, name := range f.NumericNames() {
		if name == target || excludedFeatures[name] || name == f.GroupBy {
			continue
		}
		out = append(out, name)
	}
	return out
}

func featureMatrix(f *pipeline.Frame, features []string) [][]float64 {
	cols := make([][]float64, len(features))
	for j, name := range features {
		cols[j], _ = f.Numeric(name)
	}
	x := make([][]float64, f.Len())
	for i := range x {
		row := make([]float64, len(features))
		for j := range features {
			row[j] = zeroIfNaN(cols[j][i])
		}
		x[i] = row
	}
	return x
}

// recursiveForecast predicts one period at a time. Calendar and holiday
// features are recomputed for each date, target-derived features are rebuilt
// from the running history with earlier predictions appended, and every other
// feature keeps its last observed value.
func recursiveForecast(model *ensemble, f *pipeline.Frame, features []string, target string, future []time.Time) []float64 {
	n := f.Len()
	last := make(map[string]float64, len(features))
	for _, name := range features {
		col, _ := f.Numeric(name)
		last[name] = zeroIfNaN(col[n-1])
	}
	history := targetHistory(f, target)
	holidays := pipeline.HolidayFeatures(future)

	out := make([]float64, len(future))
	for step, d := range future {
		cal := pipeline.CalendarFeatures(d)
		lagged := pipeline.NextTargetFeatures(target, history)
		row := make([]float64, len(features))
		for j, name := range features {
			if v, ok := cal[name]; ok {
				row[j] = v
			} else if v, ok := holidays[step][name]; ok {
				row[j] = v
			} else if v, ok := lagged[name]; ok {
				row[j] = v
			} else {
				row[j] = last[name]
			}
		}
		pred := floor0(model.predict(row))
		out[step] = pred
		history = append(history, pred)
	}
	return out
}

// targetHistory returns the target values of the last row's group, or the
// whole series when the frame is not grouped.
func targetHistory(f *pipeline.Frame, target string) []float64 {
	y, _ := f.Numeric(target)
	n := len(y)
	group, ok := f.Column(f.GroupBy)
	if f.GroupBy == "" || !ok {
		out := make([]float64, n)
		for i, v := range y {
			out[i] = zeroIfNaN(v)
		}
		return out
	}
	label := group.String(n - 1)
	var out []float64
	for i, v := range y {
		if group.String(i) == label {
			out = append(out, zeroIfNaN(v))
		}
	}
	return out
}

// importances ranks features by split count and reports the top ones as a
// percentage of their combined count. Ties keep feature order.
func importances(features []string, counts []int) []models.FeatureImportance {
	idx := make([]int, len(features))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return counts[idx[a]] > counts[idx[b]] })
	if len(idx) > topImportances {
		idx = idx[:topImportances]
	}
	total := 0
	for _, i := range idx {
		total += counts[i]
	}
	denom := float64(total)
	if denom == 0 {
		denom = 1
	}
	out := make([]models.FeatureImportance, len(idx))
	for k, i := range idx {
		out[k] = models.FeatureImportance{
			Feature:    features[i],
			Importance: utils.Round(float64(counts[i])/denom*100, 2),
		}
	}
	return out
}
