package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/pipeline"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

// AdditiveParams configures the decomposition model.
type AdditiveParams struct {
	Changepoints     int
	ChangepointRange float64
	ChangepointPrior float64
	SeasonalityPrior float64
	YearlyOrder      int
	WeeklyOrder      int
	IntervalWidth    float64
}

// DefaultAdditiveParams mirrors a conservative trend with flexible seasonality.
func DefaultAdditiveParams() AdditiveParams {
	return AdditiveParams{
		Changepoints:     25,
		ChangepointRange: 0.8,
		ChangepointPrior: 0.05,
		SeasonalityPrior: 10,
		YearlyOrder:      10,
		WeeklyOrder:      3,
		IntervalWidth:    0.95,
	}
}

const (
	yearPeriodDays = 365.25
	weekPeriodDays = 7.0
	// basePenalty keeps the trend slope and offset effectively unpenalized.
	basePenalty = 1e-8
)

// Additive fits trend, yearly and weekly seasonality and an optional promotion
// regressor by penalized least squares.
type Additive struct {
	params AdditiveParams
}

// NewAdditive returns the decomposition strategy.
func NewAdditive(params AdditiveParams) *Additive {
	return &Additive{params: params}
}

// Name implements Strategy.
func (a *Additive) Name() string { return models.StrategyDecomposition }

// Available implements Strategy. The additive model has no external needs.
func (a *Additive) Available(context.Context) error { return nil }

// additiveModel is a fitted design: scaling, changepoints and coefficients.
type additiveModel struct {
	params    AdditiveParams
	origin    time.Time
	spanDays  float64
	yScale    float64
	cps       []float64
	weekly    bool
	withPromo bool
	beta      []float64
	sigma     float64
}

// components is a prediction split into its additive parts.
type components struct {
	trend, yearly, weekly, promo float64
}

func (c components) yhat() float64 { return c.trend + c.yearly + c.weekly + c.promo }

// Train implements Strategy.
func (a *Additive) Train(ctx context.Context, series *pipeline.Frame, cfg Config) (*models.ForecastResult, error) {
	s, err := collapseDates(series, cfg.Target)
	if err != nil {
		return nil, err
	}
	n := len(s.dates)
	if err := checkLength(n); err != nil {
		return nil, err
	}
	split := splitIndex(n)

	m, err := a.fit(s, split, cfg.Aggregation == models.AggregationDaily)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	testPred := make([]float64, 0, n-split)
	for i := split; i < n; i++ {
		testPred = append(testPred, m.predict(s.dates[i], promoAt(s, i)).yhat())
	}
	metrics := Evaluate(s.y[split:], testPred, s.dates[split:], split)

	z := distuv.UnitNormal.Quantile(0.5 + a.params.IntervalWidth/2)
	band := z * heldOutSigma(s.y[split:], testPred, m.sigma)

	future := FutureDates(s.dates[n-1], cfg.Horizon, cfg.Aggregation)
	forecastPts := make([]models.ForecastPoint, len(future))
	for i, d := range future {
		yhat := m.predict(d, 0).yhat()
		forecastPts[i] = models.ForecastPoint{
			Date:       formatDate(d),
			Predicted:  floor0(utils.Round(yhat, 2)),
			LowerBound: floor0(utils.Round(yhat-band, 2)),
			UpperBound: utils.Round(yhat+band, 2),
		}
	}

	historical := make([]models.ForecastPoint, n)
	decomp := &models.DecompositionData{
		Trend:    make([]models.SeriesValue, n),
		Seasonal: make([]models.SeriesValue, n),
		Residual: make([]models.SeriesValue, n),
	}
	for i, d := range s.dates {
		c := m.predict(d, promoAt(s, i))
		yhat := c.yhat()
		actual := utils.Round(s.y[i], 2)
		date := formatDate(d)
		historical[i] = models.ForecastPoint{
			Date:       date,
			Actual:     &actual,
			Predicted:  floor0(utils.Round(yhat, 2)),
			LowerBound: floor0(utils.Round(yhat-band, 2)),
			UpperBound: utils.Round(yhat+band, 2),
		}
		decomp.Trend[i] = models.SeriesValue{Date: date, Value: utils.Round(c.trend, 2)}
		decomp.Seasonal[i] = models.SeriesValue{Date: date, Value: utils.Round(c.yearly+c.weekly, 2)}
		decomp.Residual[i] = models.SeriesValue{Date: date, Value: utils.Round(s.y[i]-yhat, 2)}
	}

	return &models.ForecastResult{
		Strategy:      models.StrategyDecomposition,
		Forecast:      forecastPts,
		Historical:    historical,
		Metrics:       metrics,
		Decomposition: decomp,
	}, nil
}

// heldOutSigma is the root mean squared error on the test split, floored at
// the in-sample residual spread. With fewer than two test rows it is the
// in-sample spread.
func heldOutSigma(actual, predicted []float64, inSample float64) float64 {
	if len(actual) < 2 {
		return inSample
	}
	var ss float64
	for i := range actual {
		r := actual[i] - predicted[i]
		ss += r * r
	}
	return math.Max(math.Sqrt(ss/float64(len(actual))), inSample)
}

func promoAt(s *dateSeries, i int) float64 {
	if s.promo == nil {
		return 0
	}
	return s.promo[i]
}

// fit estimates coefficients on the first split rows.
func (a *Additive) fit(s *dateSeries, split int, weekly bool) (*additiveModel, error) {
	m := &additiveModel{
		params:    a.params,
		origin:    s.dates[0],
		weekly:    weekly,
		withPromo: s.promo != nil,
	}
	m.spanDays = s.dates[split-1].Sub(m.origin).Hours() / 24
	if m.spanDays <= 0 {
		m.spanDays = 1
	}
	for _, v := range s.y[:split] {
		m.yScale = math.Max(m.yScale, math.Abs(v))
	}
	if m.yScale == 0 {
		m.yScale = 1
	}
	m.cps = m.changepoints(s.dates[:split])

	p := m.width()
	x := mat.NewDense(split, p, nil)
	y := mat.NewVecDense(split, nil)
	for i := 0; i < split; i++ {
		x.SetRow(i, m.row(s.dates[i], promoAt(s, i)))
		y.SetVec(i, s.y[i]/m.yScale)
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for j, pen := range m.penalties() {
		xtx.Set(j, j, xtx.At(j, j)+pen)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		if _, ill := err.(mat.Condition); !ill {
			return nil, fmt.Errorf("failed to fit additive model: %w", err)
		}
	}
	m.beta = make([]float64, p)
	for j := range m.beta {
		m.beta[j] = beta.AtVec(j)
	}

	residuals := make([]float64, split)
	for i := 0; i < split; i++ {
		residuals[i] = s.y[i] - m.predict(s.dates[i], promoAt(s, i)).yhat()
	}
	if split > 1 {
		m.sigma = stat.StdDev(residuals, nil)
	}
	return m, nil
}

// changepoints places candidate trend breaks uniformly over the first part of
// the training history, on the scaled time axis.
func (m *additiveModel) changepoints(train []time.Time) []float64 {
	histSize := int(math.Floor(float64(len(train)) * m.params.ChangepointRange))
	count := m.params.Changepoints
	if count > histSize-1 {
		count = histSize - 1
	}
	if count <= 0 {
		return nil
	}
	out := make([]float64, 0, count)
	step := float64(histSize-1) / float64(count)
	for j := 1; j <= count; j++ {
		idx := int(math.Round(step * float64(j)))
		out = append(out, m.scaledTime(train[idx]))
	}
	return out
}

func (m *additiveModel) scaledTime(d time.Time) float64 {
	return d.Sub(m.origin).Hours() / 24 / m.spanDays
}

// Column layout: slope, offset, changepoints, yearly terms, weekly terms, promotion.
func (m *additiveModel) width() int {
	p := 2 + len(m.cps) + 2*m.params.YearlyOrder
	if m.weekly {
		p += 2 * m.params.WeeklyOrder
	}
	if m.withPromo {
		p++
	}
	return p
}

func (m *additiveModel) penalties() []float64 {
	out := make([]float64, 0, m.width())
	out = append(out, basePenalty, basePenalty)
	cp := 1 / (m.params.ChangepointPrior * m.params.ChangepointPrior)
	for range m.cps {
		out = append(out, cp)
	}
	season := 1 / (m.params.SeasonalityPrior * m.params.SeasonalityPrior)
	terms := 2 * m.params.YearlyOrder
	if m.weekly {
		terms += 2 * m.params.WeeklyOrder
	}
	for i := 0; i < terms; i++ {
		out = append(out, season)
	}
	if m.withPromo {
		out = append(out, season)
	}
	return out
}

func (m *additiveModel) row(d time.Time, promo float64) []float64 {
	t := m.scaledTime(d)
	out := make([]float64, 0, m.width())
	out = append(out, t, 1)
	for _, c := range m.cps {
		out = append(out, math.Max(0, t-c))
	}
	days := float64(d.Unix()) / 86400
	out = appendFourier(out, days, yearPeriodDays, m.params.YearlyOrder)
	if m.weekly {
		out = appendFourier(out, days, weekPeriodDays, m.params.WeeklyOrder)
	}
	if m.withPromo {
		out = append(out, promo)
	}
	return out
}

func appendFourier(dst []float64, days, period float64, order int) []float64 {
	for k := 1; k <= order; k++ {
		arg := 2 * math.Pi * float64(k) * days / period
		dst = append(dst, math.Sin(arg), math.Cos(arg))
	}
	return dst
}

// predict evaluates the fitted components at d in the original units.
func (m *additiveModel) predict(d time.Time, promo float64) components {
	x := m.row(d, promo)
	var c components
	j := 0
	trendCols := 2 + len(m.cps)
	for ; j < trendCols; j++ {
		c.trend += x[j] * m.beta[j]
	}
	for end := j + 2*m.params.YearlyOrder; j < end; j++ {
		c.yearly += x[j] * m.beta[j]
	}
	if m.weekly {
		for end := j + 2*m.params.WeeklyOrder; j < end; j++ {
			c.weekly += x[j] * m.beta[j]
		}
	}
	if m.withPromo {
		c.promo = x[j] * m.beta[j]
	}
	c.trend *= m.yScale
	c.yearly *= m.yScale
	c.weekly *= m.yScale
	c.promo *= m.yScale
	return c
}
