// Package bias classifies systematic over- and under-prediction in a forecast's
// held-out residuals.
package bias

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

// neutralBand is the absolute bias percentage treated as neutral.
const neutralBand = 5.0

// Report is the bias and confidence assessment of one set of predictions.
type Report struct {
	ConfidenceScore     float64
	RiskLevel           string
	BiasPercentage      float64
	OverpredictionBias  float64
	UnderpredictionBias float64
	QuarterlyBias       map[string]float64
	Summary             string
}

// Apply copies the report into forecast metrics.
func (r Report) Apply(m *models.ForecastMetrics) {
	m.ConfidenceScore = r.ConfidenceScore
	m.RiskLevel = r.RiskLevel
	m.BiasPercentage = r.BiasPercentage
	m.OverpredictionBias = r.OverpredictionBias
	m.UnderpredictionBias = r.UnderpredictionBias
	m.QuarterlyBias = r.QuarterlyBias
	m.BiasSummary = r.Summary
}

// Analyze compares actual and predicted values. Residuals are actual minus
// predicted, so a negative residual is an overprediction. When dates align with
// the values, residuals are also grouped by calendar quarter.
func Analyze(actual, predicted []float64, dates []time.Time) Report {
	n := len(actual)
	if len(predicted) < n {
		n = len(predicted)
	}
	if n == 0 {
		return Report{RiskLevel: models.RiskLow, Summary: summarize(0, nil)}
	}

	residuals := make([]float64, n)
	absRes := make([]float64, n)
	relErr := make([]float64, n)
	over, under := 0, 0
	for i := 0; i < n; i++ {
		r := actual[i] - predicted[i]
		residuals[i] = r
		absRes[i] = math.Abs(r)
		relErr[i] = math.Abs(r / (math.Abs(actual[i]) + 1))
		switch {
		case r < 0:
			over++
		case r > 0:
			under++
		}
	}

	meanActual := stat.Mean(actual[:n], nil)
	biasPct := 0.0
	if meanActual != 0 {
		biasPct = stat.Mean(residuals, nil) / meanActual * 100
	}

	var quarterly map[string]float64
	if len(dates) >= n {
		quarterly = quarterlyBias(residuals, dates[:n], meanActual)
	}

	return Report{
		ConfidenceScore:     utils.Round(math.Max(0, 100-stat.Mean(relErr, nil)*100), 1),
		RiskLevel:           riskLevel(residuals, absRes),
		BiasPercentage:      utils.Round(biasPct, 2),
		OverpredictionBias:  utils.Round(float64(over)/float64(n)*100, 1),
		UnderpredictionBias: utils.Round(float64(under)/float64(n)*100, 1),
		QuarterlyBias:       quarterly,
		Summary:             summarize(biasPct, quarterly),
	}
}

// QuarterKey labels the calendar quarter of t, e.g. "2023Q1".
func QuarterKey(t time.Time) string {
	return fmt.Sprintf("%dQ%d", t.Year(), (int(t.Month())-1)/3+1)
}

func quarterlyBias(residuals []float64, dates []time.Time, meanActual float64) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, d := range dates {
		k := QuarterKey(d)
		sums[k] += residuals[i]
		counts[k]++
	}
	out := make(map[string]float64, len(sums))
	for k, s := range sums {
		if meanActual == 0 {
			out[k] = 0
			continue
		}
		out[k] = utils.Round(s/float64(counts[k])/meanActual*100, 2)
	}
	return out
}

func riskLevel(residuals, absRes []float64) string {
	_, std := stat.PopMeanStdDev(residuals, nil)
	meanAbs := stat.Mean(absRes, nil)
	switch {
	case std > meanAbs*1.5:
		return models.RiskHigh
	case std > meanAbs*0.8:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func summarize(biasPct float64, quarterly map[string]float64) string {
	var summary string
	switch {
	case biasPct > neutralBand:
		summary = fmt.Sprintf("Model tends to UNDERPREDICT by %.1f%%", math.Abs(biasPct))
	case biasPct < -neutralBand:
		summary = fmt.Sprintf("Model tends to OVERPREDICT by %.1f%%", math.Abs(biasPct))
	default:
		summary = fmt.Sprintf("Model has neutral bias (%.1f%%)", biasPct)
	}

	if len(quarterly) == 0 {
		return summary
	}
	keys := make([]string, 0, len(quarterly))
	for k := range quarterly {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	worst := keys[0]
	for _, k := range keys[1:] {
		if math.Abs(quarterly[k]) > math.Abs(quarterly[worst]) {
			worst = k
		}
	}
	if v := quarterly[worst]; v != 0 {
		direction := "overprediction"
		if v > 0 {
			direction = "underprediction"
		}
		summary += fmt.Sprintf(". Worst bias in %s: %s of %.1f%%", worst, direction, math.Abs(v))
	}
	return summary
}
