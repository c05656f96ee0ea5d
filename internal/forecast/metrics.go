package forecast

import (
	"math"
	"time"

	"github.com/irfndi/forecast-ai-go/internal/bias"
	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

// mapeCap bounds MAPE so near-zero actuals cannot explode it.
const mapeCap = 100.0

// Evaluate scores predictions against held-out actuals. A zero actual uses a
// denominator of 1 in MAPE. Bias fields come from the bias analyzer, grouped by
// quarter of dates when given.
func Evaluate(actual, predicted []float64, dates []time.Time, trainSize int) models.ForecastMetrics {
	n := len(actual)
	if len(predicted) < n {
		n = len(predicted)
	}
	m := models.ForecastMetrics{TrainSize: trainSize, TestSize: n}
	if n == 0 {
		bias.Analyze(nil, nil, nil).Apply(&m)
		return m
	}

	var absSum, sqSum, pctSum float64
	for i := 0; i < n; i++ {
		e := actual[i] - predicted[i]
		absSum += math.Abs(e)
		sqSum += e * e
		denom := actual[i]
		if denom == 0 {
			denom = 1
		}
		pctSum += math.Abs(e / denom)
	}
	m.MAE = utils.Round(absSum/float64(n), 2)
	m.RMSE = utils.Round(math.Sqrt(sqSum/float64(n)), 2)
	m.MAPE = utils.Round(math.Min(pctSum/float64(n)*100, mapeCap), 2)

	bias.Analyze(actual[:n], predicted[:n], dates).Apply(&m)
	return m
}
