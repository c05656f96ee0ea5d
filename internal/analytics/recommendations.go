package analytics

import (
	"fmt"
	"math"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"gonum.org/v1/gonum/stat"
)

const (
	growthWindow       = 12
	forecastWindow     = 6
	strongGrowth       = 15.0
	decline            = -10.0
	volatilityCutoff   = 30.0
	seasonalMinHistory = 30
	seasonalCutoff     = 30.0
	featureCutoff      = 20.0
	maxForecastRecs    = 4
)

// Recommend proposes up to four revenue actions from a forecast, the
// historical series it was trained on and the model's feature importances.
// Importances are percentages, as reported by the tree-ensemble strategy.
func Recommend(forecast, historical []models.ForecastPoint, importance []models.FeatureImportance) []models.ForecastRecommendation {
	recs := make([]models.ForecastRecommendation, 0, maxForecastRecs)
	if len(forecast) == 0 || len(historical) == 0 {
		return recs
	}

	growth := growthRate(forecast, historical)
	switch {
	case growth > strongGrowth:
		p := math.Min(growth/10, 8)
		recs = append(recs, models.ForecastRecommendation{
			ID:             "price_optimize",
			Title:          "Optimize Pricing",
			Description:    fmt.Sprintf("Strong growth detected (+%.1f%%). Consider raising prices by %.1f%% for maximum revenue.", growth, p),
			Impact:         "high",
			Action:         fmt.Sprintf("Increase prices by %.1f%%", p),
			ExpectedUplift: fmt.Sprintf("+%.1f%% revenue", p*0.7),
		})
	case growth < decline:
		d := math.Min(math.Abs(growth)/5, 15)
		recs = append(recs, models.ForecastRecommendation{
			ID:             "promotional_discount",
			Title:          "Launch Promotion",
			Description:    fmt.Sprintf("Declining trend detected (%.1f%%). Offer %.1f%% discount to boost volume.", growth, d),
			Impact:         "high",
			Action:         fmt.Sprintf("Apply %.1f%% promotional discount", d),
			ExpectedUplift: fmt.Sprintf("+%.1f%% volume", d*1.5),
		})
	}

	if vol := volatility(forecast); vol > volatilityCutoff {
		recs = append(recs, models.ForecastRecommendation{
			ID:             "inventory_buffer",
			Title:          "Increase Safety Stock",
			Description:    fmt.Sprintf("High volatility detected (%.1f%%). Recommend %d weeks of buffer inventory.", vol, int(vol/5)),
			Impact:         "medium",
			Action:         "Increase safety stock",
			ExpectedUplift: "Reduce stockout risk by ~40%",
		})
	}

	if len(historical) > seasonalMinHistory {
		if s := recentSeasonality(historical); s > seasonalCutoff {
			recs = append(recs, models.ForecastRecommendation{
				ID:             "seasonal_campaign",
				Title:          "Launch Seasonal Campaign",
				Description:    fmt.Sprintf("Seasonal pattern detected (%.1f%% variation). Target peak season with premium products.", s),
				Impact:         "medium",
				Action:         "Focus marketing on peak season",
				ExpectedUplift: fmt.Sprintf("+%.1f%% peak period revenue", math.Min(s*0.3, 25)),
			})
		}
	}

	if len(importance) > 0 && importance[0].Importance > featureCutoff {
		top := importance[0]
		recs = append(recs, models.ForecastRecommendation{
			ID:             "feature_focus",
			Title:          "Focus on " + top.Feature,
			Description:    fmt.Sprintf("%s is the strongest predictor (%.1f%% importance). Optimize this lever.", top.Feature, top.Importance),
			Impact:         "medium",
			Action:         fmt.Sprintf("Optimize %s strategy", top.Feature),
			ExpectedUplift: fmt.Sprintf("+%.1f%% accuracy improvement", math.Min(top.Importance, 20)),
		})
	}

	if len(recs) > maxForecastRecs {
		recs = recs[:maxForecastRecs]
	}
	return recs
}

// growthRate compares the first forecast periods with the recent nonzero
// actuals. It is 0 when there is no positive history to compare against.
func growthRate(forecast, historical []models.ForecastPoint) float64 {
	var recent []float64
	for _, p := range tail(historical, growthWindow) {
		if p.Actual != nil && *p.Actual != 0 && !math.IsNaN(*p.Actual) {
			recent = append(recent, *p.Actual)
		}
	}
	if len(recent) == 0 {
		return 0
	}
	avgHist := stat.Mean(recent, nil)
	if avgHist <= 0 {
		return 0
	}

	head := forecast
	if len(head) > forecastWindow {
		head = head[:forecastWindow]
	}
	avgForecast := stat.Mean(predictions(head), nil)
	return (avgForecast - avgHist) / avgHist * 100
}

// volatility is the population coefficient of variation of the forecast, in
// percent. A zero mean is treated as 1.
func volatility(forecast []models.ForecastPoint) float64 {
	mean, std := stat.PopMeanStdDev(predictions(forecast), nil)
	if mean == 0 {
		mean = 1
	}
	return std / mean * 100
}

func recentSeasonality(historical []models.ForecastPoint) float64 {
	recent := tail(historical, growthWindow)
	hi, lo := math.Inf(-1), math.Inf(1)
	for _, p := range recent {
		v := 0.0
		if p.Actual != nil {
			v = *p.Actual
		}
		hi = math.Max(hi, v)
		lo = math.Min(lo, v)
	}
	if lo <= 0 {
		return 0
	}
	return (hi - lo) / lo * 100
}

func predictions(points []models.ForecastPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Predicted
	}
	return out
}

func tail(points []models.ForecastPoint, n int) []models.ForecastPoint {
	if len(points) > n {
		return points[len(points)-n:]
	}
	return points
}
