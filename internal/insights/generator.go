// Package insights turns a forecast and its history into a narrative bundle of
// KPIs, observations and recommendations. Generation is deterministic.
package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/pipeline"
)

const (
	seasonalVarianceThreshold = 30.0
	promotionLiftThreshold    = 20.0
	priceCorrelationThreshold = 0.3
	maxRecommendations        = 3
	topDrivers                = 3
	slopeEpsilon              = 1e-9
)

var (
	shortMonths  = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	priorityRank = map[string]int{"high": 0, "medium": 1, "low": 2}
)

// History is the prepared series the forecast was trained on. Promotion and
// Price are nil when the upload had no such column.
type History struct {
	Dates     []time.Time
	Values    []float64
	Promotion []float64
	Price     []float64
}

// HistoryFromFrame extracts the target, promotion and price columns.
func HistoryFromFrame(f *pipeline.Frame, target string) History {
	h := History{Dates: append([]time.Time(nil), f.Dates...)}
	h.Values, _ = f.Numeric(target)
	if promo, ok := f.Numeric("promotion_flag"); ok && target != "promotion_flag" {
		h.Promotion = promo
	}
	if price, ok := f.Numeric("price"); ok && target != "price" {
		h.Price = price
	}
	return h
}

// Input is everything the generator reads.
type Input struct {
	History           History
	Forecast          []models.ForecastPoint
	Metrics           models.ForecastMetrics
	Target            string
	FeatureImportance []models.FeatureImportance
}

// Generate builds the insights bundle. JobID and GeneratedAt are left for the caller.
func Generate(in Input) models.InsightsBundle {
	g := generator{in: in, monthly: monthlyMeans(in.History)}
	return models.InsightsBundle{
		Title:           g.title(),
		Summary:         g.summary(),
		KPIs:            g.kpis(),
		Bullets:         g.bullets(),
		Recommendations: g.recommendations(),
	}
}

type monthMean struct {
	month int
	mean  float64
}

type generator struct {
	in      Input
	monthly []monthMean
}

func (g generator) accuracy() float64 { return 100 - g.in.Metrics.MAPE }

func (g generator) title() string {
	quality := "Indicative"
	switch acc := g.accuracy(); {
	case acc >= 90:
		quality = "High-Confidence"
	case acc >= 80:
		quality = "Reliable"
	}
	return quality + " Sales Forecast Analysis"
}

func (g generator) predictions() []float64 {
	out := make([]float64, len(g.in.Forecast))
	for i, p := range g.in.Forecast {
		out[i] = p.Predicted
	}
	return out
}

func (g generator) summary() string {
	preds := g.predictions()
	total, avgForecast := 0.0, 0.0
	if len(preds) > 0 {
		total = floats.Sum(preds)
		avgForecast = total / float64(len(preds))
	}
	growth := ChangePercent(avgForecast, mean(g.in.History.Values))
	trend := "stable performance"
	if growth > 0 {
		trend = "growth"
	} else if growth < 0 {
		trend = "decline"
	}
	return fmt.Sprintf(
		"Based on analysis of %d historical data points, our model forecasts %s in projected %s over the next %d periods. "+
			"This represents a %.1f%% %s compared to historical averages. Model accuracy: %.1f%% (MAPE: %.1f%%).",
		len(g.in.History.Values), FormatNumber(total), g.in.Target, len(g.in.Forecast),
		math.Abs(growth), trend, g.accuracy(), g.in.Metrics.MAPE)
}

func (g generator) kpis() []models.KPISnapshot {
	var out []models.KPISnapshot
	h := g.in.History

	if len(h.Dates) > 0 {
		current := h.Dates[0].Year()
		for _, d := range h.Dates {
			if d.Year() > current {
				current = d.Year()
			}
		}
		var curTotal, prevTotal float64
		for i, d := range h.Dates {
			switch d.Year() {
			case current:
				curTotal += h.Values[i]
			case current - 1:
				prevTotal += h.Values[i]
			}
		}
		if prevTotal > 0 {
			yoy := ChangePercent(curTotal, prevTotal)
			out = append(out, models.KPISnapshot{Name: "Year-over-Year Growth", Value: FormatPercent(yoy), Trend: trendOf(yoy)})
		}
	}

	if preds := g.predictions(); len(preds) > 0 {
		delta := ChangePercent(mean(preds), mean(h.Values))
		out = append(out, models.KPISnapshot{Name: "Forecast vs Historical", Value: FormatPercent(delta), Trend: trendOf(delta)})
	}

	mape := g.in.Metrics.MAPE
	accTrend := "down"
	if mape < 15 {
		accTrend = "up"
	} else if mape < 25 {
		accTrend = "neutral"
	}
	out = append(out,
		models.KPISnapshot{Name: "Model Accuracy", Value: fmt.Sprintf("%.1f%%", g.accuracy()), Trend: accTrend},
		models.KPISnapshot{Name: "MAE", Value: FormatNumber(g.in.Metrics.MAE), Trend: "neutral"},
	)

	if len(g.monthly) > 0 {
		strength := g.seasonalVariance()
		trend := "neutral"
		if strength > seasonalVarianceThreshold {
			trend = "up"
		}
		out = append(out, models.KPISnapshot{
			Name:   "Seasonality Strength",
			Value:  fmt.Sprintf("%.0f%%", strength),
			Change: fmt.Sprintf("Peak: Month %d", g.peak().month),
			Trend:  trend,
		})
	}
	return out
}

func (g generator) bullets() []models.InsightBullet {
	h := g.in.History
	out := []models.InsightBullet{{
		Icon: "chart-line",
		Text: fmt.Sprintf("Total historical %s: %s with average of %s per period.",
			g.in.Target, FormatNumber(floats.Sum(h.Values)), FormatNumber(mean(h.Values))),
		Severity: "info",
	}}

	if len(g.monthly) > 0 {
		peak, low := g.peak(), g.low()
		if v := g.seasonalVariance(); v > seasonalVarianceThreshold {
			out = append(out, models.InsightBullet{
				Icon: "calendar-check",
				Text: fmt.Sprintf("Strong seasonal pattern detected: Peak sales in %s, lowest in %s (%.0f%% variance).",
					shortMonths[peak.month-1], shortMonths[low.month-1], v),
				Severity: "warning",
			})
		} else {
			out = append(out, models.InsightBullet{
				Icon:     "calendar",
				Text:     fmt.Sprintf("Relatively stable sales across months with slight peaks in %s.", shortMonths[peak.month-1]),
				Severity: "info",
			})
		}
	}

	if preds := g.predictions(); len(preds) > 0 {
		switch slope := forecastSlope(preds); {
		case slope > 0:
			out = append(out, models.InsightBullet{Icon: "trending-up", Text: "Forecast shows upward trend with projected growth over the forecast period.", Severity: "success"})
		case slope < 0:
			out = append(out, models.InsightBullet{Icon: "trending-down", Text: "Forecast indicates declining trend. Consider strategic interventions.", Severity: "warning"})
		default:
			out = append(out, models.InsightBullet{Icon: "minus", Text: "Forecast shows stable performance with minimal variation expected.", Severity: "info"})
		}
	}

	if fi := g.in.FeatureImportance; len(fi) > 0 {
		if len(fi) > topDrivers {
			fi = fi[:topDrivers]
		}
		caser := cases.Title(language.English)
		names := make([]string, len(fi))
		for i, f := range fi {
			names[i] = caser.String(strings.ReplaceAll(f.Feature, "_", " "))
		}
		out = append(out, models.InsightBullet{Icon: "zap", Text: fmt.Sprintf("Top sales drivers: %s.", strings.Join(names, ", ")), Severity: "info"})
	}

	switch mape := g.in.Metrics.MAPE; {
	case mape < 10:
		out = append(out, models.InsightBullet{Icon: "check-circle", Text: "Excellent model accuracy (<10% error). High confidence in forecasts.", Severity: "success"})
	case mape < 20:
		out = append(out, models.InsightBullet{Icon: "check", Text: "Good model accuracy. Forecasts are reliable for planning purposes.", Severity: "info"})
	default:
		out = append(out, models.InsightBullet{Icon: "alert-triangle", Text: "Model accuracy is moderate. Consider using forecasts as directional guidance.", Severity: "warning"})
	}
	return out
}

func (g generator) recommendations() []models.Recommendation {
	var out []models.Recommendation
	h := g.in.History

	if len(g.monthly) > 0 {
		byDesc := append([]monthMean(nil), g.monthly...)
		sort.SliceStable(byDesc, func(a, b int) bool { return byDesc[a].mean > byDesc[b].mean })
		byAsc := append([]monthMean(nil), g.monthly...)
		sort.SliceStable(byAsc, func(a, b int) bool { return byAsc[a].mean < byAsc[b].mean })
		out = append(out, models.Recommendation{
			Category: "Inventory",
			Title:    "Optimize Inventory Levels",
			Description: fmt.Sprintf("Increase inventory 4-6 weeks before peak months (%s). Reduce stock commitments during %s to minimize carrying costs.",
				monthNames(byDesc), monthNames(byAsc)),
			Priority: "high",
		})
	}

	if h.Promotion != nil {
		var onSum, offSum float64
		var on, off int
		for i, p := range h.Promotion {
			switch p {
			case 1:
				onSum += h.Values[i]
				on++
			case 0:
				offSum += h.Values[i]
				off++
			}
		}
		if on > 0 && off > 0 {
			lift := ChangePercent(onSum/float64(on), offSum/float64(off))
			if lift > promotionLiftThreshold {
				out = append(out, models.Recommendation{
					Category:    "Promotion",
					Title:       "Scale Successful Promotions",
					Description: fmt.Sprintf("Promotions drive %.0f%% sales lift. Consider increasing promotion frequency during slow periods.", lift),
					Priority:    "high",
				})
			} else {
				out = append(out, models.Recommendation{
					Category:    "Promotion",
					Title:       "Reassess Promotion Strategy",
					Description: fmt.Sprintf("Current promotions show only %.0f%% lift. Test different promotion types or discount depths.", lift),
					Priority:    "medium",
				})
			}
		}
	} else {
		out = append(out, models.Recommendation{
			Category:    "Promotion",
			Title:       "Implement Promotion Tracking",
			Description: "Start tracking promotion periods to measure ROI and optimize timing. Consider strategic promotions during identified slow periods.",
			Priority:    "medium",
		})
	}

	if h.Price != nil {
		corr := math.NaN()
		if len(h.Price) > 1 {
			corr = stat.Correlation(h.Price, h.Values, nil)
		}
		switch {
		case corr > priceCorrelationThreshold:
			out = append(out, models.Recommendation{
				Category:    "Pricing",
				Title:       "Premium Pricing Opportunity",
				Description: "Higher prices correlate with higher revenue. Consider gradual price increases or premium product tier development.",
				Priority:    "medium",
			})
		case corr < -priceCorrelationThreshold:
			out = append(out, models.Recommendation{
				Category:    "Pricing",
				Title:       "Optimize Price Points",
				Description: "Price sensitivity detected. Test lower price points or bundle offers to maximize volume and total revenue.",
				Priority:    "high",
			})
		default:
			out = append(out, models.Recommendation{
				Category:    "Pricing",
				Title:       "Conduct Pricing Analysis",
				Description: "Price-revenue relationship is not clear. Conduct A/B price testing to identify optimal price points for different segments.",
				Priority:    "low",
			})
		}
	}

	if len(out) < maxRecommendations {
		out = append(out, models.Recommendation{
			Category:    "Data Quality",
			Title:       "Enhance Data Collection",
			Description: "Consider tracking additional variables like customer segments, marketing channels, and competitor actions for improved forecasting.",
			Priority:    "low",
		})
	}

	sort.SliceStable(out, func(a, b int) bool { return priorityRank[out[a].Priority] < priorityRank[out[b].Priority] })
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

// monthlyMeans averages the series per calendar month, in month order.
func monthlyMeans(h History) []monthMean {
	var sums [12]float64
	var counts [12]int
	for i, d := range h.Dates {
		m := int(d.Month()) - 1
		sums[m] += h.Values[i]
		counts[m]++
	}
	var out []monthMean
	for m := 0; m < 12; m++ {
		if counts[m] > 0 {
			out = append(out, monthMean{month: m + 1, mean: sums[m] / float64(counts[m])})
		}
	}
	return out
}

// peak is the first month with the highest average.
func (g generator) peak() monthMean {
	best := g.monthly[0]
	for _, m := range g.monthly[1:] {
		if m.mean > best.mean {
			best = m
		}
	}
	return best
}

func (g generator) low() monthMean {
	best := g.monthly[0]
	for _, m := range g.monthly[1:] {
		if m.mean < best.mean {
			best = m
		}
	}
	return best
}

// seasonalVariance is the monthly range relative to the mean monthly average.
func (g generator) seasonalVariance() float64 {
	means := make([]float64, len(g.monthly))
	for i, m := range g.monthly {
		means[i] = m.mean
	}
	avg := mean(means)
	if avg == 0 {
		return 0
	}
	return (g.peak().mean - g.low().mean) / avg * 100
}

func monthNames(ms []monthMean) string {
	if len(ms) > 3 {
		ms = ms[:3]
	}
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = time.Month(m.month).String()
	}
	return strings.Join(names, ", ")
}

// forecastSlope is the least-squares slope of predictions over their index.
func forecastSlope(preds []float64) float64 {
	if len(preds) < 2 {
		return 0
	}
	xs := make([]float64, len(preds))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, preds, nil, false)
	if math.Abs(beta) < slopeEpsilon || math.IsNaN(beta) {
		return 0
	}
	return beta
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
