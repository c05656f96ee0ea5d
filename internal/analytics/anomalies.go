// Package analytics derives anomaly flags, revenue recommendations and
// what-if scenarios from a stored forecast.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/pipeline"
	"github.com/irfndi/forecast-ai-go/internal/utils"
	"gonum.org/v1/gonum/stat"
)

// Detection methods.
const (
	MethodIQR    = "iqr"
	MethodZScore = "zscore"
)

const (
	// DefaultThreshold is the IQR multiplier, and the |z| cutoff, used when
	// the caller passes a non-positive threshold.
	DefaultThreshold = 1.5

	maxAnomalies  = 10
	minAnomalyLen = 3
)

// observation is a historical point that carries an actual value.
type observation struct {
	date  string
	value float64
}

// DetectAnomalies flags unusual actuals in a historical series. Points without
// an actual, or with a non-finite one, are ignored.
func DetectAnomalies(history []models.ForecastPoint, method string, threshold float64) ([]models.Anomaly, error) {
	if method == "" {
		method = MethodIQR
	}
	if method != MethodIQR && method != MethodZScore {
		return nil, utils.NewConfigurationErrorf("method", "Unknown anomaly method '%s'. Available: %s, %s", method, MethodIQR, MethodZScore)
	}
	if threshold <= 0 || math.IsNaN(threshold) {
		threshold = DefaultThreshold
	}

	obs := observations(history)
	if len(obs) < minAnomalyLen {
		return []models.Anomaly{}, nil
	}
	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.value
	}

	var found []models.Anomaly
	if method == MethodIQR {
		found = iqrAnomalies(obs, values, threshold)
	} else {
		found = zScoreAnomalies(obs, values, threshold)
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].Severity > found[j].Severity })
	if len(found) > maxAnomalies {
		found = found[:maxAnomalies]
	}
	if found == nil {
		found = []models.Anomaly{}
	}
	return found, nil
}

func observations(history []models.ForecastPoint) []observation {
	out := make([]observation, 0, len(history))
	for _, p := range history {
		if p.Actual == nil || math.IsNaN(*p.Actual) || math.IsInf(*p.Actual, 0) {
			continue
		}
		out = append(out, observation{date: p.Date, value: *p.Actual})
	}
	return out
}

func iqrAnomalies(obs []observation, values []float64, threshold float64) []models.Anomaly {
	q1 := pipeline.Quantile(values, 0.25)
	q3 := pipeline.Quantile(values, 0.75)
	iqr := q3 - q1
	lower, upper := q1-threshold*iqr, q3+threshold*iqr
	mean := stat.Mean(values, nil)

	found := make([]models.Anomaly, 0)
	for _, o := range obs {
		if o.value >= lower && o.value <= upper {
			continue
		}
		pct := pctFromMean(o.value, mean)
		kind := "dip"
		if o.value > upper {
			kind = "spike"
		}
		direction := "decrease"
		if o.value > mean {
			direction = "increase"
		}
		found = append(found, models.Anomaly{
			Date:        o.date,
			Value:       o.value,
			AnomalyType: kind,
			Severity:    utils.Round(math.Abs(pct), 1),
			Description: fmt.Sprintf("AI detected %s on %s: %.1f%% %s", kind, o.date, math.Abs(pct), direction),
		})
	}
	return found
}

func zScoreAnomalies(obs []observation, values []float64, threshold float64) []models.Anomaly {
	mean, std := stat.PopMeanStdDev(values, nil)
	found := make([]models.Anomaly, 0)
	if std == 0 {
		return found
	}
	for _, o := range obs {
		z := math.Abs((o.value - mean) / std)
		if z <= threshold {
			continue
		}
		pct := pctFromMean(o.value, mean)
		kind := "dip"
		if o.value > mean {
			kind = "spike"
		}
		score := utils.Round(z, 2)
		found = append(found, models.Anomaly{
			Date:        o.date,
			Value:       o.value,
			AnomalyType: kind,
			Severity:    utils.Round(math.Abs(pct), 1),
			ZScore:      &score,
			Description: fmt.Sprintf("AI detected %s on %s: %.1f%% change", kind, o.date, math.Abs(pct)),
		})
	}
	return found
}

func pctFromMean(v, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return (v - mean) / mean * 100
}
