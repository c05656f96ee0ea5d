package analytics

import (
	"fmt"
	"math"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/shopspring/decimal"
)

// priceElasticity is the volume response to a unit price change.
const priceElasticity = -0.5

// Simulate re-projects a forecast under percentage price and volume changes.
// Every requested price change also moves volume by priceElasticity times that
// change, and revenue scales by both.
func Simulate(forecast []models.ForecastPoint, params models.ScenarioParams) models.ScenarioResult {
	price := params.PriceChange / 100
	volume := params.VolumeChange / 100
	effectiveVolume := volume + priceElasticity*price
	factor := (1 + effectiveVolume) * (1 + price)

	original := decimal.Zero
	projected := decimal.Zero
	points := make([]models.ScenarioPoint, len(forecast))
	for i, p := range forecast {
		next := p.Predicted * factor
		points[i] = models.ScenarioPoint{ForecastPoint: p, PredictedScenario: next}
		original = original.Add(decimal.NewFromFloat(p.Predicted))
		projected = projected.Add(decimal.NewFromFloat(next))
	}

	change := projected.Sub(original)
	pct := decimal.Zero
	if original.IsPositive() {
		pct = change.Div(original).Mul(decimal.NewFromInt(100))
	}
	changePct := pct.Round(2).InexactFloat64()

	return models.ScenarioResult{
		ScenarioName:     fmt.Sprintf("Price %+.1f%%, Volume %+.1f%%", price*100, volume*100),
		Forecast:         points,
		OriginalRevenue:  original.Round(2).InexactFloat64(),
		NewRevenue:       projected.Round(2).InexactFloat64(),
		RevenueChange:    change.Round(2).InexactFloat64(),
		RevenueChangePct: changePct,
		RiskLevel:        scenarioRisk(pct.InexactFloat64()),
	}
}

func scenarioRisk(pct float64) string {
	switch abs := math.Abs(pct); {
	case abs > 50:
		return models.RiskHigh
	case abs > 20:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
