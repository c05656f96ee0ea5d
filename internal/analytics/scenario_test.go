package analytics

import (
	"testing"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulate(t *testing.T) {
	base := forecastOf(100, 200)

	tests := []struct {
		name     string
		params   models.ScenarioParams
		wantName string
		wantNew  float64
		wantPct  float64
		wantRisk string
	}{
		{"unchanged", models.ScenarioParams{}, "Price +0.0%, Volume +0.0%", 300, 0, models.RiskLow},
		{"price with elasticity", models.ScenarioParams{PriceChange: 10}, "Price +10.0%, Volume +0.0%", 313.5, 4.5, models.RiskLow},
		{"price cut", models.ScenarioParams{PriceChange: -20}, "Price -20.0%, Volume +0.0%", 264, -12, models.RiskLow},
		{"volume medium", models.ScenarioParams{VolumeChange: 30}, "Price +0.0%, Volume +30.0%", 390, 30, models.RiskMedium},
		{"volume high", models.ScenarioParams{VolumeChange: 60}, "Price +0.0%, Volume +60.0%", 480, 60, models.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Simulate(base, tt.params)
			assert.Equal(t, tt.wantName, got.ScenarioName)
			assert.Equal(t, 300.0, got.OriginalRevenue)
			assert.InDelta(t, tt.wantNew, got.NewRevenue, 1e-9)
			assert.InDelta(t, tt.wantNew-300, got.RevenueChange, 1e-9)
			assert.InDelta(t, tt.wantPct, got.RevenueChangePct, 1e-9)
			assert.Equal(t, tt.wantRisk, got.RiskLevel)
			require.Len(t, got.Forecast, 2)
			assert.Equal(t, base[0].Predicted, got.Forecast[0].Predicted)
		})
	}
}

func TestSimulate_PointProjection(t *testing.T) {
	got := Simulate(forecastOf(100), models.ScenarioParams{PriceChange: 10, VolumeChange: 5})
	// volume' = 0.05 - 0.05 = 0, so only the price moves revenue
	assert.InDelta(t, 110, got.Forecast[0].PredictedScenario, 1e-9)
}

func TestSimulate_EmptyForecast(t *testing.T) {
	got := Simulate(nil, models.ScenarioParams{PriceChange: 50})
	assert.Equal(t, 0.0, got.OriginalRevenue)
	assert.Equal(t, 0.0, got.RevenueChangePct)
	assert.Equal(t, models.RiskLow, got.RiskLevel)
	assert.Empty(t, got.Forecast)
}
