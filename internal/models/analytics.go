package models

// Anomaly is a flagged historical value.
type Anomaly struct {
	Date        string   `json:"date"`
	Value       float64  `json:"value"`
	AnomalyType string   `json:"anomaly_type"`
	Severity    float64  `json:"severity"`
	ZScore      *float64 `json:"z_score,omitempty"`
	Description string   `json:"description"`
}

// ForecastRecommendation is a forecast-driven revenue action.
type ForecastRecommendation struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Impact         string `json:"impact"`
	Action         string `json:"action"`
	ExpectedUplift string `json:"expected_uplift"`
}

// ScenarioParams are percentage deltas applied to a forecast.
type ScenarioParams struct {
	PriceChange  float64 `json:"price_change"`
	VolumeChange float64 `json:"volume_change"`
}

// ScenarioPoint is a forecast point re-projected under a scenario.
type ScenarioPoint struct {
	ForecastPoint
	PredictedScenario float64 `json:"predicted_scenario"`
}

// ScenarioResult summarizes the revenue impact of a scenario.
type ScenarioResult struct {
	ScenarioName     string          `json:"scenario_name"`
	Forecast         []ScenarioPoint `json:"forecast"`
	OriginalRevenue  float64         `json:"original_revenue"`
	NewRevenue       float64         `json:"new_revenue"`
	RevenueChange    float64         `json:"revenue_change"`
	RevenueChangePct float64         `json:"revenue_change_pct"`
	RiskLevel        string          `json:"risk_level"`
}

// AnomalyReport lists the anomalies found in a forecast's history.
type AnomalyReport struct {
	JobID     string    `json:"job_id"`
	Method    string    `json:"method"`
	Anomalies []Anomaly `json:"anomalies"`
	Count     int       `json:"count"`
}

// RecommendationReport lists forecast-driven recommendations for a job.
type RecommendationReport struct {
	JobID           string                   `json:"job_id"`
	Recommendations []ForecastRecommendation `json:"recommendations"`
	Count           int                      `json:"count"`
}
