package models

import "time"

// Aggregation is the period granularity a series is resampled to.
type Aggregation string

const (
	AggregationDaily   Aggregation = "daily"
	AggregationWeekly  Aggregation = "weekly"
	AggregationMonthly Aggregation = "monthly"
)

// Valid reports whether a is a supported granularity.
func (a Aggregation) Valid() bool {
	switch a {
	case AggregationDaily, AggregationWeekly, AggregationMonthly:
		return true
	}
	return false
}

// Strategy names accepted by the forecast registry.
const (
	StrategyDecomposition = "decomposition"
	StrategyTreeEnsemble  = "tree_ensemble"
)

// Risk levels produced by the bias analyzer.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// ForecastPoint is one dated prediction. Actual is set for historical points only.
type ForecastPoint struct {
	Date       string   `json:"date"`
	Actual     *float64 `json:"actual,omitempty"`
	Predicted  float64  `json:"predicted"`
	LowerBound float64  `json:"lower_bound"`
	UpperBound float64  `json:"upper_bound"`
}

// ForecastMetrics holds held-out accuracy and bias statistics of a forecast run.
type ForecastMetrics struct {
	MAE                 float64            `json:"mae"`
	RMSE                float64            `json:"rmse"`
	MAPE                float64            `json:"mape"`
	TrainSize           int                `json:"train_size"`
	TestSize            int                `json:"test_size"`
	ConfidenceScore     float64            `json:"confidence_score"`
	RiskLevel           string             `json:"risk_level"`
	OverpredictionBias  float64            `json:"overprediction_bias"`
	UnderpredictionBias float64            `json:"underprediction_bias"`
	BiasPercentage      float64            `json:"bias_percentage"`
	QuarterlyBias       map[string]float64 `json:"quarterly_bias,omitempty"`
	BiasSummary         string             `json:"bias_summary,omitempty"`
}

// SeriesValue is a dated scalar used by decomposition output.
type SeriesValue struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// DecompositionData carries trend, seasonal and residual series aligned to history.
type DecompositionData struct {
	Trend    []SeriesValue `json:"trend"`
	Seasonal []SeriesValue `json:"seasonal"`
	Residual []SeriesValue `json:"residual"`
}

// FeatureImportance is a feature's share of the reported top features, in percent.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// GroupTotal is one entry of a top-N-by-dimension ranking.
type GroupTotal struct {
	Group string  `json:"group"`
	Total float64 `json:"total"`
}

// ForecastResult is the output of a single strategy run.
type ForecastResult struct {
	Strategy          string              `json:"model_type"`
	Forecast          []ForecastPoint     `json:"forecast"`
	Historical        []ForecastPoint     `json:"historical"`
	Metrics           ForecastMetrics     `json:"metrics"`
	Decomposition     *DecompositionData  `json:"decomposition,omitempty"`
	FeatureImportance []FeatureImportance `json:"feature_importance,omitempty"`
}

// ForecastRequest is the configuration of one forecast run.
type ForecastRequest struct {
	JobID        string      `json:"job_id" binding:"required"`
	Aggregation  Aggregation `json:"aggregation"`
	Model        string      `json:"model"`
	Horizon      int         `json:"horizon" binding:"omitempty,min=1,max=24"`
	TargetColumn string      `json:"target_column"`
	GroupBy      string      `json:"group_by,omitempty"`
}

// ForecastRecord is a persisted forecast run.
type ForecastRecord struct {
	JobID             string              `json:"job_id"`
	ModelType         string              `json:"model_type"`
	Aggregation       Aggregation         `json:"aggregation"`
	Horizon           int                 `json:"horizon"`
	TargetColumn      string              `json:"target_column"`
	GroupBy           string              `json:"group_by,omitempty"`
	Metrics           ForecastMetrics     `json:"metrics"`
	Forecast          []ForecastPoint     `json:"forecast"`
	Historical        []ForecastPoint     `json:"historical"`
	Decomposition     *DecompositionData  `json:"decomposition,omitempty"`
	FeatureImportance []FeatureImportance `json:"feature_importance,omitempty"`
	TopProducts       []GroupTotal        `json:"top_products,omitempty"`
	TopRegions        []GroupTotal        `json:"top_regions,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}
