package models

import "time"

// KPISnapshot is a headline metric with a direction.
type KPISnapshot struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Change string `json:"change,omitempty"`
	Trend  string `json:"trend"`
}

// InsightBullet is a severity-tagged observation.
type InsightBullet struct {
	Icon     string `json:"icon"`
	Text     string `json:"text"`
	Severity string `json:"severity"`
}

// Recommendation is a prioritized business action.
type Recommendation struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// InsightsBundle is the narrative output derived from one forecast.
type InsightsBundle struct {
	JobID           string           `json:"job_id,omitempty"`
	Title           string           `json:"title"`
	Summary         string           `json:"summary"`
	KPIs            []KPISnapshot    `json:"kpis"`
	Bullets         []InsightBullet  `json:"bullets"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
