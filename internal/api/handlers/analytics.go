package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/forecast-ai-go/internal/models"
)

const forecastNotFound = "Forecast not found"

// AnalyticsHandler serves anomaly, recommendation and scenario endpoints for
// a job's latest forecast.
type AnalyticsHandler struct {
	analytics AnalyticsService
}

// NewAnalyticsHandler creates an analytics handler.
func NewAnalyticsHandler(analytics AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Anomalies accepts optional "method" (iqr, zscore) and "threshold" queries.
func (h *AnalyticsHandler) Anomalies(c *gin.Context) {
	var threshold float64
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be a positive number"})
			return
		}
		threshold = v
	}

	report, err := h.analytics.Anomalies(c.Request.Context(), c.Param("job_id"), c.Query("method"), threshold)
	if err != nil {
		respondError(c, err, forecastNotFound)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Recommendations lists revenue actions for the job's latest forecast.
func (h *AnalyticsHandler) Recommendations(c *gin.Context) {
	report, err := h.analytics.Recommendations(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err, forecastNotFound)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Scenario accepts {"price_change": 10, "volume_change": -5}; an empty body
// simulates no change.
func (h *AnalyticsHandler) Scenario(c *gin.Context) {
	var params models.ScenarioParams
	if err := c.ShouldBindJSON(&params); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	result, err := h.analytics.Scenario(c.Request.Context(), c.Param("job_id"), params)
	if err != nil {
		respondError(c, err, forecastNotFound)
		return
	}
	c.JSON(http.StatusOK, result)
}
