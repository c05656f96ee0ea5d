package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/forecast-ai-go/internal/middleware"
	"github.com/irfndi/forecast-ai-go/internal/models"
)

// ForecastHandler runs forecasts and serves stored results.
type ForecastHandler struct {
	forecasts ForecastService
}

// NewForecastHandler creates a forecast handler.
func NewForecastHandler(forecasts ForecastService) *ForecastHandler {
	return &ForecastHandler{forecasts: forecasts}
}

// RunForecast trains a model on an uploaded job and returns the result.
func (h *ForecastHandler) RunForecast(c *gin.Context) {
	var req models.ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	middleware.AddSpanAttribute(c, "job.id", req.JobID)

	rec, err := h.forecasts.Run(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Job not found. Please upload a file first.")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetForecast returns the latest stored forecast of a job.
func (h *ForecastHandler) GetForecast(c *gin.Context) {
	rec, err := h.forecasts.LatestForecast(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err, "No forecast found for this job")
		return
	}
	c.JSON(http.StatusOK, rec)
}
