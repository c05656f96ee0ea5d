package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// InsightHandler serves the narrative insights of a job.
type InsightHandler struct {
	insights InsightService
}

// NewInsightHandler creates an insights handler.
func NewInsightHandler(insights InsightService) *InsightHandler {
	return &InsightHandler{insights: insights}
}

// GetInsights serves GET /insights?job_id=.
func (h *InsightHandler) GetInsights(c *gin.Context) {
	jobID, ok := requiredJobID(c)
	if !ok {
		return
	}
	bundle, err := h.insights.Get(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err, jobNotFound)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// RegenerateInsights serves POST /insights/regenerate?job_id=.
func (h *InsightHandler) RegenerateInsights(c *gin.Context) {
	jobID, ok := requiredJobID(c)
	if !ok {
		return
	}
	bundle, err := h.insights.Regenerate(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err, jobNotFound)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

func requiredJobID(c *gin.Context) (string, bool) {
	jobID := c.Query("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id query parameter is required"})
		return "", false
	}
	return jobID, true
}
