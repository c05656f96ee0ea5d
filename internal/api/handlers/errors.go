package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/forecast-ai-go/internal/middleware"
	"github.com/irfndi/forecast-ai-go/internal/services"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

const noForecastMessage = "No forecast found. Please run a forecast first."

// respondError maps a service error to a status code. notFound is the message
// used for a missing resource.
func respondError(c *gin.Context, err error, notFound string) {
	switch {
	case utils.IsValidationError(err), utils.IsConfigurationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNoForecast):
		c.JSON(http.StatusNotFound, gin.H{"error": noForecastMessage})
	case errors.Is(err, utils.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, services.ErrCapacityExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		middleware.RecordError(c, err, "request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
