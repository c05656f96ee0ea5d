// Package api wires the HTTP routes of the forecast service.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/irfndi/forecast-ai-go/internal/api/handlers"
	"github.com/irfndi/forecast-ai-go/internal/config"
	"github.com/irfndi/forecast-ai-go/internal/middleware"
)

// Dependencies are the services exposed over HTTP. Database, Redis, Host and
// Metrics are optional.
type Dependencies struct {
	Jobs      handlers.JobService
	Forecasts handlers.ForecastService
	Insights  handlers.InsightService
	Analytics handlers.AnalyticsService
	Database  handlers.HealthChecker
	Redis     handlers.HealthChecker
	Host      handlers.HostStatter
	Metrics   prometheus.Gatherer
	Security  config.SecurityConfig
	Version   string
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	health := handlers.NewHealthHandler(deps.Database, deps.Redis, deps.Host, deps.Version)
	router.GET("/health", health.HealthCheck)

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	jobs := handlers.NewJobHandler(deps.Jobs)
	forecasts := handlers.NewForecastHandler(deps.Forecasts)
	insights := handlers.NewInsightHandler(deps.Insights)
	analytics := handlers.NewAnalyticsHandler(deps.Analytics)

	v1 := router.Group("/api/v1")

	if deps.Security.AuthEnabled {
		auth := middleware.NewAuthMiddleware(deps.Security.JWTSecret)
		apiKey := middleware.NewAPIKeyMiddleware(deps.Security.APIKeyHash)
		tokens := handlers.NewAuthHandler(auth, deps.Security.JWTExpiryDuration())

		// Token issuance sits outside the JWT group.
		v1.POST("/auth/token", apiKey.RequireAPIKey(), tokens.IssueToken)
		v1.Use(auth.RequireAuth())
	}

	v1.POST("/upload", jobs.Upload)

	jobRoutes := v1.Group("/jobs")
	{
		jobRoutes.GET("", jobs.ListJobs)
		jobRoutes.GET("/:job_id", jobs.GetJob)
		jobRoutes.GET("/:job_id/full", jobs.GetJobFull)
		jobRoutes.DELETE("/:job_id", jobs.DeleteJob)
	}

	forecastRoutes := v1.Group("/forecast")
	{
		forecastRoutes.POST("", forecasts.RunForecast)
		forecastRoutes.GET("/:job_id", forecasts.GetForecast)
	}

	insightRoutes := v1.Group("/insights")
	{
		insightRoutes.GET("", insights.GetInsights)
		insightRoutes.POST("/regenerate", insights.RegenerateInsights)
	}

	v1.GET("/anomalies/:job_id", analytics.Anomalies)
	v1.GET("/recommendations/:job_id", analytics.Recommendations)
	v1.POST("/scenario/:job_id", analytics.Scenario)
}
