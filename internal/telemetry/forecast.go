package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RunInfo describes a forecast run for tracing.
type RunInfo struct {
	JobID       string
	Strategy    string
	Aggregation string
	Horizon     int
	Target      string
}

// StartForecastSpan starts a span covering one forecast run.
func StartForecastSpan(ctx context.Context, info RunInfo) (context.Context, trace.Span) {
	return GetForecastTracer().Start(ctx, "forecast.run",
		trace.WithAttributes(
			attribute.String("forecast.job_id", info.JobID),
			attribute.String("forecast.strategy", info.Strategy),
			attribute.String("forecast.aggregation", info.Aggregation),
			attribute.Int("forecast.horizon", info.Horizon),
			attribute.String("forecast.target", info.Target),
		),
	)
}

// EndForecastSpan records the outcome of a run and ends the span. Accuracy is
// attached only on success.
func EndForecastSpan(span trace.Span, strategy string, mape float64, err error) {
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(
		attribute.String("forecast.strategy_used", strategy),
		attribute.Float64("forecast.mape", mape),
	)
	span.SetStatus(codes.Ok, "completed")
}
