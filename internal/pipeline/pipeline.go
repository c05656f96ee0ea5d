// Package pipeline turns an uploaded sales table into a validated, cleaned,
// aggregated and feature-engineered series ready for model training.
package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/forecast-ai-go/internal/models"
)

// Pipeline holds one upload and runs it through the preparation stages.
// Each call works on a copy of the raw frame, so a Pipeline is safe to reuse.
type Pipeline struct {
	raw    *Frame
	logger *logrus.Logger
}

// New builds a pipeline over a loaded table.
func New(t *Table, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{raw: FromTable(t), logger: logger}
}

// Raw returns the loaded frame.
func (p *Pipeline) Raw() *Frame {
	return p.raw
}

// Validate checks the raw upload.
func (p *Pipeline) Validate() models.ValidationResult {
	return Validate(p.raw)
}

// Clean drops undated rows and imputes missing values.
func (p *Pipeline) Clean() *Frame {
	return Clean(p.raw)
}

// PrepareForModeling runs clean, outlier bounding, aggregation and feature
// engineering in order.
func (p *Pipeline) PrepareForModeling(agg models.Aggregation, target, groupBy string) (*Frame, error) {
	start := time.Now()
	cleaned := Clean(p.raw)
	bounded := cleaned
	if cols := measureBoundColumns(cleaned); len(cols) > 0 {
		bounded = BoundOutliers(cleaned, cols...)
	}
	aggregated, err := Aggregate(bounded, agg, target, groupBy)
	if err != nil {
		return nil, err
	}
	featured, err := EngineerFeatures(aggregated, target)
	if err != nil {
		return nil, err
	}
	p.logger.WithFields(logrus.Fields{
		"rows_in":     p.raw.Len(),
		"rows_out":    featured.Len(),
		"aggregation": string(agg),
		"target":      target,
		"group_by":    groupBy,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Prepared series for modeling")
	return featured, nil
}

// Preview returns the first n raw rows as maps with dates rendered YYYY-MM-DD.
func (p *Pipeline) Preview(n int) []map[string]interface{} {
	return p.raw.Records(n)
}

// ColumnInfo returns all, numeric and categorical column names of the upload.
func (p *Pipeline) ColumnInfo() (all, numeric, categorical []string) {
	return p.raw.Names(), p.raw.NumericNames(), p.raw.CategoricalNames()
}

// TopByColumn ranks groups of the cleaned upload by the summed value column.
func (p *Pipeline) TopByColumn(groupCol, valueCol string, n int) []models.GroupTotal {
	return TopByColumn(Clean(p.raw), groupCol, valueCol, n)
}
