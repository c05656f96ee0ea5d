package models

import "time"

// JobStatus tracks an upload through forecasting.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobError      JobStatus = "error"
)

// DateRange is the inclusive span of valid dates in an upload, formatted YYYY-MM-DD.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ValidationResult is the outcome of validating one raw upload.
// IsValid is true iff Errors is empty.
type ValidationResult struct {
	IsValid       bool           `json:"is_valid"`
	Errors        []string       `json:"errors"`
	Warnings      []string       `json:"warnings"`
	RowCount      int            `json:"row_count"`
	ColumnCount   int            `json:"column_count"`
	DateRange     *DateRange     `json:"date_range,omitempty"`
	MissingValues map[string]int `json:"missing_values"`
}

// Job is an uploaded dataset and its processing state.
type Job struct {
	JobID            string           `json:"job_id" db:"job_id"`
	Status           JobStatus        `json:"status" db:"status"`
	OriginalFilename string           `json:"original_filename" db:"original_filename"`
	RowCount         int              `json:"row_count" db:"row_count"`
	ColumnCount      int              `json:"column_count" db:"column_count"`
	Columns          []string         `json:"columns" db:"columns"`
	DateRange        *DateRange       `json:"date_range,omitempty" db:"date_range"`
	Validation       ValidationResult `json:"validation_result" db:"validation_result"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// UploadResponse is returned after a dataset is accepted.
type UploadResponse struct {
	JobID              string                   `json:"job_id"`
	Validation         ValidationResult         `json:"validation"`
	Preview            []map[string]interface{} `json:"preview"`
	Columns            []string                 `json:"columns"`
	NumericColumns     []string                 `json:"numeric_columns"`
	CategoricalColumns []string                 `json:"categorical_columns"`
}

// JobWithForecast bundles a job with its latest forecast, if any.
type JobWithForecast struct {
	Job      *Job            `json:"job"`
	Forecast *ForecastRecord `json:"forecast,omitempty"`
}
