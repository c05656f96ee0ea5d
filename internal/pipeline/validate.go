package pipeline

import (
	"fmt"
	"strings"

	"github.com/irfndi/forecast-ai-go/internal/models"
)

// highMissingRatio is the share of missing cells above which a column is flagged.
const highMissingRatio = 0.1

// Validate inspects a typed upload. Structural problems are reported in the
// result rather than returned as errors.
func Validate(f *Frame) models.ValidationResult {
	result := models.ValidationResult{
		Errors:        []string{},
		Warnings:      []string{},
		RowCount:      f.Len(),
		ColumnCount:   len(f.names),
		MissingValues: map[string]int{},
	}

	if !f.HasDate {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Missing required 'date' column. Available columns: %s", strings.Join(f.names, ", ")))
	} else {
		invalid := 0
		for _, ok := range f.DateValid {
			if !ok {
				invalid++
			}
		}
		if invalid > 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%d rows have invalid or missing dates", invalid))
		}
		if invalid == f.Len() {
			result.Errors = append(result.Errors, "All date values are invalid. Please check your date column format.")
		}
	}

	if len(measureColumns(f)) == 0 {
		result.Warnings = append(result.Warnings,
			"No numeric columns found. You may need to specify a target column for forecasting.")
	}

	var high []string
	for _, name := range f.names {
		count := 0
		if name == DateColumn {
			for _, ok := range f.DateValid {
				if !ok {
					count++
				}
			}
		} else {
			count = f.cols[name].MissingCount()
		}
		if count == 0 {
			continue
		}
		result.MissingValues[name] = count
		if float64(count) > float64(f.Len())*highMissingRatio {
			high = append(high, name)
		}
	}
	if len(high) > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("High missing values in: %s", strings.Join(high, ", ")))
	}

	if f.HasDate {
		var first, last int = -1, -1
		for i, ok := range f.DateValid {
			if !ok {
				continue
			}
			if first < 0 || f.Dates[i].Before(f.Dates[first]) {
				first = i
			}
			if last < 0 || f.Dates[i].After(f.Dates[last]) {
				last = i
			}
		}
		if first >= 0 {
			result.DateRange = &models.DateRange{
				Start: f.Dates[first].Format("2006-01-02"),
				End:   f.Dates[last].Format("2006-01-02"),
			}
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// measureColumns returns the known measures present, or every numeric column
// when none of the known measures exist.
func measureColumns(f *Frame) []string {
	var present []string
	for _, name := range KnownNumericColumns {
		if f.HasColumn(name) {
			present = append(present, name)
		}
	}
	if len(present) > 0 {
		return present
	}
	return f.NumericNames()
}
