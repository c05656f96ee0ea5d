package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		job_id            TEXT PRIMARY KEY,
		status            TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		row_count         INTEGER NOT NULL DEFAULT 0,
		column_count      INTEGER NOT NULL DEFAULT 0,
		columns           JSONB NOT NULL DEFAULT '[]',
		date_range        JSONB,
		validation_result JSONB NOT NULL DEFAULT '{}',
		file_data         BYTEA NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS forecasts (
		id            BIGSERIAL PRIMARY KEY,
		job_id        TEXT NOT NULL REFERENCES jobs (job_id) ON DELETE CASCADE,
		model_type    TEXT NOT NULL,
		aggregation   TEXT NOT NULL,
		horizon       INTEGER NOT NULL,
		target_column TEXT NOT NULL,
		record        JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_forecasts_job ON forecasts (job_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS insights (
		id         BIGSERIAL PRIMARY KEY,
		job_id     TEXT NOT NULL REFERENCES jobs (job_id) ON DELETE CASCADE,
		bundle     JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_insights_job ON insights (job_id, created_at DESC)`,
}

// EnsureSchema creates the tables and indexes if they are missing.
func EnsureSchema(ctx context.Context, q Querier) error {
	for _, stmt := range schemaStatements {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
