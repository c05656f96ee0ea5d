package database

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/irfndi/forecast-ai-go/database"

// TracedQuerier wraps a Querier with one client span per statement.
type TracedQuerier struct {
	Querier
	tracer trace.Tracer
}

// NewTracedQuerier wraps q using the global tracer provider.
func NewTracedQuerier(q Querier) *TracedQuerier {
	return &TracedQuerier{Querier: q, tracer: otel.Tracer(tracerName)}
}

func (t *TracedQuerier) start(ctx context.Context, op, sql string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", statementVerb(sql)),
			attribute.String("db.statement", sql),
		),
	)
}

func (t *TracedQuerier) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := t.start(ctx, "exec", sql)
	defer span.End()
	tag, err := t.Querier.Exec(ctx, sql, args...)
	recordDatabaseError(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	}
	return tag, err
}

func (t *TracedQuerier) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := t.start(ctx, "query", sql)
	defer span.End()
	rows, err := t.Querier.Query(ctx, sql, args...)
	recordDatabaseError(span, err)
	return rows, err
}

// QueryRow spans only statement dispatch; errors surface at Scan.
func (t *TracedQuerier) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := t.start(ctx, "query_row", sql)
	defer span.End()
	return t.Querier.QueryRow(ctx, sql, args...)
}

func (t *TracedQuerier) Begin(ctx context.Context) (pgx.Tx, error) {
	ctx, span := t.tracer.Start(ctx, "db.begin", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	tx, err := t.Querier.Begin(ctx)
	recordDatabaseError(span, err)
	return tx, err
}

func recordDatabaseError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
