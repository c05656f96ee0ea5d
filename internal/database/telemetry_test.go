package database

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func tracedMock(t *testing.T) (*TracedQuerier, pgxmock.PgxPoolIface, *tracetest.SpanRecorder) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return &TracedQuerier{Querier: mock, tracer: tp.Tracer(tracerName)}, mock, recorder
}

func TestTracedQuerier_Exec(t *testing.T) {
	q, mock, recorder := tracedMock(t)
	mock.ExpectExec("DELETE FROM jobs").
		WithArgs(1).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	_, err := q.Exec(context.Background(), "DELETE FROM jobs WHERE created_at < $1", 1)
	require.NoError(t, err)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "db.exec", ended[0].Name())
	attrs := map[string]interface{}{}
	for _, kv := range ended[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "DELETE", attrs["db.operation"])
	assert.Equal(t, int64(3), attrs["db.rows_affected"])
}

func TestTracedQuerier_RecordsErrors(t *testing.T) {
	q, mock, recorder := tracedMock(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

	_, err := q.Query(context.Background(), "SELECT 1")
	require.Error(t, err)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestTracedQuerier_WrapsRepository(t *testing.T) {
	q, mock, recorder := tracedMock(t)
	repo := NewJobRepository(q)
	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs("job_1", "completed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdateJobStatus(context.Background(), "job_1", "completed"))
	assert.Len(t, recorder.Ended(), 1)
}

func TestStatementVerb(t *testing.T) {
	assert.Equal(t, "SELECT", statementVerb("  select * from jobs"))
	assert.Equal(t, "", statementVerb("   "))
}
