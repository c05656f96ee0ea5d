package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func spanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attributes(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTelemetryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(TelemetryMiddleware())
		router.GET("/api/v1/forecast/:job_id", func(c *gin.Context) {
			AddSpanAttribute(c, "forecast.horizon", 6)
			c.JSON(http.StatusOK, gin.H{"job_id": c.Param("job_id")})
		})
		router.GET("/boom", func(c *gin.Context) {
			_ = c.Error(errors.New("exploded"))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		})
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})
		return router
	}

	t.Run("traces request", func(t *testing.T) {
		recorder := spanRecorder(t)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/forecast/job_1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		ended := recorder.Ended()
		require.Len(t, ended, 1)
		attrs := attributes(ended[0])
		assert.Equal(t, "/api/v1/forecast/:job_id", attrs["http.route"].AsString())
		assert.Equal(t, "job_1", attrs["forecast.job_id"].AsString())
		assert.Equal(t, int64(200), attrs["http.status_code"].AsInt64())
		assert.Equal(t, int64(6), attrs["forecast.horizon"].AsInt64())
	})

	t.Run("marks server errors", func(t *testing.T) {
		recorder := spanRecorder(t)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		ended := recorder.Ended()
		require.Len(t, ended, 1)
		assert.Equal(t, codes.Error, ended[0].Status().Code)
		assert.NotEmpty(t, ended[0].Events())
	})

	t.Run("skips health", func(t *testing.T) {
		recorder := spanRecorder(t)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, recorder.Ended())
	})
}

func TestRecordError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := spanRecorder(t)

	router := gin.New()
	router.Use(TelemetryMiddleware())
	router.GET("/fail", func(c *gin.Context) {
		RecordError(c, errors.New("db down"), "lookup failed")
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "lookup failed", ended[0].Status().Description)
}

func TestAddSpanAttribute_Types(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := spanRecorder(t)

	router := gin.New()
	router.Use(TelemetryMiddleware())
	router.GET("/attrs", func(c *gin.Context) {
		AddSpanAttribute(c, "s", "x")
		AddSpanAttribute(c, "i64", int64(7))
		AddSpanAttribute(c, "f", 1.5)
		AddSpanAttribute(c, "b", true)
		AddSpanAttribute(c, "other", []int{1})
		c.Status(http.StatusNoContent)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/attrs", nil))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	attrs := attributes(ended[0])
	assert.Equal(t, "x", attrs["s"].AsString())
	assert.Equal(t, int64(7), attrs["i64"].AsInt64())
	assert.Equal(t, 1.5, attrs["f"].AsFloat64())
	assert.True(t, attrs["b"].AsBool())
	assert.Equal(t, "[1]", attrs["other"].AsString())
}
