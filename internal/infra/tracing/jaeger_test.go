package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

func TestProviderRecordsServiceName(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := newProvider(Config{ServiceName: "gsa-analysis-worker", SampleRatio: 1}, sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "Orchestrator.Execute")
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "Orchestrator.Execute", spans[0].Name())
	assert.Contains(t, spans[0].Resource().Attributes(), semconv.ServiceNameKey.String("gsa-analysis-worker"))
}

func TestZeroRatioDropsRootSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := newProvider(Config{ServiceName: "gsa-analysis-worker", SampleRatio: 0}, sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "dropped")
	span.End()

	assert.Empty(t, rec.Ended())
}

func TestInitTracerWithUnreachableCollector(t *testing.T) {
	tp, err := InitTracer(context.Background(), Config{
		ServiceName: "gsa-analysis-worker",
		Endpoint:    "http://127.0.0.1:1/v1/traces",
		SampleRatio: 1,
	})
	require.NoError(t, err)
	assert.NotNil(t, tp)
	assert.NoError(t, tp.Shutdown(context.Background()))
}
