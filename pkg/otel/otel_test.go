package otel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_WithoutTracer(t *testing.T) {
	ResetForTesting()

	ctx, span := StartSpan(context.Background(), SpanProcessEvent)
	require.NotNil(t, span)
	assert.False(t, span.IsRecording())
	span.End()
	assert.NotNil(t, ctx)
}

func TestStartSpan_RecordsAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	InitForTesting(tp.Tracer("test"))
	defer ResetForTesting()

	_, span := StartSpan(context.Background(), SpanProcessEvent, attribute.Int64(AttributeOrderRef, 1000))
	AddAttributes(span, attribute.Int64(AttributeRemaining, 50))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, SpanProcessEvent, spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int64(AttributeOrderRef, 1000))
	assert.Contains(t, spans[0].Attributes(), attribute.Int64(AttributeRemaining, 50))
}

func TestInit_NoCollector(t *testing.T) {
	defer ResetForTesting()

	cleanup, err := Init(Config{CollectorEnabled: false})
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, GetFeedTracer())
	assert.NotNil(t, GetEngineTracer())
	assert.NotNil(t, GetMeterProvider())
}

func TestFeedMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewFeedMetrics(mp.Meter(instrumentationName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordFrame(ctx, "ADD_ORDER", time.Microsecond)
	m.RecordFrame(ctx, "ADD_ORDER", time.Microsecond)
	m.RecordViolation(ctx, "live-order")
	m.AddLiveOrders(ctx, 2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	found := map[string]bool{}
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		found[metric.Name] = true
		if metric.Name == "itch.frames.total" {
			sum := metric.Data.(metricdata.Sum[int64])
			require.Len(t, sum.DataPoints, 1)
			assert.Equal(t, int64(2), sum.DataPoints[0].Value)
		}
	}
	assert.True(t, found["itch.frames.total"])
	assert.True(t, found["itch.book.violations.total"])
	assert.True(t, found["itch.book.live_orders"])
}

func TestFeedMetrics_Empty(t *testing.T) {
	m := &FeedMetrics{}
	ctx := context.Background()
	m.RecordFrame(ctx, "X", 0)
	m.RecordViolation(ctx, "x")
	m.RecordLookupMiss(ctx)
	m.RecordTradePublished(ctx)
	m.AddLiveOrders(ctx, 1)
}
