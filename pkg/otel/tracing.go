package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Span names
	SpanReplayFeed   = "replay_feed"
	SpanProcessEvent = "process_event"
	SpanPublishTrade = "publish_trade"
	SpanSnapshot     = "snapshot"

	// Attribute keys
	AttributeFeedPath       = "feed.path"
	AttributeFrameIndex     = "feed.frame_index"
	AttributeFrameCount     = "feed.frame_count"
	AttributeMessageType    = "itch.message_type"
	AttributeOrderRef       = "itch.order_ref"
	AttributeNewOrderRef    = "itch.new_order_ref"
	AttributeStockLocate    = "itch.stock_locate"
	AttributeMatchNumber    = "itch.match_number"
	AttributeShares         = "itch.shares"
	AttributeRemaining      = "itch.remaining"
	AttributeInvariant      = "book.invariant"
	AttributeViolationCount = "book.violation_count"
)

// StartSpan starts a span on the tracer owning name. When telemetry is not
// initialised it returns the span already in ctx, which is a no-op span if
// there is none, so callers can always End it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	var tracer trace.Tracer
	switch name {
	case SpanProcessEvent:
		tracer = GetEngineTracer()
	default:
		tracer = GetFeedTracer()
	}

	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// AddAttributes adds attributes to a span
func AddAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}
