package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/erain9/itchbook/pkg/otel"
)

var (
	feedMetrics     *FeedMetrics
	feedMetricsOnce sync.Once
)

// FeedMetrics holds the instruments recorded while a feed is replayed.
type FeedMetrics struct {
	framesTotal     metric.Int64Counter
	violationsTotal metric.Int64Counter
	lookupMisses    metric.Int64Counter
	tradesPublished metric.Int64Counter
	eventDuration   metric.Float64Histogram
	liveOrders      metric.Int64UpDownCounter
}

// NewFeedMetrics creates the feed instruments on meter.
func NewFeedMetrics(meter metric.Meter) (*FeedMetrics, error) {
	framesTotal, err := meter.Int64Counter(
		"itch.frames.total",
		metric.WithDescription("Frames read from the feed, by message type"),
		metric.WithUnit("{frame}"),
	)
	if err != nil {
		return nil, err
	}

	violationsTotal, err := meter.Int64Counter(
		"itch.book.violations.total",
		metric.WithDescription("Events rejected because they would break book consistency"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	lookupMisses, err := meter.Int64Counter(
		"itch.reference.misses.total",
		metric.WithDescription("Reference lookups that found no instrument"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	tradesPublished, err := meter.Int64Counter(
		"itch.trades.published.total",
		metric.WithDescription("Trade tape events handed to the sender"),
		metric.WithUnit("{trade}"),
	)
	if err != nil {
		return nil, err
	}

	eventDuration, err := meter.Float64Histogram(
		"itch.event.duration",
		metric.WithDescription("Time to decode and apply one frame"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	liveOrders, err := meter.Int64UpDownCounter(
		"itch.book.live_orders",
		metric.WithDescription("Orders resting in the book"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	return &FeedMetrics{
		framesTotal:     framesTotal,
		violationsTotal: violationsTotal,
		lookupMisses:    lookupMisses,
		tradesPublished: tradesPublished,
		eventDuration:   eventDuration,
		liveOrders:      liveOrders,
	}, nil
}

// GetFeedMetrics returns the FeedMetrics singleton built on the current
// meter provider. On failure it returns an empty FeedMetrics whose methods do
// nothing.
func GetFeedMetrics() *FeedMetrics {
	feedMetricsOnce.Do(func() {
		m, err := NewFeedMetrics(GetMeterProvider().Meter(instrumentationName))
		if err != nil {
			m = &FeedMetrics{}
		}
		feedMetrics = m
	})
	return feedMetrics
}

// RecordFrame counts one frame of the given message type and its handling time.
func (m *FeedMetrics) RecordFrame(ctx context.Context, messageType string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttributeMessageType, messageType))
	if m.framesTotal != nil {
		m.framesTotal.Add(ctx, 1, attrs)
	}
	if m.eventDuration != nil {
		m.eventDuration.Record(ctx, d.Seconds(), attrs)
	}
}

// RecordViolation counts a rejected event.
func (m *FeedMetrics) RecordViolation(ctx context.Context, invariant string) {
	if m.violationsTotal == nil {
		return
	}
	m.violationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(AttributeInvariant, invariant)))
}

// RecordLookupMiss counts a failed reference lookup.
func (m *FeedMetrics) RecordLookupMiss(ctx context.Context) {
	if m.lookupMisses == nil {
		return
	}
	m.lookupMisses.Add(ctx, 1)
}

// RecordTradePublished counts a trade handed to the tape.
func (m *FeedMetrics) RecordTradePublished(ctx context.Context) {
	if m.tradesPublished == nil {
		return
	}
	m.tradesPublished.Add(ctx, 1)
}

// AddLiveOrders moves the live order gauge by delta.
func (m *FeedMetrics) AddLiveOrders(ctx context.Context, delta int64) {
	if m.liveOrders == nil || delta == 0 {
		return
	}
	m.liveOrders.Add(ctx, delta)
}
