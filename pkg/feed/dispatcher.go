package feed

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/erain9/itchbook/pkg/core"
	"github.com/erain9/itchbook/pkg/itch"
	"github.com/erain9/itchbook/pkg/logging"
	"github.com/erain9/itchbook/pkg/messaging"
	"github.com/erain9/itchbook/pkg/otel"
	"github.com/erain9/itchbook/pkg/reference"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// SnapshotSink receives periodic book snapshots of watched symbols.
type SnapshotSink interface {
	WriteSnapshot(ctx context.Context, symbol string, frame uint64, orders []core.Order) error
}

// StopReason says why a replay ended without error.
type StopReason string

// Stop reasons
const (
	StopEndOfStream StopReason = "end-of-stream"
	StopUnknownType StopReason = "unknown-type"
)

// Result describes a finished replay.
type Result struct {
	// Frames is the number of frames consumed, including skipped ones.
	Frames uint64
	Reason StopReason
	// Tag is the unrecognised tag that ended the feed, when Reason is
	// StopUnknownType.
	Tag byte
}

// Dispatcher reads frames, decodes them and routes each message to the order
// book or the reference stores. Book events are applied strictly in feed
// order by a single goroutine.
type Dispatcher struct {
	book         *core.OrderBook
	instruments  *reference.InstrumentStore
	participants *reference.ParticipantRegistry

	policy        Policy
	sender        messaging.TradeSender
	sinks         []SnapshotSink
	watch         []string
	snapshotEvery uint64
	limiter       *rate.Limiter
	depth         int
	onError       func(*FrameError)

	frames  atomic.Uint64
	stats   *Stats
	metrics *otel.FeedMetrics
}

// NewDispatcher creates a dispatcher over the given state.
func NewDispatcher(book *core.OrderBook, instruments *reference.InstrumentStore, participants *reference.ParticipantRegistry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		book:         book,
		instruments:  instruments,
		participants: participants,
		policy:       PolicyHalt,
		stats:        NewStats(),
		metrics:      otel.GetFeedMetrics(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Frames returns the number of frames consumed so far. It may be read while
// Run is in progress.
func (d *Dispatcher) Frames() uint64 {
	return d.frames.Load()
}

// Stats returns the replay counters.
func (d *Dispatcher) Stats() StatsSummary {
	return d.stats.Summary()
}

// item is one frame on its way from the reader to the book.
type item struct {
	index uint64
	tag   byte
	class itch.Class
	msg   itch.Message
	err   error
	took  time.Duration
}

// Run replays r until the stream ends, an unrecognised tag is met, ctx is
// cancelled, or an error the policy does not allow to pass occurs. Such
// errors are returned as *FrameError.
func (d *Dispatcher) Run(ctx context.Context, r io.Reader) (Result, error) {
	ctx, span := otel.StartSpan(ctx, otel.SpanReplayFeed)
	defer span.End()

	logger := logging.FromContext(ctx)
	logger.Info().Str("policy", string(d.policy)).Int("pipeline_depth", d.depth).Msg("Starting feed replay")

	d.stats.start()
	var (
		res Result
		err error
	)
	if d.depth > 0 {
		res, err = d.runPipeline(ctx, r)
	} else {
		res, err = d.runSequential(ctx, r)
	}
	d.stats.stop()
	res.Frames = d.Frames()

	otel.AddAttributes(span, attribute.Int64(otel.AttributeFrameCount, int64(res.Frames)))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Uint64("frames", res.Frames).Msg("Feed replay failed")
		return res, err
	}
	logger.Info().Uint64("frames", res.Frames).Str("reason", string(res.Reason)).Msg("Feed replay finished")
	return res, nil
}

func (d *Dispatcher) runSequential(ctx context.Context, r io.Reader) (Result, error) {
	reader := itch.NewReader(r)
	var index uint64
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		it, ok := readItem(reader, index+1)
		if !ok {
			return Result{Reason: StopEndOfStream}, nil
		}
		index = it.index
		if stop, res, err := d.handle(ctx, it); stop {
			return res, err
		}
	}
}

// readItem reads and decodes the next frame. ok is false on a clean end of
// stream.
func readItem(reader *itch.Reader, index uint64) (it item, ok bool) {
	start := time.Now()
	f, err := reader.ReadFrame()
	if errors.Is(err, io.EOF) {
		return item{}, false
	}
	it = item{index: index, tag: f.Tag}
	if err != nil {
		it.err = err
		return it, true
	}
	it.class = itch.Classify(f.Tag)
	if it.class == itch.ClassDecode {
		it.msg, it.err = itch.Decode(f.Tag, f.Payload)
	}
	it.took = time.Since(start)
	return it, true
}

// handle applies one item. stop is true when the replay must end, with err
// set for failures.
func (d *Dispatcher) handle(ctx context.Context, it item) (stop bool, res Result, err error) {
	if it.err != nil {
		return true, Result{}, &FrameError{Index: it.index, Tag: it.tag, Kind: KindFraming, Err: it.err}
	}

	logger := logging.FromContext(ctx)
	switch it.class {
	case itch.ClassUnknown:
		logger.Info().Uint64("frame", it.index).Str("tag", string(it.tag)).Msg("Unrecognised message type, ending feed")
		return true, Result{Reason: StopUnknownType, Tag: it.tag}, nil
	case itch.ClassSkip:
		d.frames.Add(1)
		d.stats.add(&d.stats.skipped)
		d.stats.frame(itch.TypeOf(it.tag), it.took)
		logger.Debug().Uint64("frame", it.index).Str("type", itch.TypeOf(it.tag).String()).Msg("Skipping administrative message")
		d.maybeSnapshot(ctx)
		return false, Result{}, nil
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return true, Result{}, err
		}
	}

	start := time.Now()
	ferr := d.apply(ctx, it)
	took := it.took + time.Since(start)
	d.frames.Add(1)
	d.stats.frame(it.msg.Type(), took)
	d.metrics.RecordFrame(ctx, it.msg.Type().String(), took)

	if ferr != nil {
		if d.fatal(ferr) {
			return true, Result{}, ferr
		}
		if d.onError != nil {
			d.onError(ferr)
		}
	}

	d.maybeSnapshot(ctx)
	return false, Result{}, nil
}

// maybeSnapshot takes a snapshot when the frame count is a multiple of the
// snapshot interval. Skipped frames count.
func (d *Dispatcher) maybeSnapshot(ctx context.Context) {
	if n := d.Frames(); d.snapshotEvery > 0 && n%d.snapshotEvery == 0 {
		d.snapshot(ctx, n)
	}
}

// fatal records err and reports whether the replay must stop.
func (d *Dispatcher) fatal(err *FrameError) bool {
	switch err.Kind {
	case KindViolation:
		d.stats.add(&d.stats.violations)
		return d.policy != PolicySkip
	case KindLookup:
		d.stats.add(&d.stats.lookupErrors)
		return false
	default:
		return true
	}
}

// apply routes a decoded message and returns a *FrameError for anything that
// went wrong.
func (d *Dispatcher) apply(ctx context.Context, it item) *FrameError {
	logger := logging.FromContext(ctx).With().
		Uint64("frame", it.index).
		Str("type", it.msg.Type().String()).
		Uint16("locate", it.msg.MessageHeader().StockLocate).
		Logger()

	wrap := func(err error) *FrameError {
		fe := &FrameError{Index: it.index, Tag: it.tag, Kind: kindOf(err), Err: err}
		switch fe.Kind {
		case KindLookup:
			d.metrics.RecordLookupMiss(ctx)
			logger.Warn().Err(err).Msg("Reference lookup failed")
		case KindViolation:
			var v *core.ViolationError
			if errors.As(err, &v) {
				d.metrics.RecordViolation(ctx, string(v.Invariant))
				logger.Error().Err(err).Str("invariant", string(v.Invariant)).Uint64("key", v.Key).Msg("Consistency violation")
			}
		}
		return fe
	}

	switch m := it.msg.(type) {
	case *itch.SystemEventMessage:
		logger.Info().Str("event", string(m.EventCode)).Str("time", itch.FormatTimestamp(m.Timestamp)).Msg("System event")
		return nil
	case *itch.StockDirectoryMessage:
		if err := d.instruments.Register(m.StockLocate, m.Stock, reference.AttributesFrom(m)); err != nil {
			return wrap(err)
		}
		return nil
	case *itch.StockTradingActionMessage:
		if err := d.instruments.UpdateTradingState(m.StockLocate, m.Stock, m.TradingState, m.Reason); err != nil {
			return wrap(err)
		}
		return nil
	case *itch.RegSHORestrictionMessage:
		if err := d.instruments.UpdateRegSHO(m.StockLocate, m.Stock, m.RegSHOAction); err != nil {
			return wrap(err)
		}
		return nil
	case *itch.MarketParticipantPositionMessage:
		d.participants.Upsert(reference.Participant{
			MPID:                   m.MPID,
			Symbol:                 m.Stock,
			PrimaryMarketMaker:     m.PrimaryMarketMaker,
			MarketMakerMode:        m.MarketMakerMode,
			MarketParticipantState: m.MarketParticipantState,
		})
		return nil
	}

	done, err := d.book.Process(ctx, it.msg)
	if err != nil {
		return wrap(err)
	}
	d.track(ctx, done)
	return d.checkSymbol(it, logger, wrap)
}

// track updates counters and publishes the trade, if any, for an applied event.
func (d *Dispatcher) track(ctx context.Context, done *core.Done) {
	switch {
	case done.Ignored:
		d.stats.add(&d.stats.ignored)
	case done.Type == itch.TypeAddOrder:
		d.metrics.AddLiveOrders(ctx, 1)
	case done.Removed:
		d.metrics.AddLiveOrders(ctx, -1)
	}

	if d.sender == nil || done.Execution == nil {
		return
	}
	symbol := ""
	if sym, err := d.instruments.LookupSymbol(done.Execution.StockLocate); err == nil {
		symbol = sym.String()
	}

	_, span := otel.StartSpan(ctx, otel.SpanPublishTrade,
		attribute.Int64(otel.AttributeMatchNumber, int64(done.Execution.MatchNumber)))
	defer span.End()

	if err := d.sender.SendTrade(done.ToMessagingTrade(symbol)); err != nil {
		span.SetStatus(codes.Error, err.Error())
		d.stats.add(&d.stats.publishErrors)
		logger := logging.FromContext(ctx)
		logger.Warn().Err(err).Uint64("match", done.Execution.MatchNumber).Msg("Failed to publish trade")
		return
	}
	d.stats.add(&d.stats.tradesPublished)
	d.metrics.RecordTradePublished(ctx)
}

// checkSymbol compares the symbol carried by an applied message with the
// registered instrument. A disagreement is reported but the event stays applied.
func (d *Dispatcher) checkSymbol(it item, logger zerolog.Logger, wrap func(error) *FrameError) *FrameError {
	var sym itch.Symbol
	switch m := it.msg.(type) {
	case *itch.AddOrderMessage:
		sym = m.Stock
	case *itch.TradeNonCrossMessage:
		sym = m.Stock
	case *itch.TradeCrossMessage:
		sym = m.Stock
	default:
		return nil
	}
	registered, err := d.instruments.LookupSymbol(it.msg.MessageHeader().StockLocate)
	if err != nil {
		logger.Debug().Str("symbol", sym.String()).Msg("Event for unregistered instrument")
		return nil
	}
	if registered != sym {
		return wrap(&symbolError{locate: it.msg.MessageHeader().StockLocate, want: registered, got: sym})
	}
	return nil
}

type symbolError struct {
	locate    uint16
	want, got itch.Symbol
}

func (e *symbolError) Error() string {
	return reference.ErrSymbolMismatch.Error() + ": " + e.got.String() + " at locate of " + e.want.String()
}

func (e *symbolError) Unwrap() error { return reference.ErrSymbolMismatch }

// snapshot writes the book of every watched symbol to every sink.
func (d *Dispatcher) snapshot(ctx context.Context, frame uint64) {
	if len(d.sinks) == 0 || len(d.watch) == 0 {
		return
	}
	ctx, span := otel.StartSpan(ctx, otel.SpanSnapshot, attribute.Int64(otel.AttributeFrameIndex, int64(frame)))
	defer span.End()

	logger := logging.FromContext(ctx)
	for _, symbol := range d.watch {
		locate, err := d.instruments.LookupLocate(itch.SymbolFromString(symbol))
		if err != nil {
			logger.Debug().Str("symbol", symbol).Msg("Watched symbol not registered yet")
			continue
		}
		orders := d.book.OrdersByLocate(locate)
		for _, sink := range d.sinks {
			if err := sink.WriteSnapshot(ctx, symbol, frame, orders); err != nil {
				logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to write snapshot")
			}
		}
	}
	d.stats.add(&d.stats.snapshots)
}
