package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/erain9/itchbook/pkg/backend/memory"
	"github.com/erain9/itchbook/pkg/core"
	"github.com/erain9/itchbook/pkg/itch"
	"github.com/erain9/itchbook/pkg/messaging"
	"github.com/erain9/itchbook/pkg/reference"
	"github.com/erain9/itchbook/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	book         *core.OrderBook
	instruments  *reference.InstrumentStore
	participants *reference.ParticipantRegistry
}

func newFixture() fixture {
	return fixture{
		book:         core.NewOrderBook(memory.NewMemoryBackend()),
		instruments:  reference.NewInstrumentStore(),
		participants: reference.NewParticipantRegistry(),
	}
}

func (f fixture) dispatcher(opts ...Option) *Dispatcher {
	return NewDispatcher(f.book, f.instruments, f.participants, opts...)
}

// sessionFeed is a small but complete trading session for two instruments.
func sessionFeed(t *testing.T) *testutil.FeedBuilder {
	return testutil.NewFeedBuilder(t).
		SystemEvent('O').
		StockDirectory(1, "AAPL").
		StockDirectory(2, "MSFT").
		Participant(1, "GSCO", "AAPL").
		TradingAction(1, "AAPL", 'T').
		RegSHO(2, "MSFT", '0').
		AddOrder(1, 10, itch.Buy, 100, "AAPL", 1500000).
		AddOrderMPID(1, 11, itch.Sell, 200, "AAPL", 1501000, "GSCO").
		AddOrder(2, 20, itch.Buy, 300, "MSFT", 4000000).
		Raw('I', make([]byte, 49)).
		Cancel(1, 10, 20).
		Replace(1, 11, 12, 150, 1502000).
		Execute(1, 10, 50, 1).
		ExecuteAtPrice(1, 12, 50, 2, true, 1501500).
		ExecuteAtPrice(1, 12, 10, 3, false, 1501500).
		Trade(2, 500, "MSFT", 4000100, 4).
		Cross(2, 10000, "MSFT", 4000000, 5, 'O').
		Delete(2, 20).
		SystemEvent('C')
}

func TestDispatcher_Session(t *testing.T) {
	f := newFixture()
	feed := sessionFeed(t)
	d := f.dispatcher()

	res, err := d.Run(context.Background(), feed.Reader())
	require.NoError(t, err)
	assert.Equal(t, StopEndOfStream, res.Reason)
	assert.Equal(t, uint64(feed.Frames()), res.Frames)
	assert.Equal(t, res.Frames, d.Frames())

	orders := f.book.OrdersByLocate(1)
	require.Len(t, orders, 2)
	assert.Equal(t, core.Order{Ref: 10, Side: itch.Buy, StockLocate: 1, Price: 1500000, Volume: 30}, orders[0])
	assert.Equal(t, core.Order{Ref: 12, Side: itch.Sell, StockLocate: 1, Price: 1502000, Volume: 100}, orders[1])
	assert.Empty(t, f.book.OrdersByLocate(2))

	assert.Equal(t, []itch.Price{1500000, 1501500}, f.book.TradePrices(1))
	assert.Equal(t, []itch.Price{4000100, 4000000}, f.book.TradePrices(2))

	inst, ok := f.instruments.Get(1)
	require.True(t, ok)
	assert.Equal(t, byte('T'), inst.TradingState)
	inst, _ = f.instruments.Get(2)
	assert.Equal(t, byte('0'), inst.RegSHOAction)
	assert.Equal(t, 1, f.participants.Len())

	stats := d.Stats()
	assert.Equal(t, res.Frames, stats.Frames)
	assert.Equal(t, uint64(1), stats.Skipped)
	assert.Equal(t, uint64(1), stats.Ignored)
	assert.Equal(t, uint64(3), stats.ByType[itch.TypeAddOrder])
	assert.Equal(t, uint64(2), stats.ByType[itch.TypeSystemEvent])
	assert.Zero(t, stats.Violations)
	assert.Zero(t, stats.LookupErrors)
	assert.GreaterOrEqual(t, stats.LatencyMax, stats.LatencyP50)
}

func TestDispatcher_UnknownTypeEndsFeed(t *testing.T) {
	f := newFixture()
	feed := testutil.NewFeedBuilder(t).
		AddOrder(1, 1, itch.Buy, 10, "AAPL", 100).
		Raw('Z', []byte{1, 2, 3}).
		AddOrder(1, 2, itch.Buy, 10, "AAPL", 100)

	res, err := f.dispatcher().Run(context.Background(), feed.Reader())
	require.NoError(t, err)
	assert.Equal(t, StopUnknownType, res.Reason)
	assert.Equal(t, byte('Z'), res.Tag)
	assert.Equal(t, uint64(1), res.Frames)

	_, ok := f.book.GetOrder(2)
	assert.False(t, ok)
}

func TestDispatcher_FramingErrors(t *testing.T) {
	t.Run("truncated frame", func(t *testing.T) {
		f := newFixture()
		feed := testutil.NewFeedBuilder(t).
			AddOrder(1, 1, itch.Buy, 10, "AAPL", 100).
			Append(0x00, 0x24, 'A', 0x00)

		res, err := f.dispatcher(WithPolicy(PolicySkip)).Run(context.Background(), feed.Reader())
		var fe *FrameError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, KindFraming, fe.Kind)
		assert.Equal(t, uint64(2), fe.Index)
		assert.ErrorIs(t, err, itch.ErrFraming)
		assert.Equal(t, uint64(1), res.Frames)
	})

	t.Run("bad payload length", func(t *testing.T) {
		f := newFixture()
		feed := testutil.NewFeedBuilder(t).Raw('E', make([]byte, 29))

		_, err := f.dispatcher().Run(context.Background(), feed.Reader())
		var fe *FrameError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, KindFraming, fe.Kind)
		assert.Equal(t, byte('E'), fe.Tag)
	})
}

func TestDispatcher_ViolationHalts(t *testing.T) {
	f := newFixture()
	feed := testutil.NewFeedBuilder(t).
		AddOrder(1, 1, itch.Buy, 10, "AAPL", 100).
		Execute(1, 1, 11, 1).
		Delete(1, 1)

	res, err := f.dispatcher().Run(context.Background(), feed.Reader())
	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindViolation, fe.Kind)
	assert.Equal(t, uint64(2), fe.Index)

	var v *core.ViolationError
	require.True(t, errors.As(err, &v))
	assert.Equal(t, core.InvariantNonNegativeVolume, v.Invariant)
	assert.Equal(t, uint64(1), v.Key)

	// The rejected event left the order untouched and the delete never ran.
	order, ok := f.book.GetOrder(1)
	require.True(t, ok)
	assert.Equal(t, uint32(10), order.Volume)
	assert.Equal(t, uint64(2), res.Frames)
}

func TestDispatcher_ViolationSkips(t *testing.T) {
	f := newFixture()
	feed := testutil.NewFeedBuilder(t).
		AddOrder(1, 1, itch.Buy, 10, "AAPL", 100).
		AddOrder(1, 1, itch.Sell, 10, "AAPL", 100).
		Delete(1, 99).
		Delete(1, 1)

	var seen []*FrameError
	d := f.dispatcher(WithPolicy(PolicySkip), WithErrorHandler(func(fe *FrameError) { seen = append(seen, fe) }))
	res, err := d.Run(context.Background(), feed.Reader())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), res.Frames)

	require.Len(t, seen, 2)
	assert.ErrorIs(t, seen[0], core.ErrOrderExists)
	assert.ErrorIs(t, seen[1], core.ErrNonexistentOrder)
	assert.Equal(t, uint64(2), d.Stats().Violations)
	assert.Equal(t, 0, f.book.OrderCount())
}

func TestDispatcher_LookupErrorsAreNotFatal(t *testing.T) {
	f := newFixture()
	feed := testutil.NewFeedBuilder(t).
		StockDirectory(1, "AAPL").
		StockDirectory(1, "MSFT").
		TradingAction(7, "ZZZZ", 'H').
		RegSHO(1, "MSFT", '1').
		AddOrder(1, 1, itch.Buy, 10, "MSFT", 100)

	var kinds []ErrorKind
	d := f.dispatcher(WithErrorHandler(func(fe *FrameError) { kinds = append(kinds, fe.Kind) }))
	_, err := d.Run(context.Background(), feed.Reader())
	require.NoError(t, err)

	assert.Equal(t, []ErrorKind{KindLookup, KindLookup, KindLookup, KindLookup}, kinds)
	assert.Equal(t, uint64(4), d.Stats().LookupErrors)

	sym, err := f.instruments.LookupSymbol(1)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", sym.String())
	// The add still went into the book.
	_, ok := f.book.GetOrder(1)
	assert.True(t, ok)
}

func TestDispatcher_PublishesTrades(t *testing.T) {
	f := newFixture()
	sender := messaging.NewMockTradeSender()
	feed := testutil.NewFeedBuilder(t).
		StockDirectory(1, "AAPL").
		AddOrder(1, 1, itch.Buy, 100, "AAPL", 1500000).
		AddOrder(1, 2, itch.Buy, 100, "AAPL", 1500000).
		Execute(1, 1, 100, 9).
		Execute(1, 2, 50, 9).
		Cross(1, 1000, "AAPL", 1500000, 10, 'C')

	d := f.dispatcher(WithTradeSender(sender))
	_, err := d.Run(context.Background(), feed.Reader())
	require.NoError(t, err)

	trades := sender.Trades()
	require.Len(t, trades, 3)
	assert.Equal(t, "AAPL", trades[0].Symbol)
	assert.Equal(t, uint64(100), trades[0].TotalVolume)
	assert.Equal(t, uint64(150), trades[1].TotalVolume)
	assert.Equal(t, uint64(2), trades[1].OrderRef)
	assert.Equal(t, "C", trades[2].CrossType)
	assert.Equal(t, "150.0000", trades[2].Price)
	assert.Equal(t, uint64(3), d.Stats().TradesPublished)
}

func TestDispatcher_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	sender := messaging.NewMockTradeSender()
	sender.Err = errors.New("broker down")
	feed := testutil.NewFeedBuilder(t).
		Trade(1, 100, "AAPL", 100, 1)

	d := f.dispatcher(WithTradeSender(sender))
	_, err := d.Run(context.Background(), feed.Reader())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), d.Stats().PublishErrors)
	assert.Equal(t, 1, f.book.TradeCount())
}

type recordingSink struct {
	frames  []uint64
	symbols []string
	sizes   []int
}

func (s *recordingSink) WriteSnapshot(ctx context.Context, symbol string, frame uint64, orders []core.Order) error {
	s.frames = append(s.frames, frame)
	s.symbols = append(s.symbols, symbol)
	s.sizes = append(s.sizes, len(orders))
	return nil
}

func TestDispatcher_Snapshots(t *testing.T) {
	f := newFixture()
	sink := &recordingSink{}
	feed := testutil.NewFeedBuilder(t).
		StockDirectory(1, "AAPL").
		AddOrder(1, 1, itch.Buy, 100, "AAPL", 100).
		AddOrder(1, 2, itch.Buy, 100, "AAPL", 100).
		AddOrder(1, 3, itch.Buy, 100, "AAPL", 100).
		Delete(1, 1).
		Delete(1, 2)

	d := f.dispatcher(WithSnapshots(2, []string{"AAPL", "NOPE"}, sink))
	_, err := d.Run(context.Background(), feed.Reader())
	require.NoError(t, err)

	assert.Equal(t, []uint64{2, 4, 6}, sink.frames)
	assert.Equal(t, []string{"AAPL", "AAPL", "AAPL"}, sink.symbols)
	assert.Equal(t, []int{1, 3, 1}, sink.sizes)
	assert.Equal(t, uint64(3), d.Stats().Snapshots)
}

func TestDispatcher_SnapshotOnSkippedFrame(t *testing.T) {
	f := newFixture()
	sink := &recordingSink{}
	feed := testutil.NewFeedBuilder(t).
		StockDirectory(1, "AAPL").
		Raw('I', make([]byte, 49))

	d := f.dispatcher(WithSnapshots(2, []string{"AAPL"}, sink))
	res, err := d.Run(context.Background(), feed.Reader())
	require.NoError(t, err)

	assert.Equal(t, uint64(2), res.Frames)
	assert.Equal(t, []uint64{2}, sink.frames)
	assert.Equal(t, uint64(1), d.Stats().Snapshots)
}

// failingBackend fails every order read once err is set.
type failingBackend struct {
	*memory.MemoryBackend
	err error
}

func (b *failingBackend) GetOrder(ref uint64) (core.Order, bool, error) {
	if b.err != nil {
		return core.Order{}, false, b.err
	}
	return b.MemoryBackend.GetOrder(ref)
}

func TestDispatcher_StoreFailureIsInternal(t *testing.T) {
	backend := &failingBackend{MemoryBackend: memory.NewMemoryBackend(), err: errors.New("connection reset")}
	book := core.NewOrderBook(backend)
	d := NewDispatcher(book, reference.NewInstrumentStore(), reference.NewParticipantRegistry(), WithPolicy(PolicySkip))
	feed := testutil.NewFeedBuilder(t).
		StockDirectory(1, "AAPL").
		AddOrder(1, 1, itch.Buy, 100, "AAPL", 100)

	_, err := d.Run(context.Background(), feed.Reader())
	require.Error(t, err)
	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindInternal, fe.Kind)
	assert.Equal(t, uint64(2), fe.Index)
	assert.ErrorIs(t, err, backend.err)
	assert.Zero(t, d.Stats().Violations)
}

func TestDispatcher_PipelineMatchesSequential(t *testing.T) {
	seq := newFixture()
	_, err := seq.dispatcher().Run(context.Background(), sessionFeed(t).Reader())
	require.NoError(t, err)

	for _, depth := range []int{1, 4, 1024} {
		pipe := newFixture()
		d := pipe.dispatcher(WithPipeline(depth))
		res, err := d.Run(context.Background(), sessionFeed(t).Reader())
		require.NoError(t, err)
		assert.Equal(t, StopEndOfStream, res.Reason)
		assert.Equal(t, uint64(sessionFeed(t).Frames()), res.Frames)
		assert.Equal(t, seq.book.Snapshot(), pipe.book.Snapshot(), "depth %d", depth)
	}
}

func TestDispatcher_PipelineStops(t *testing.T) {
	t.Run("violation", func(t *testing.T) {
		f := newFixture()
		feed := testutil.NewFeedBuilder(t).Delete(1, 5)
		for i := uint64(0); i < 100; i++ {
			feed.AddOrder(1, 100+i, itch.Buy, 1, "AAPL", 1)
		}

		res, err := f.dispatcher(WithPipeline(2)).Run(context.Background(), feed.Reader())
		assert.ErrorIs(t, err, core.ErrNonexistentOrder)
		assert.Equal(t, uint64(1), res.Frames)
		assert.Equal(t, 0, f.book.OrderCount())
	})

	t.Run("unknown type", func(t *testing.T) {
		f := newFixture()
		feed := testutil.NewFeedBuilder(t).
			AddOrder(1, 1, itch.Buy, 1, "AAPL", 1).
			Raw('z', nil).
			AddOrder(1, 2, itch.Buy, 1, "AAPL", 1)

		res, err := f.dispatcher(WithPipeline(8)).Run(context.Background(), feed.Reader())
		require.NoError(t, err)
		assert.Equal(t, StopUnknownType, res.Reason)
		assert.Equal(t, 1, f.book.OrderCount())
	})

	t.Run("framing", func(t *testing.T) {
		f := newFixture()
		feed := testutil.NewFeedBuilder(t).Append(0x00)

		_, err := f.dispatcher(WithPipeline(8)).Run(context.Background(), feed.Reader())
		assert.ErrorIs(t, err, itch.ErrFraming)
	})
}

func TestDispatcher_Cancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.dispatcher().Run(ctx, sessionFeed(t).Reader())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = newFixture().dispatcher(WithPipeline(2)).Run(ctx, sessionFeed(t).Reader())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatcher_RateLimited(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(WithRateLimit(1e6))
	res, err := d.Run(context.Background(), sessionFeed(t).Reader())
	require.NoError(t, err)
	assert.Equal(t, StopEndOfStream, res.Reason)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyHalt, p)

	_, err = ParsePolicy("ignore")
	assert.Error(t, err)
}

func TestFrameError(t *testing.T) {
	err := &FrameError{Index: 3, Tag: 'E', Kind: KindViolation, Err: core.ErrNonexistentOrder}
	assert.Equal(t, "frame 3 (ORDER_EXECUTED): violation: nonexistent order", err.Error())
	assert.ErrorIs(t, err, core.ErrNonexistentOrder)
}
