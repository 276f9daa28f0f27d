package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/erain9/itchbook/pkg/itch"
	"golang.org/x/time/rate"
)

type liveOrder struct {
	ref    uint64
	locate uint16
	side   itch.Side
	price  itch.Price
	shares uint32
}

// generator produces a random but self-consistent session: every event
// refers to an order that is live at that point, with enough volume.
type generator struct {
	rnd       *rand.Rand
	symbols   []string
	live      []liveOrder
	nextRef   uint64
	nextMatch uint64
	ts        uint64
	buf       []byte
}

func newGenerator(seed int64, symbols []string) *generator {
	return &generator{
		rnd:       rand.New(rand.NewSource(seed)),
		symbols:   symbols,
		nextRef:   1,
		nextMatch: 1,
		ts:        34200000000000,
	}
}

func (g *generator) header(locate uint16) itch.Header {
	g.ts += uint64(g.rnd.Intn(5000) + 1)
	return itch.Header{StockLocate: locate, Timestamp: g.ts}
}

func (g *generator) emit(w io.Writer, msg itch.Message) error {
	var err error
	g.buf, err = itch.AppendFrame(g.buf[:0], msg)
	if err != nil {
		return err
	}
	_, err = w.Write(g.buf)
	return err
}

func (g *generator) locateOf(symbol int) uint16 {
	return uint16(symbol + 1)
}

// basePrice is the mid price of a symbol, in wire units.
func (g *generator) basePrice(locate uint16) itch.Price {
	return itch.Price(uint32(locate) * 100 * 10000)
}

// Generate writes a session header, events frames of order flow, closing
// crosses and, when terminate is set, an end-of-feed frame. It returns the
// number of frames written before the end-of-feed frame.
func (g *generator) Generate(ctx context.Context, w io.Writer, events int, limiter *rate.Limiter, terminate bool) (int, error) {
	frames := 0
	write := func(msg itch.Message) error {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err := g.emit(w, msg); err != nil {
			return fmt.Errorf("write %s: %w", msg.Type(), err)
		}
		frames++
		return nil
	}

	if err := write(&itch.SystemEventMessage{Header: g.header(0), EventCode: 'O'}); err != nil {
		return frames, err
	}
	for i, s := range g.symbols {
		locate := g.locateOf(i)
		if err := write(g.directory(locate, s)); err != nil {
			return frames, err
		}
		if err := write(&itch.StockTradingActionMessage{
			Header: g.header(locate), Stock: itch.SymbolFromString(s), TradingState: 'T', Reason: [4]byte{' ', ' ', ' ', ' '},
		}); err != nil {
			return frames, err
		}
	}

	for i := 0; i < events; i++ {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		if err := write(g.next()); err != nil {
			return frames, err
		}
	}

	for i, s := range g.symbols {
		locate := g.locateOf(i)
		if err := write(&itch.TradeCrossMessage{
			Header: g.header(locate), Shares: uint64(g.rnd.Intn(100000) + 1), Stock: itch.SymbolFromString(s),
			CrossPrice: g.basePrice(locate), MatchNumber: g.match(), CrossType: 'C',
		}); err != nil {
			return frames, err
		}
	}
	if err := write(&itch.SystemEventMessage{Header: g.header(0), EventCode: 'C'}); err != nil {
		return frames, err
	}

	if terminate {
		if _, err := w.Write(itch.AppendRawFrame(nil, 'Z', nil)); err != nil {
			return frames, err
		}
	}
	return frames, nil
}

func (g *generator) directory(locate uint16, symbol string) *itch.StockDirectoryMessage {
	return &itch.StockDirectoryMessage{
		Header:                   g.header(locate),
		Stock:                    itch.SymbolFromString(symbol),
		MarketCategory:           'Q',
		FinancialStatusIndicator: 'N',
		RoundLotSize:             100,
		IssueClassification:      'C',
		IssueSubType:             [2]byte{'Z', ' '},
		Authenticity:             'P',
		ShortSaleThreshold:       'N',
		IPOFlag:                  'N',
		LULDReferencePriceTier:   '1',
		ETPFlag:                  'N',
	}
}

func (g *generator) match() uint64 {
	m := g.nextMatch
	g.nextMatch++
	return m
}

func (g *generator) ref() uint64 {
	r := g.nextRef
	g.nextRef++
	return r
}

func (g *generator) remove(i int) {
	last := len(g.live) - 1
	g.live[i] = g.live[last]
	g.live = g.live[:last]
}

// next picks one order flow event.
func (g *generator) next() itch.Message {
	if len(g.live) == 0 {
		return g.add()
	}
	i := g.rnd.Intn(len(g.live))
	o := g.live[i]

	switch roll := g.rnd.Intn(100); {
	case roll < 40:
		return g.add()
	case roll < 55:
		shares := uint32(g.rnd.Intn(int(o.shares))) + 1
		g.fill(i, shares)
		return &itch.OrderExecutedMessage{Header: g.header(o.locate), OrderRef: o.ref, ExecutedShares: shares, MatchNumber: g.match()}
	case roll < 60:
		shares := uint32(g.rnd.Intn(int(o.shares))) + 1
		g.fill(i, shares)
		return &itch.OrderExecutedWithPriceMessage{
			Header: g.header(o.locate), OrderRef: o.ref, ExecutedShares: shares, MatchNumber: g.match(),
			Printable: true, ExecutionPrice: g.jitter(o.price),
		}
	case roll < 70 && o.shares > 1:
		shares := uint32(g.rnd.Intn(int(o.shares-1))) + 1
		g.live[i].shares -= shares
		return &itch.DeleteCancelMessage{Header: g.header(o.locate), OrderRef: o.ref, Mode: itch.PartialCancel, CancelledShares: shares}
	case roll < 80:
		newRef := g.ref()
		shares := uint32(g.rnd.Intn(1000)) + 1
		price := g.jitter(o.price)
		g.live[i] = liveOrder{ref: newRef, locate: o.locate, side: o.side, price: price, shares: shares}
		return &itch.ReplaceOrderMessage{Header: g.header(o.locate), OriginalOrderRef: o.ref, NewOrderRef: newRef, Shares: shares, Price: price}
	case roll < 95:
		g.remove(i)
		return &itch.DeleteCancelMessage{Header: g.header(o.locate), OrderRef: o.ref, Mode: itch.FullDelete}
	default:
		sym := g.rnd.Intn(len(g.symbols))
		locate := g.locateOf(sym)
		return &itch.TradeNonCrossMessage{
			Header: g.header(locate), OrderRef: 0, Side: itch.Buy, Shares: uint32(g.rnd.Intn(500)) + 1,
			Stock: itch.SymbolFromString(g.symbols[sym]), Price: g.jitter(g.basePrice(locate)), MatchNumber: g.match(),
		}
	}
}

func (g *generator) add() itch.Message {
	sym := g.rnd.Intn(len(g.symbols))
	locate := g.locateOf(sym)
	side := itch.Buy
	price := g.basePrice(locate) - itch.Price(g.rnd.Intn(500)*100)
	if g.rnd.Intn(2) == 0 {
		side = itch.Sell
		price = g.basePrice(locate) + itch.Price(g.rnd.Intn(500)*100)
	}
	o := liveOrder{ref: g.ref(), locate: locate, side: side, price: price, shares: uint32(g.rnd.Intn(1000)) + 1}
	g.live = append(g.live, o)
	return &itch.AddOrderMessage{
		Header: g.header(locate), OrderRef: o.ref, Side: side, Shares: o.shares,
		Stock: itch.SymbolFromString(g.symbols[sym]), Price: price, Attribution: itch.DefaultAttribution,
	}
}

func (g *generator) fill(i int, shares uint32) {
	if shares >= g.live[i].shares {
		g.remove(i)
		return
	}
	g.live[i].shares -= shares
}

func (g *generator) jitter(p itch.Price) itch.Price {
	delta := itch.Price(g.rnd.Intn(200) * 100)
	if g.rnd.Intn(2) == 0 && p > delta {
		return p - delta
	}
	return p + delta
}
