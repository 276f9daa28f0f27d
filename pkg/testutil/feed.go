package testutil

import (
	"bytes"
	"testing"

	"github.com/erain9/itchbook/pkg/itch"
)

// FeedBuilder assembles an ITCH byte stream frame by frame.
type FeedBuilder struct {
	t   testing.TB
	buf []byte
	n   int
	ts  uint64
}

// NewFeedBuilder returns an empty builder. Encoding failures fail t.
func NewFeedBuilder(t testing.TB) *FeedBuilder {
	return &FeedBuilder{t: t, ts: 34200000000000}
}

// Frames returns the number of frames written so far.
func (b *FeedBuilder) Frames() int { return b.n }

// Bytes returns the encoded feed.
func (b *FeedBuilder) Bytes() []byte { return b.buf }

// Reader returns a reader over the encoded feed.
func (b *FeedBuilder) Reader() *bytes.Reader { return bytes.NewReader(b.buf) }

// Message appends msg as given.
func (b *FeedBuilder) Message(msg itch.Message) *FeedBuilder {
	b.t.Helper()
	var err error
	b.buf, err = itch.AppendFrame(b.buf, msg)
	if err != nil {
		b.t.Fatalf("encode %s: %v", msg.Type(), err)
	}
	b.n++
	return b
}

// Raw appends a frame with an arbitrary tag and payload.
func (b *FeedBuilder) Raw(tag byte, payload []byte) *FeedBuilder {
	b.buf = itch.AppendRawFrame(b.buf, tag, payload)
	b.n++
	return b
}

// Append appends raw bytes without framing.
func (b *FeedBuilder) Append(p ...byte) *FeedBuilder {
	b.buf = append(b.buf, p...)
	return b
}

func (b *FeedBuilder) header(locate uint16) itch.Header {
	b.ts += 1000
	return itch.Header{StockLocate: locate, Timestamp: b.ts}
}

// SystemEvent appends a system event.
func (b *FeedBuilder) SystemEvent(code byte) *FeedBuilder {
	return b.Message(&itch.SystemEventMessage{Header: b.header(0), EventCode: code})
}

// StockDirectory appends a directory entry for symbol at locate.
func (b *FeedBuilder) StockDirectory(locate uint16, symbol string) *FeedBuilder {
	return b.Message(&itch.StockDirectoryMessage{
		Header:                   b.header(locate),
		Stock:                    itch.SymbolFromString(symbol),
		MarketCategory:           'Q',
		FinancialStatusIndicator: 'N',
		RoundLotSize:             100,
		RoundLotsOnly:            false,
		IssueClassification:      'C',
		IssueSubType:             [2]byte{'Z', ' '},
		Authenticity:             'P',
		ShortSaleThreshold:       'N',
		IPOFlag:                  ' ',
		LULDReferencePriceTier:   '1',
		ETPFlag:                  'N',
		ETPLeverageFactor:        0,
		InverseIndicator:         false,
	})
}

// TradingAction appends a trading action for symbol.
func (b *FeedBuilder) TradingAction(locate uint16, symbol string, state byte) *FeedBuilder {
	return b.Message(&itch.StockTradingActionMessage{
		Header:       b.header(locate),
		Stock:        itch.SymbolFromString(symbol),
		TradingState: state,
		Reason:       [4]byte{' ', ' ', ' ', ' '},
	})
}

// RegSHO appends a Reg SHO restriction for symbol.
func (b *FeedBuilder) RegSHO(locate uint16, symbol string, action byte) *FeedBuilder {
	return b.Message(&itch.RegSHORestrictionMessage{
		Header:       b.header(locate),
		Stock:        itch.SymbolFromString(symbol),
		RegSHOAction: action,
	})
}

// Participant appends a market participant position.
func (b *FeedBuilder) Participant(locate uint16, mpid, symbol string) *FeedBuilder {
	return b.Message(&itch.MarketParticipantPositionMessage{
		Header:                 b.header(locate),
		MPID:                   itch.MPIDFromString(mpid),
		Stock:                  itch.SymbolFromString(symbol),
		PrimaryMarketMaker:     true,
		MarketMakerMode:        'N',
		MarketParticipantState: 'A',
	})
}

// AddOrder appends an unattributed add order.
func (b *FeedBuilder) AddOrder(locate uint16, ref uint64, side itch.Side, shares uint32, symbol string, price itch.Price) *FeedBuilder {
	return b.Message(&itch.AddOrderMessage{
		Header:      b.header(locate),
		OrderRef:    ref,
		Side:        side,
		Shares:      shares,
		Stock:       itch.SymbolFromString(symbol),
		Price:       price,
		Attribution: itch.DefaultAttribution,
	})
}

// AddOrderMPID appends an attributed add order.
func (b *FeedBuilder) AddOrderMPID(locate uint16, ref uint64, side itch.Side, shares uint32, symbol string, price itch.Price, mpid string) *FeedBuilder {
	return b.Message(&itch.AddOrderMessage{
		Header:      b.header(locate),
		OrderRef:    ref,
		Side:        side,
		Shares:      shares,
		Stock:       itch.SymbolFromString(symbol),
		Price:       price,
		Attribution: itch.MPIDFromString(mpid),
		Attributed:  true,
	})
}

// Delete appends a full delete.
func (b *FeedBuilder) Delete(locate uint16, ref uint64) *FeedBuilder {
	return b.Message(&itch.DeleteCancelMessage{Header: b.header(locate), OrderRef: ref, Mode: itch.FullDelete})
}

// Cancel appends a partial cancel.
func (b *FeedBuilder) Cancel(locate uint16, ref uint64, shares uint32) *FeedBuilder {
	return b.Message(&itch.DeleteCancelMessage{Header: b.header(locate), OrderRef: ref, Mode: itch.PartialCancel, CancelledShares: shares})
}

// Replace appends an order replace.
func (b *FeedBuilder) Replace(locate uint16, orig, newRef uint64, shares uint32, price itch.Price) *FeedBuilder {
	return b.Message(&itch.ReplaceOrderMessage{Header: b.header(locate), OriginalOrderRef: orig, NewOrderRef: newRef, Shares: shares, Price: price})
}

// Execute appends an order executed message.
func (b *FeedBuilder) Execute(locate uint16, ref uint64, shares uint32, match uint64) *FeedBuilder {
	return b.Message(&itch.OrderExecutedMessage{Header: b.header(locate), OrderRef: ref, ExecutedShares: shares, MatchNumber: match})
}

// ExecuteAtPrice appends an order executed with price message.
func (b *FeedBuilder) ExecuteAtPrice(locate uint16, ref uint64, shares uint32, match uint64, printable bool, price itch.Price) *FeedBuilder {
	return b.Message(&itch.OrderExecutedWithPriceMessage{
		Header: b.header(locate), OrderRef: ref, ExecutedShares: shares, MatchNumber: match,
		Printable: printable, ExecutionPrice: price,
	})
}

// Trade appends a non-cross trade.
func (b *FeedBuilder) Trade(locate uint16, shares uint32, symbol string, price itch.Price, match uint64) *FeedBuilder {
	return b.Message(&itch.TradeNonCrossMessage{
		Header: b.header(locate), Side: itch.Buy, Shares: shares,
		Stock: itch.SymbolFromString(symbol), Price: price, MatchNumber: match,
	})
}

// Cross appends a cross trade.
func (b *FeedBuilder) Cross(locate uint16, shares uint64, symbol string, price itch.Price, match uint64, crossType byte) *FeedBuilder {
	return b.Message(&itch.TradeCrossMessage{
		Header: b.header(locate), Shares: shares, Stock: itch.SymbolFromString(symbol),
		CrossPrice: price, MatchNumber: match, CrossType: crossType,
	})
}
