package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/erain9/itchbook/pkg/itch"
	"github.com/erain9/itchbook/pkg/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OrderBook reconstructs the live order book and the trade ledger from ITCH
// events. Every mutating operation either applies completely or returns an
// error and leaves both stores untouched.
type OrderBook struct {
	mu      sync.RWMutex
	backend OrderBookBackend
}

// NewOrderBook creates an OrderBook over backend
func NewOrderBook(backend OrderBookBackend) *OrderBook {
	return &OrderBook{backend: backend}
}

// Process applies one decoded message. Messages the engine has no use for
// return ErrUnsupportedMessage.
func (ob *OrderBook) Process(ctx context.Context, msg itch.Message) (done *Done, err error) {
	_, span := otel.StartSpan(ctx, otel.SpanProcessEvent,
		attribute.String(otel.AttributeMessageType, msg.Type().String()),
		attribute.Int(otel.AttributeStockLocate, int(msg.MessageHeader().StockLocate)),
	)
	defer span.End()

	switch m := msg.(type) {
	case *itch.AddOrderMessage:
		done, err = ob.AddOrder(m.OrderRef, m.Side, m.StockLocate, m.Price, m.Shares)
	case *itch.DeleteCancelMessage:
		if m.Mode == itch.FullDelete {
			done, err = ob.DeleteOrder(m.OrderRef)
		} else {
			done, err = ob.CancelOrder(m.OrderRef, m.CancelledShares)
		}
	case *itch.ReplaceOrderMessage:
		done, err = ob.ReplaceOrder(m.OriginalOrderRef, m.NewOrderRef, m.Shares, m.Price)
	case *itch.OrderExecutedMessage:
		done, err = ob.ExecuteOrder(m.OrderRef, m.ExecutedShares, m.MatchNumber)
	case *itch.OrderExecutedWithPriceMessage:
		if !m.Printable {
			done = newDone(itch.TypeOrderExecutedWithPrice, m.OrderRef)
			done.Ignored = true
			break
		}
		done, err = ob.ExecuteOrderAtPrice(m.OrderRef, m.ExecutedShares, m.MatchNumber, m.ExecutionPrice)
	case *itch.TradeNonCrossMessage:
		done, err = ob.NonCrossTrade(m.StockLocate, m.Shares, m.Price, m.MatchNumber)
	case *itch.TradeCrossMessage:
		done, err = ob.CrossTrade(m.StockLocate, m.Shares, m.CrossPrice, m.MatchNumber, m.CrossType)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedMessage, msg.Type())
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	done.Timestamp = msg.MessageHeader().Timestamp
	otel.AddAttributes(span,
		attribute.Int64(otel.AttributeOrderRef, int64(done.OrderRef)),
		attribute.Int64(otel.AttributeRemaining, int64(done.Remaining)),
	)
	span.SetStatus(codes.Ok, "")
	return done, nil
}

// AddOrder inserts a new resting order.
func (ob *OrderBook) AddOrder(ref uint64, side itch.Side, locate uint16, price itch.Price, shares uint32) (*Done, error) {
	if shares == 0 {
		return nil, violation(InvariantPositiveVolume, ref, ErrInvalidQuantity, "add with zero shares")
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	_, exists, err := ob.backend.GetOrder(ref)
	if err != nil {
		return nil, fmt.Errorf("add %d: %w", ref, err)
	}
	if exists {
		return nil, violation(InvariantUniqueOrderRef, ref, ErrOrderExists, "")
	}
	order := Order{Ref: ref, Side: side, StockLocate: locate, Price: price, Volume: shares}
	if err := ob.backend.StoreOrder(order); err != nil {
		return nil, err
	}

	done := newDone(itch.TypeAddOrder, ref)
	done.Remaining = shares
	return done, nil
}

// DeleteOrder removes an order in full.
func (ob *OrderBook) DeleteOrder(ref uint64) (*Done, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	deleted, err := ob.backend.DeleteOrder(ref)
	if err != nil {
		return nil, fmt.Errorf("delete %d: %w", ref, err)
	}
	if !deleted {
		return nil, violation(InvariantLiveOrder, ref, ErrNonexistentOrder, "delete")
	}
	done := newDone(itch.TypeDeleteCancel, ref)
	done.Removed = true
	return done, nil
}

// CancelOrder reduces an order's volume. An order whose volume reaches zero
// is removed.
func (ob *OrderBook) CancelOrder(ref uint64, shares uint32) (*Done, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	order, err := ob.reduce(ref, shares, "cancel")
	if err != nil {
		return nil, err
	}
	done := newDone(itch.TypeDeleteCancel, ref)
	done.Remaining = order.Volume
	done.Removed = order.Volume == 0
	return done, nil
}

// ReplaceOrder removes orig and inserts newRef with the given shares and
// price. The new order inherits side and stock locate from the original.
func (ob *OrderBook) ReplaceOrder(orig, newRef uint64, shares uint32, price itch.Price) (*Done, error) {
	if shares == 0 {
		return nil, violation(InvariantPositiveVolume, newRef, ErrInvalidQuantity, "replace with zero shares")
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	old, err := ob.liveOrder(orig, "replace")
	if err != nil {
		return nil, err
	}
	_, exists, err := ob.backend.GetOrder(newRef)
	if err != nil {
		return nil, fmt.Errorf("replace %d: %w", orig, err)
	}
	if exists {
		return nil, violation(InvariantReplaceTarget, newRef, ErrReplaceTargetExists, "replacing %d", orig)
	}

	if _, err := ob.backend.DeleteOrder(orig); err != nil {
		return nil, fmt.Errorf("replace %d: %w", orig, err)
	}
	order := Order{Ref: newRef, Side: old.Side, StockLocate: old.StockLocate, Price: price, Volume: shares}
	if err := ob.backend.StoreOrder(order); err != nil {
		// Put the original back so the replace has no effect.
		_ = ob.backend.StoreOrder(old)
		return nil, err
	}

	done := newDone(itch.TypeReplaceOrder, orig)
	done.NewOrderRef = newRef
	done.Remaining = shares
	return done, nil
}

// ExecuteOrder executes shares against a resting order at its own price and
// folds the execution into the trade for matchNumber.
func (ob *OrderBook) ExecuteOrder(ref uint64, shares uint32, matchNumber uint64) (*Done, error) {
	return ob.execute(itch.TypeOrderExecuted, ref, shares, matchNumber, nil)
}

// ExecuteOrderAtPrice is ExecuteOrder at an explicit execution price. Callers
// pass only printable executions.
func (ob *OrderBook) ExecuteOrderAtPrice(ref uint64, shares uint32, matchNumber uint64, price itch.Price) (*Done, error) {
	return ob.execute(itch.TypeOrderExecutedWithPrice, ref, shares, matchNumber, &price)
}

func (ob *OrderBook) execute(t itch.MessageType, ref uint64, shares uint32, matchNumber uint64, at *itch.Price) (*Done, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	order, err := ob.liveOrder(ref, "execute")
	if err != nil {
		return nil, err
	}
	price := order.Price
	if at != nil {
		price = *at
	}

	// Validate both sides before touching either store.
	if shares == 0 {
		return nil, violation(InvariantPositiveVolume, ref, ErrInvalidQuantity, "execute with zero shares")
	}
	if shares > order.Volume {
		return nil, violation(InvariantNonNegativeVolume, ref, ErrInsufficientVolume, "execute %d of %d", shares, order.Volume)
	}
	trade, err := ob.foldTrade(matchNumber, order.StockLocate, price, uint64(shares), NoCrossType)
	if err != nil {
		return nil, err
	}

	before := order
	order.Volume -= shares
	if err := ob.applyVolume(order); err != nil {
		return nil, err
	}
	if err := ob.backend.StoreTrade(trade); err != nil {
		ob.restore(before, order.Volume == 0)
		return nil, fmt.Errorf("execute %d: %w", ref, err)
	}

	done := newDone(t, ref)
	done.Remaining = order.Volume
	done.Removed = order.Volume == 0
	done.Execution = &Execution{
		MatchNumber: matchNumber,
		StockLocate: order.StockLocate,
		Price:       price,
		Shares:      uint64(shares),
		Total:       trade.Volume,
		CrossType:   NoCrossType,
	}
	return done, nil
}

// NonCrossTrade records a trade against a non-displayed order. The book is
// not touched.
func (ob *OrderBook) NonCrossTrade(locate uint16, shares uint32, price itch.Price, matchNumber uint64) (*Done, error) {
	return ob.recordTrade(itch.TypeTradeNonCross, locate, uint64(shares), price, matchNumber, NoCrossType)
}

// CrossTrade records the bulk print of a cross. The book is not touched.
func (ob *OrderBook) CrossTrade(locate uint16, shares uint64, price itch.Price, matchNumber uint64, crossType byte) (*Done, error) {
	return ob.recordTrade(itch.TypeTradeCross, locate, shares, price, matchNumber, crossType)
}

func (ob *OrderBook) recordTrade(t itch.MessageType, locate uint16, shares uint64, price itch.Price, matchNumber uint64, crossType byte) (*Done, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	trade, err := ob.foldTrade(matchNumber, locate, price, shares, crossType)
	if err != nil {
		return nil, err
	}
	if err := ob.backend.StoreTrade(trade); err != nil {
		return nil, fmt.Errorf("trade %d: %w", matchNumber, err)
	}

	done := newDone(t, 0)
	done.Execution = &Execution{
		MatchNumber: matchNumber,
		StockLocate: locate,
		Price:       price,
		Shares:      shares,
		Total:       trade.Volume,
		CrossType:   crossType,
	}
	return done, nil
}

// foldTrade returns the aggregate for matchNumber with shares added. It does
// not store it. A report that disagrees with the existing aggregate on price
// or stock locate is a violation.
func (ob *OrderBook) foldTrade(matchNumber uint64, locate uint16, price itch.Price, shares uint64, crossType byte) (Trade, error) {
	trade, ok, err := ob.backend.GetTrade(matchNumber)
	if err != nil {
		return Trade{}, fmt.Errorf("trade %d: %w", matchNumber, err)
	}
	if !ok {
		return Trade{
			MatchNumber: matchNumber,
			StockLocate: locate,
			Price:       price,
			Volume:      shares,
			CrossType:   crossType,
		}, nil
	}
	if trade.Price != price || trade.StockLocate != locate {
		return Trade{}, violation(InvariantTradeAgreement, matchNumber, ErrTradeMismatch,
			"have locate %d price %s, got locate %d price %s", trade.StockLocate, trade.Price, locate, price)
	}
	trade.Volume += shares
	return trade, nil
}

// reduce subtracts shares from the order and stores the result. Caller holds
// the write lock.
func (ob *OrderBook) reduce(ref uint64, shares uint32, op string) (Order, error) {
	order, err := ob.liveOrder(ref, op)
	if err != nil {
		return Order{}, err
	}
	if shares == 0 {
		return Order{}, violation(InvariantPositiveVolume, ref, ErrInvalidQuantity, "%s with zero shares", op)
	}
	if shares > order.Volume {
		return Order{}, violation(InvariantNonNegativeVolume, ref, ErrInsufficientVolume, "%s %d of %d", op, shares, order.Volume)
	}
	order.Volume -= shares
	if err := ob.applyVolume(order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// liveOrder loads the order with ref. A missing order is a violation, a store
// failure is returned as is.
func (ob *OrderBook) liveOrder(ref uint64, op string) (Order, error) {
	order, ok, err := ob.backend.GetOrder(ref)
	if err != nil {
		return Order{}, fmt.Errorf("%s %d: %w", op, ref, err)
	}
	if !ok {
		return Order{}, violation(InvariantLiveOrder, ref, ErrNonexistentOrder, op)
	}
	return order, nil
}

// applyVolume writes back an order whose volume changed, dropping it when empty.
func (ob *OrderBook) applyVolume(order Order) error {
	if order.Volume == 0 {
		if _, err := ob.backend.DeleteOrder(order.Ref); err != nil {
			return fmt.Errorf("remove %d: %w", order.Ref, err)
		}
		return nil
	}
	return ob.backend.UpdateOrder(order)
}

// restore puts back an order changed by applyVolume.
func (ob *OrderBook) restore(order Order, removed bool) {
	if removed {
		_ = ob.backend.StoreOrder(order)
		return
	}
	_ = ob.backend.UpdateOrder(order)
}

// GetOrder returns the live order with ref. A store failure reads as absent.
func (ob *OrderBook) GetOrder(ref uint64) (Order, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	o, ok, err := ob.backend.GetOrder(ref)
	return o, ok && err == nil
}

// GetTrade returns the trade aggregate for matchNumber. A store failure reads
// as absent.
func (ob *OrderBook) GetTrade(matchNumber uint64) (Trade, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	t, ok, err := ob.backend.GetTrade(matchNumber)
	return t, ok && err == nil
}

// OrdersByLocate returns the live orders for one instrument ordered by reference.
func (ob *OrderBook) OrdersByLocate(locate uint16) []Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.backend.OrdersByLocate(locate)
}

// TradesByLocate returns the trade aggregates for one instrument ordered by
// match number.
func (ob *OrderBook) TradesByLocate(locate uint16) []Trade {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.backend.TradesByLocate(locate)
}

// TradePrices returns the price of every trade aggregate for locate, ordered
// by match number.
func (ob *OrderBook) TradePrices(locate uint16) []itch.Price {
	trades := ob.TradesByLocate(locate)
	prices := make([]itch.Price, len(trades))
	for i, t := range trades {
		prices[i] = t.Price
	}
	return prices
}

// Snapshot is a consistent copy of the book and the ledger.
type Snapshot struct {
	Orders []Order
	Trades []Trade
}

// Snapshot copies both stores under one read lock.
func (ob *OrderBook) Snapshot() Snapshot {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return Snapshot{
		Orders: ob.backend.Orders(),
		Trades: ob.backend.Trades(),
	}
}

// OrderCount returns the number of live orders
func (ob *OrderBook) OrderCount() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.backend.OrderCount()
}

// TradeCount returns the number of distinct match numbers in the ledger
func (ob *OrderBook) TradeCount() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.backend.TradeCount()
}
