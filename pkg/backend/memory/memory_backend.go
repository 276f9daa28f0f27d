package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/erain9/itchbook/pkg/core"
)

// MemoryBackend keeps live orders and trade aggregates in maps, with a
// per-instrument index over each so instrument queries do not scan the
// whole book.
type MemoryBackend struct {
	sync.RWMutex
	orders         map[uint64]core.Order
	trades         map[uint64]core.Trade
	ordersByLocate map[uint16]map[uint64]struct{}
	tradesByLocate map[uint16]map[uint64]struct{}
}

// NewMemoryBackend creates a new in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		orders:         make(map[uint64]core.Order),
		trades:         make(map[uint64]core.Trade),
		ordersByLocate: make(map[uint16]map[uint64]struct{}),
		tradesByLocate: make(map[uint16]map[uint64]struct{}),
	}
}

// GetOrder returns the order with ref
func (b *MemoryBackend) GetOrder(ref uint64) (core.Order, bool, error) {
	b.RLock()
	defer b.RUnlock()
	o, ok := b.orders[ref]
	return o, ok, nil
}

// StoreOrder inserts a new order
func (b *MemoryBackend) StoreOrder(order core.Order) error {
	b.Lock()
	defer b.Unlock()
	if _, exists := b.orders[order.Ref]; exists {
		return fmt.Errorf("order %d already stored", order.Ref)
	}
	b.orders[order.Ref] = order
	index(b.ordersByLocate, order.StockLocate, order.Ref)
	return nil
}

// UpdateOrder overwrites an existing order. The stock locate must not change.
func (b *MemoryBackend) UpdateOrder(order core.Order) error {
	b.Lock()
	defer b.Unlock()
	old, exists := b.orders[order.Ref]
	if !exists {
		return fmt.Errorf("order %d not stored", order.Ref)
	}
	if old.StockLocate != order.StockLocate {
		unindex(b.ordersByLocate, old.StockLocate, order.Ref)
		index(b.ordersByLocate, order.StockLocate, order.Ref)
	}
	b.orders[order.Ref] = order
	return nil
}

// DeleteOrder removes the order with ref and reports whether it existed
func (b *MemoryBackend) DeleteOrder(ref uint64) (bool, error) {
	b.Lock()
	defer b.Unlock()
	order, exists := b.orders[ref]
	if !exists {
		return false, nil
	}
	delete(b.orders, ref)
	unindex(b.ordersByLocate, order.StockLocate, ref)
	return true, nil
}

// GetTrade returns the aggregate for matchNumber
func (b *MemoryBackend) GetTrade(matchNumber uint64) (core.Trade, bool, error) {
	b.RLock()
	defer b.RUnlock()
	t, ok := b.trades[matchNumber]
	return t, ok, nil
}

// StoreTrade inserts or replaces the aggregate for trade.MatchNumber
func (b *MemoryBackend) StoreTrade(trade core.Trade) error {
	b.Lock()
	defer b.Unlock()
	if old, exists := b.trades[trade.MatchNumber]; exists && old.StockLocate != trade.StockLocate {
		unindex(b.tradesByLocate, old.StockLocate, trade.MatchNumber)
	}
	b.trades[trade.MatchNumber] = trade
	index(b.tradesByLocate, trade.StockLocate, trade.MatchNumber)
	return nil
}

// OrdersByLocate returns the orders for locate ordered by reference
func (b *MemoryBackend) OrdersByLocate(locate uint16) []core.Order {
	b.RLock()
	defer b.RUnlock()
	refs := sortedKeys(b.ordersByLocate[locate])
	out := make([]core.Order, len(refs))
	for i, ref := range refs {
		out[i] = b.orders[ref]
	}
	return out
}

// TradesByLocate returns the aggregates for locate ordered by match number
func (b *MemoryBackend) TradesByLocate(locate uint16) []core.Trade {
	b.RLock()
	defer b.RUnlock()
	matches := sortedKeys(b.tradesByLocate[locate])
	out := make([]core.Trade, len(matches))
	for i, m := range matches {
		out[i] = b.trades[m]
	}
	return out
}

// Orders returns every live order ordered by reference
func (b *MemoryBackend) Orders() []core.Order {
	b.RLock()
	defer b.RUnlock()
	out := make([]core.Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out
}

// Trades returns every aggregate ordered by match number
func (b *MemoryBackend) Trades() []core.Trade {
	b.RLock()
	defer b.RUnlock()
	out := make([]core.Trade, 0, len(b.trades))
	for _, t := range b.trades {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out
}

// OrderCount returns the number of live orders
func (b *MemoryBackend) OrderCount() int {
	b.RLock()
	defer b.RUnlock()
	return len(b.orders)
}

// TradeCount returns the number of aggregates
func (b *MemoryBackend) TradeCount() int {
	b.RLock()
	defer b.RUnlock()
	return len(b.trades)
}

// Locates returns every stock locate with at least one live order, ascending.
func (b *MemoryBackend) Locates() []uint16 {
	b.RLock()
	defer b.RUnlock()
	out := make([]uint16, 0, len(b.ordersByLocate))
	for l := range b.ordersByLocate {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func index(idx map[uint16]map[uint64]struct{}, locate uint16, key uint64) {
	set, ok := idx[locate]
	if !ok {
		set = make(map[uint64]struct{})
		idx[locate] = set
	}
	set[key] = struct{}{}
}

func unindex(idx map[uint16]map[uint64]struct{}, locate uint16, key uint64) {
	set, ok := idx[locate]
	if !ok {
		return
	}
	delete(set, key)
	if len(set) == 0 {
		delete(idx, locate)
	}
}

func sortedKeys(set map[uint64]struct{}) []uint64 {
	keys := make([]uint64, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

var _ core.OrderBookBackend = (*MemoryBackend)(nil)
