package core

import "sort"

// mockBackend implements the OrderBookBackend interface for testing
type mockBackend struct {
	orders map[uint64]Order
	trades map[uint64]Trade
	// storeErr, when set, fails StoreOrder for that reference.
	storeErr map[uint64]error
	// getErr, deleteErr and tradeErr fail every call of the matching method.
	getErr    error
	deleteErr error
	tradeErr  error
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		orders:   make(map[uint64]Order),
		trades:   make(map[uint64]Trade),
		storeErr: make(map[uint64]error),
	}
}

func (m *mockBackend) GetOrder(ref uint64) (Order, bool, error) {
	if m.getErr != nil {
		return Order{}, false, m.getErr
	}
	o, ok := m.orders[ref]
	return o, ok, nil
}

func (m *mockBackend) StoreOrder(order Order) error {
	if err := m.storeErr[order.Ref]; err != nil {
		return err
	}
	m.orders[order.Ref] = order
	return nil
}

func (m *mockBackend) UpdateOrder(order Order) error {
	m.orders[order.Ref] = order
	return nil
}

func (m *mockBackend) DeleteOrder(ref uint64) (bool, error) {
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	_, ok := m.orders[ref]
	delete(m.orders, ref)
	return ok, nil
}

func (m *mockBackend) GetTrade(matchNumber uint64) (Trade, bool, error) {
	t, ok := m.trades[matchNumber]
	return t, ok, nil
}

func (m *mockBackend) StoreTrade(trade Trade) error {
	if m.tradeErr != nil {
		return m.tradeErr
	}
	m.trades[trade.MatchNumber] = trade
	return nil
}

func (m *mockBackend) OrdersByLocate(locate uint16) []Order {
	var out []Order
	for _, o := range m.Orders() {
		if o.StockLocate == locate {
			out = append(out, o)
		}
	}
	return out
}

func (m *mockBackend) TradesByLocate(locate uint16) []Trade {
	var out []Trade
	for _, t := range m.Trades() {
		if t.StockLocate == locate {
			out = append(out, t)
		}
	}
	return out
}

func (m *mockBackend) Orders() []Order {
	out := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out
}

func (m *mockBackend) Trades() []Trade {
	out := make([]Trade, 0, len(m.trades))
	for _, t := range m.trades {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out
}

func (m *mockBackend) OrderCount() int { return len(m.orders) }

func (m *mockBackend) TradeCount() int { return len(m.trades) }
