package messaging

import "sync"

// MockTradeSender records every trade it is given.
type MockTradeSender struct {
	mu     sync.Mutex
	trades []*TradeMessage
	closed bool
	// Err, when set, is returned from SendTrade.
	Err error
}

// NewMockTradeSender creates a new MockTradeSender.
func NewMockTradeSender() *MockTradeSender {
	return &MockTradeSender{}
}

// SendTrade records the trade.
func (m *MockTradeSender) SendTrade(trade *TradeMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.trades = append(m.trades, trade)
	return nil
}

// Trades returns a copy of the recorded trades.
func (m *MockTradeSender) Trades() []*TradeMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*TradeMessage, len(m.trades))
	copy(out, m.trades)
	return out
}

// Closed reports whether Close was called.
func (m *MockTradeSender) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the sender closed.
func (m *MockTradeSender) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Ensure MockTradeSender implements TradeSender
var _ TradeSender = (*MockTradeSender)(nil)
