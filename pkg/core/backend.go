package core

// OrderBookBackend defines the keyed stores behind an OrderBook. It is not
// required to be safe for concurrent use; OrderBook serializes access.
//
// A missing key is reported through the bool result; the error result is
// reserved for failures of the store itself.
type OrderBookBackend interface {
	// Order operations
	GetOrder(ref uint64) (Order, bool, error)
	StoreOrder(order Order) error
	UpdateOrder(order Order) error
	DeleteOrder(ref uint64) (bool, error)

	// Trade operations
	GetTrade(matchNumber uint64) (Trade, bool, error)
	StoreTrade(trade Trade) error

	// Per-instrument views, ordered by key
	OrdersByLocate(locate uint16) []Order
	TradesByLocate(locate uint16) []Trade

	// Full views, ordered by key
	Orders() []Order
	Trades() []Trade
	OrderCount() int
	TradeCount() int
}
