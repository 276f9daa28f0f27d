package messaging

// TradeSender defines an interface for publishing trade tape events.
// It keeps the engine and the feed dispatcher free of any broker client.
type TradeSender interface {
	SendTrade(trade *TradeMessage) error
	Close() error
}

// TradeMessage is one execution contribution as published on the trade tape.
type TradeMessage struct {
	MatchNumber uint64 `json:"matchNumber"`
	StockLocate uint16 `json:"stockLocate"`
	Symbol      string `json:"symbol,omitempty"`
	OrderRef    uint64 `json:"orderRef,omitempty"`
	Price       string `json:"price"`
	Shares      uint64 `json:"shares"`
	// TotalVolume is the aggregate volume for the match number after this contribution.
	TotalVolume uint64 `json:"totalVolume"`
	CrossType   string `json:"crossType,omitempty"`
	Timestamp   uint64 `json:"timestamp"`
}
