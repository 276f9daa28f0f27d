package core

import (
	"encoding/json"

	"github.com/erain9/itchbook/pkg/itch"
	"github.com/erain9/itchbook/pkg/messaging"
	"github.com/shopspring/decimal"
)

// NoCrossType marks trade aggregates built from continuous executions.
const NoCrossType byte = ' '

// Trade is the aggregate of every execution report sharing one match number.
// StockLocate and Price are fixed by the first report.
type Trade struct {
	MatchNumber uint64
	StockLocate uint16
	Price       itch.Price
	Volume      uint64
	CrossType   byte
}

// IsCross reports whether the trade came from a cross.
func (t Trade) IsCross() bool {
	return t.CrossType != NoCrossType && t.CrossType != 0
}

// MarshalJSON implements Marshaler interface
func (t Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MatchNumber uint64 `json:"matchNumber"`
		StockLocate uint16 `json:"stockLocate"`
		Price       string `json:"price"`
		Volume      uint64 `json:"volume"`
		CrossType   string `json:"crossType"`
	}{
		MatchNumber: t.MatchNumber,
		StockLocate: t.StockLocate,
		Price:       t.Price.String(),
		Volume:      t.Volume,
		CrossType:   string(t.CrossType),
	})
}

// UnmarshalJSON implements Unmarshaler interface
func (t *Trade) UnmarshalJSON(data []byte) error {
	var v struct {
		MatchNumber uint64 `json:"matchNumber"`
		StockLocate uint16 `json:"stockLocate"`
		Price       string `json:"price"`
		Volume      uint64 `json:"volume"`
		CrossType   string `json:"crossType"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	price, err := parsePrice(v.Price)
	if err != nil {
		return err
	}
	t.MatchNumber = v.MatchNumber
	t.StockLocate = v.StockLocate
	t.Price = price
	t.Volume = v.Volume
	t.CrossType = NoCrossType
	if len(v.CrossType) > 0 {
		t.CrossType = v.CrossType[0]
	}
	return nil
}

// Execution is one contribution to a trade aggregate.
type Execution struct {
	MatchNumber uint64
	StockLocate uint16
	Price       itch.Price
	Shares      uint64
	// Total is the aggregate volume after this contribution.
	Total     uint64
	CrossType byte
}

// Done describes the effect of one applied event
type Done struct {
	Type      itch.MessageType
	Timestamp uint64
	// OrderRef is the order the event acted on; zero for trade reports.
	OrderRef uint64
	// NewOrderRef is set by replace.
	NewOrderRef uint64
	// Remaining is the order's volume after the event.
	Remaining uint32
	// Removed is true when the event took the order out of the book.
	Removed bool
	// Execution is set when the event contributed to the ledger.
	Execution *Execution
	// Ignored is true for events that change nothing, such as non-printable executions.
	Ignored bool
}

func newDone(t itch.MessageType, ref uint64) *Done {
	return &Done{Type: t, OrderRef: ref}
}

// ToMessagingTrade converts the execution in Done to a trade tape message.
// It returns nil when the event did not touch the ledger.
func (d *Done) ToMessagingTrade(symbol string) *messaging.TradeMessage {
	if d == nil || d.Execution == nil {
		return nil
	}
	e := d.Execution
	return &messaging.TradeMessage{
		MatchNumber: e.MatchNumber,
		StockLocate: e.StockLocate,
		Symbol:      symbol,
		OrderRef:    d.OrderRef,
		Price:       e.Price.String(),
		Shares:      e.Shares,
		TotalVolume: e.Total,
		CrossType:   string(e.CrossType),
		Timestamp:   d.Timestamp,
	}
}

func parsePrice(s string) (itch.Price, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return itch.Price(d.Shift(itch.PriceScale).IntPart()), nil
}
