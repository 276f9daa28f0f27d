package core

import (
	"encoding/json"

	"github.com/erain9/itchbook/pkg/itch"
)

// Order is a live resting order. Volume is always positive while the order is
// in the book.
type Order struct {
	Ref         uint64
	Side        itch.Side
	StockLocate uint16
	Price       itch.Price
	Volume      uint32
}

// MarshalJSON implements custom JSON marshaling for Order
func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Ref         uint64 `json:"ref"`
		Side        string `json:"side"`
		StockLocate uint16 `json:"stockLocate"`
		Price       string `json:"price"`
		Volume      uint32 `json:"volume"`
	}{
		Ref:         o.Ref,
		Side:        string(o.Side),
		StockLocate: o.StockLocate,
		Price:       o.Price.String(),
		Volume:      o.Volume,
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Order
func (o *Order) UnmarshalJSON(data []byte) error {
	var v struct {
		Ref         uint64 `json:"ref"`
		Side        string `json:"side"`
		StockLocate uint16 `json:"stockLocate"`
		Price       string `json:"price"`
		Volume      uint32 `json:"volume"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	price, err := parsePrice(v.Price)
	if err != nil {
		return err
	}
	o.Ref = v.Ref
	if len(v.Side) > 0 {
		o.Side = itch.Side(v.Side[0])
	}
	o.StockLocate = v.StockLocate
	o.Price = price
	o.Volume = v.Volume
	return nil
}
