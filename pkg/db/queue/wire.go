package queue

import (
	"fmt"

	"github.com/erain9/itchbook/pkg/messaging"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the Trade record.
const (
	fieldMatchNumber protowire.Number = iota + 1
	fieldStockLocate
	fieldSymbol
	fieldOrderRef
	fieldPrice
	fieldShares
	fieldTotalVolume
	fieldCrossType
	fieldTimestamp
)

// MarshalTrade encodes a trade message in protobuf wire format.
func MarshalTrade(t *messaging.TradeMessage) []byte {
	b := make([]byte, 0, 64)
	b = appendVarint(b, fieldMatchNumber, t.MatchNumber)
	b = appendVarint(b, fieldStockLocate, uint64(t.StockLocate))
	b = appendString(b, fieldSymbol, t.Symbol)
	b = appendVarint(b, fieldOrderRef, t.OrderRef)
	b = appendString(b, fieldPrice, t.Price)
	b = appendVarint(b, fieldShares, t.Shares)
	b = appendVarint(b, fieldTotalVolume, t.TotalVolume)
	b = appendString(b, fieldCrossType, t.CrossType)
	b = appendVarint(b, fieldTimestamp, t.Timestamp)
	return b
}

// UnmarshalTrade decodes a trade message. Unknown fields are skipped.
func UnmarshalTrade(b []byte) (*messaging.TradeMessage, error) {
	t := &messaging.TradeMessage{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldMatchNumber:
				t.MatchNumber = v
			case fieldStockLocate:
				t.StockLocate = uint16(v)
			case fieldOrderRef:
				t.OrderRef = v
			case fieldShares:
				t.Shares = v
			case fieldTotalVolume:
				t.TotalVolume = v
			case fieldTimestamp:
				t.Timestamp = v
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldSymbol:
				t.Symbol = v
			case fieldPrice:
				t.Price = v
			case fieldCrossType:
				t.CrossType = v
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return t, nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}
