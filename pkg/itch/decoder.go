package itch

import "fmt"

// Payload lengths, excluding the tag byte.
const (
	SystemEventLen               = 11
	StockDirectoryLen            = 38
	StockTradingActionLen        = 24
	RegSHORestrictionLen         = 19
	MarketParticipantPositionLen = 25
	AddOrderLen                  = 35
	AddOrderAttributedLen        = 39
	OrderDeleteLen               = 18
	OrderCancelLen               = 22
	ReplaceOrderLen              = 34
	OrderExecutedLen             = 30
	OrderExecutedWithPriceLen    = 35
	TradeNonCrossLen             = 43
	TradeCrossLen                = 39
)

// Decode turns one frame payload into a typed message. payload must be exactly
// the declared frame length minus the tag byte. Fields are copied, so payload
// may be reused once Decode returns.
func Decode(tag byte, payload []byte) (Message, error) {
	switch TypeOf(tag) {
	case TypeSystemEvent:
		return decodeSystemEvent(tag, payload)
	case TypeStockDirectory:
		return decodeStockDirectory(tag, payload)
	case TypeStockTradingAction:
		return decodeStockTradingAction(tag, payload)
	case TypeRegSHORestriction:
		return decodeRegSHORestriction(tag, payload)
	case TypeMarketParticipantPosition:
		return decodeMarketParticipantPosition(tag, payload)
	case TypeAddOrder:
		return decodeAddOrder(tag, payload)
	case TypeDeleteCancel:
		return decodeDeleteCancel(tag, payload)
	case TypeReplaceOrder:
		return decodeReplaceOrder(tag, payload)
	case TypeOrderExecuted:
		return decodeOrderExecuted(tag, payload)
	case TypeOrderExecutedWithPrice:
		return decodeOrderExecutedWithPrice(tag, payload)
	case TypeTradeNonCross:
		return decodeTradeNonCross(tag, payload)
	case TypeTradeCross:
		return decodeTradeCross(tag, payload)
	default:
		return nil, fmt.Errorf("%w: %s (tag %q)", ErrNotDecodable, TypeOf(tag), tag)
	}
}

func checkLen(tag byte, payload []byte, want ...int) error {
	for _, w := range want {
		if len(payload) == w {
			return nil
		}
	}
	return &FramingError{Tag: tag, Got: len(payload), Want: want}
}

func decodeSystemEvent(tag byte, b []byte) (*SystemEventMessage, error) {
	if err := checkLen(tag, b, SystemEventLen); err != nil {
		return nil, err
	}
	return &SystemEventMessage{
		Header:    parseHeader(b),
		EventCode: b[10],
	}, nil
}

func decodeStockDirectory(tag byte, b []byte) (*StockDirectoryMessage, error) {
	if err := checkLen(tag, b, StockDirectoryLen); err != nil {
		return nil, err
	}
	return &StockDirectoryMessage{
		Header:                   parseHeader(b),
		Stock:                    parseSymbol(b[10:]),
		MarketCategory:           b[18],
		FinancialStatusIndicator: b[19],
		RoundLotSize:             Uint32(b[20:24]),
		RoundLotsOnly:            b[24] == 'Y',
		IssueClassification:      b[25],
		IssueSubType:             [2]byte{b[26], b[27]},
		Authenticity:             b[28],
		ShortSaleThreshold:       b[29],
		IPOFlag:                  b[30],
		LULDReferencePriceTier:   b[31],
		ETPFlag:                  b[32],
		ETPLeverageFactor:        Uint32(b[33:37]),
		InverseIndicator:         b[37] == 'Y',
	}, nil
}

func decodeStockTradingAction(tag byte, b []byte) (*StockTradingActionMessage, error) {
	if err := checkLen(tag, b, StockTradingActionLen); err != nil {
		return nil, err
	}
	// b[19] is reserved
	return &StockTradingActionMessage{
		Header:       parseHeader(b),
		Stock:        parseSymbol(b[10:]),
		TradingState: b[18],
		Reason:       [4]byte{b[20], b[21], b[22], b[23]},
	}, nil
}

func decodeRegSHORestriction(tag byte, b []byte) (*RegSHORestrictionMessage, error) {
	if err := checkLen(tag, b, RegSHORestrictionLen); err != nil {
		return nil, err
	}
	return &RegSHORestrictionMessage{
		Header:       parseHeader(b),
		Stock:        parseSymbol(b[10:]),
		RegSHOAction: b[18],
	}, nil
}

func decodeMarketParticipantPosition(tag byte, b []byte) (*MarketParticipantPositionMessage, error) {
	if err := checkLen(tag, b, MarketParticipantPositionLen); err != nil {
		return nil, err
	}
	return &MarketParticipantPositionMessage{
		Header:                 parseHeader(b),
		MPID:                   parseMPID(b[10:]),
		Stock:                  parseSymbol(b[14:]),
		PrimaryMarketMaker:     b[22] == 'Y',
		MarketMakerMode:        b[23],
		MarketParticipantState: b[24],
	}, nil
}

func decodeAddOrder(tag byte, b []byte) (*AddOrderMessage, error) {
	if err := checkLen(tag, b, AddOrderLen, AddOrderAttributedLen); err != nil {
		return nil, err
	}
	msg := &AddOrderMessage{
		Header:      parseHeader(b),
		OrderRef:    Uint64(b[10:18]),
		Side:        Side(b[18]),
		Shares:      Uint32(b[19:23]),
		Stock:       parseSymbol(b[23:]),
		Price:       Price(Uint32(b[31:35])),
		Attribution: DefaultAttribution,
	}
	if len(b) == AddOrderAttributedLen {
		msg.Attribution = parseMPID(b[35:])
		msg.Attributed = true
	}
	return msg, nil
}

func decodeDeleteCancel(tag byte, b []byte) (*DeleteCancelMessage, error) {
	if err := checkLen(tag, b, OrderDeleteLen, OrderCancelLen); err != nil {
		return nil, err
	}
	msg := &DeleteCancelMessage{
		Header:   parseHeader(b),
		OrderRef: Uint64(b[10:18]),
		Mode:     FullDelete,
	}
	if len(b) == OrderCancelLen {
		msg.Mode = PartialCancel
		msg.CancelledShares = Uint32(b[18:22])
	}
	return msg, nil
}

func decodeReplaceOrder(tag byte, b []byte) (*ReplaceOrderMessage, error) {
	if err := checkLen(tag, b, ReplaceOrderLen); err != nil {
		return nil, err
	}
	return &ReplaceOrderMessage{
		Header:           parseHeader(b),
		OriginalOrderRef: Uint64(b[10:18]),
		NewOrderRef:      Uint64(b[18:26]),
		Shares:           Uint32(b[26:30]),
		Price:            Price(Uint32(b[30:34])),
	}, nil
}

func decodeOrderExecuted(tag byte, b []byte) (*OrderExecutedMessage, error) {
	if err := checkLen(tag, b, OrderExecutedLen); err != nil {
		return nil, err
	}
	return &OrderExecutedMessage{
		Header:         parseHeader(b),
		OrderRef:       Uint64(b[10:18]),
		ExecutedShares: Uint32(b[18:22]),
		MatchNumber:    Uint64(b[22:30]),
	}, nil
}

func decodeOrderExecutedWithPrice(tag byte, b []byte) (*OrderExecutedWithPriceMessage, error) {
	if err := checkLen(tag, b, OrderExecutedWithPriceLen); err != nil {
		return nil, err
	}
	return &OrderExecutedWithPriceMessage{
		Header:         parseHeader(b),
		OrderRef:       Uint64(b[10:18]),
		ExecutedShares: Uint32(b[18:22]),
		MatchNumber:    Uint64(b[22:30]),
		Printable:      b[30] == 'Y',
		ExecutionPrice: Price(Uint32(b[31:35])),
	}, nil
}

func decodeTradeNonCross(tag byte, b []byte) (*TradeNonCrossMessage, error) {
	if err := checkLen(tag, b, TradeNonCrossLen); err != nil {
		return nil, err
	}
	return &TradeNonCrossMessage{
		Header:      parseHeader(b),
		OrderRef:    Uint64(b[10:18]),
		Side:        Side(b[18]),
		Shares:      Uint32(b[19:23]),
		Stock:       parseSymbol(b[23:]),
		Price:       Price(Uint32(b[31:35])),
		MatchNumber: Uint64(b[35:43]),
	}, nil
}

func decodeTradeCross(tag byte, b []byte) (*TradeCrossMessage, error) {
	if err := checkLen(tag, b, TradeCrossLen); err != nil {
		return nil, err
	}
	return &TradeCrossMessage{
		Header:      parseHeader(b),
		Shares:      Uint64(b[10:18]),
		Stock:       parseSymbol(b[18:]),
		CrossPrice:  Price(Uint32(b[26:30])),
		MatchNumber: Uint64(b[30:38]),
		CrossType:   b[38],
	}, nil
}
