package itch

// MessageType identifies one variant of the closed message set.
type MessageType int

// Message types
const (
	TypeUnknown MessageType = iota
	TypeSystemEvent
	TypeStockDirectory
	TypeStockTradingAction
	TypeRegSHORestriction
	TypeMarketParticipantPosition
	TypeAddOrder
	TypeDeleteCancel
	TypeReplaceOrder
	TypeOrderExecuted
	TypeOrderExecutedWithPrice
	TypeTradeNonCross
	TypeTradeCross
	TypeMWCBDecline
	TypeIPOQuotingPeriod
	TypeNOII
	TypeLULDAuctionCollar
)

var typeNames = map[MessageType]string{
	TypeUnknown:                   "UNKNOWN",
	TypeSystemEvent:               "SYSTEM_EVENT",
	TypeStockDirectory:            "STOCK_DIRECTORY",
	TypeStockTradingAction:        "STOCK_TRADING_ACTION",
	TypeRegSHORestriction:         "REG_SHO_RESTRICTION",
	TypeMarketParticipantPosition: "MARKET_PARTICIPANT_POSITION",
	TypeAddOrder:                  "ADD_ORDER",
	TypeDeleteCancel:              "DELETE_CANCEL",
	TypeReplaceOrder:              "REPLACE_ORDER",
	TypeOrderExecuted:             "ORDER_EXECUTED",
	TypeOrderExecutedWithPrice:    "ORDER_EXECUTED_WITH_PRICE",
	TypeTradeNonCross:             "TRADE_NON_CROSS",
	TypeTradeCross:                "TRADE_CROSS",
	TypeMWCBDecline:               "MWCB_DECLINE",
	TypeIPOQuotingPeriod:          "IPO_QUOTING_PERIOD",
	TypeNOII:                      "NOII",
	TypeLULDAuctionCollar:         "LULD_AUCTION_COLLAR",
}

// String returns the message type name
func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return typeNames[TypeUnknown]
}

// TypeOf maps a wire tag to its message type.
func TypeOf(tag byte) MessageType {
	switch tag {
	case 'S':
		return TypeSystemEvent
	case 'R':
		return TypeStockDirectory
	case 'H':
		return TypeStockTradingAction
	case 'Y':
		return TypeRegSHORestriction
	case 'L':
		return TypeMarketParticipantPosition
	case 'A', 'F':
		return TypeAddOrder
	case 'D', 'X':
		return TypeDeleteCancel
	case 'U':
		return TypeReplaceOrder
	case 'E':
		return TypeOrderExecuted
	case 'C':
		return TypeOrderExecutedWithPrice
	case 'P':
		return TypeTradeNonCross
	case 'Q':
		return TypeTradeCross
	case 'V':
		return TypeMWCBDecline
	case 'K':
		return TypeIPOQuotingPeriod
	case 'I':
		return TypeNOII
	case 'J':
		return TypeLULDAuctionCollar
	default:
		return TypeUnknown
	}
}

// Class says what the dispatcher does with a frame of a given type.
type Class int

// Frame classes
const (
	// ClassUnknown marks an unrecognized tag; the feed ends there.
	ClassUnknown Class = iota
	// ClassDecode marks types that are decoded and routed.
	ClassDecode
	// ClassSkip marks administrative types whose payload is consumed and discarded.
	ClassSkip
)

// Classify returns the dispatch class of a wire tag.
func Classify(tag byte) Class {
	switch TypeOf(tag) {
	case TypeUnknown:
		return ClassUnknown
	case TypeMWCBDecline, TypeIPOQuotingPeriod, TypeNOII, TypeLULDAuctionCollar:
		return ClassSkip
	default:
		return ClassDecode
	}
}

// Header is embedded in every message.
type Header struct {
	StockLocate    uint16
	TrackingNumber uint16
	// Timestamp is nanoseconds since midnight.
	Timestamp uint64
}

// MessageHeader returns the header; promoted into every message type.
func (h Header) MessageHeader() Header {
	return h
}

// Message is implemented by every decoded record.
type Message interface {
	Type() MessageType
	MessageHeader() Header
}

// SystemEventMessage signals session-level events.
type SystemEventMessage struct {
	Header
	EventCode byte
}

// StockDirectoryMessage registers an instrument for the session.
type StockDirectoryMessage struct {
	Header
	Stock                    Symbol
	MarketCategory           byte
	FinancialStatusIndicator byte
	RoundLotSize             uint32
	RoundLotsOnly            bool
	IssueClassification      byte
	IssueSubType             [2]byte
	Authenticity             byte
	ShortSaleThreshold       byte
	IPOFlag                  byte
	LULDReferencePriceTier   byte
	ETPFlag                  byte
	ETPLeverageFactor        uint32
	InverseIndicator         bool
}

// StockTradingActionMessage updates an instrument's trading state.
type StockTradingActionMessage struct {
	Header
	Stock        Symbol
	TradingState byte
	Reason       [4]byte
}

// RegSHORestrictionMessage updates an instrument's short sale restriction.
type RegSHORestrictionMessage struct {
	Header
	Stock        Symbol
	RegSHOAction byte
}

// MarketParticipantPositionMessage reports a participant's status in one instrument.
type MarketParticipantPositionMessage struct {
	Header
	MPID                   MPID
	Stock                  Symbol
	PrimaryMarketMaker     bool
	MarketMakerMode        byte
	MarketParticipantState byte
}

// AddOrderMessage places a new resting order.
type AddOrderMessage struct {
	Header
	OrderRef    uint64
	Side        Side
	Shares      uint32
	Stock       Symbol
	Price       Price
	Attribution MPID
	// Attributed is true when the attribution was present on the wire.
	Attributed bool
}

// CancelMode distinguishes the two delete/cancel wire forms.
type CancelMode int

// Cancel modes
const (
	// FullDelete removes all remaining volume.
	FullDelete CancelMode = iota
	// PartialCancel removes CancelledShares from the remaining volume.
	PartialCancel
)

// String returns cancel mode as string
func (m CancelMode) String() string {
	if m == PartialCancel {
		return "CANCEL"
	}
	return "DELETE"
}

// DeleteCancelMessage removes some or all of an order's remaining volume.
type DeleteCancelMessage struct {
	Header
	OrderRef        uint64
	Mode            CancelMode
	CancelledShares uint32
}

// ReplaceOrderMessage retires one order reference and creates another.
type ReplaceOrderMessage struct {
	Header
	OriginalOrderRef uint64
	NewOrderRef      uint64
	Shares           uint32
	Price            Price
}

// OrderExecutedMessage fills a resting order at its own price.
type OrderExecutedMessage struct {
	Header
	OrderRef       uint64
	ExecutedShares uint32
	MatchNumber    uint64
}

// OrderExecutedWithPriceMessage fills a resting order at an explicit price.
type OrderExecutedWithPriceMessage struct {
	Header
	OrderRef       uint64
	ExecutedShares uint32
	MatchNumber    uint64
	Printable      bool
	ExecutionPrice Price
}

// TradeNonCrossMessage reports an execution against a non-displayed order.
type TradeNonCrossMessage struct {
	Header
	OrderRef    uint64
	Side        Side
	Shares      uint32
	Stock       Symbol
	Price       Price
	MatchNumber uint64
}

// TradeCrossMessage reports the bulk execution of a cross.
type TradeCrossMessage struct {
	Header
	Shares      uint64
	Stock       Symbol
	CrossPrice  Price
	MatchNumber uint64
	CrossType   byte
}

// Type implementations

func (*SystemEventMessage) Type() MessageType               { return TypeSystemEvent }
func (*StockDirectoryMessage) Type() MessageType            { return TypeStockDirectory }
func (*StockTradingActionMessage) Type() MessageType        { return TypeStockTradingAction }
func (*RegSHORestrictionMessage) Type() MessageType         { return TypeRegSHORestriction }
func (*MarketParticipantPositionMessage) Type() MessageType { return TypeMarketParticipantPosition }
func (*AddOrderMessage) Type() MessageType                  { return TypeAddOrder }
func (*DeleteCancelMessage) Type() MessageType              { return TypeDeleteCancel }
func (*ReplaceOrderMessage) Type() MessageType              { return TypeReplaceOrder }
func (*OrderExecutedMessage) Type() MessageType             { return TypeOrderExecuted }
func (*OrderExecutedWithPriceMessage) Type() MessageType    { return TypeOrderExecutedWithPrice }
func (*TradeNonCrossMessage) Type() MessageType             { return TypeTradeNonCross }
func (*TradeCrossMessage) Type() MessageType                { return TypeTradeCross }
