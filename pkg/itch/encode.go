package itch

import (
	"encoding/binary"
	"fmt"
)

// AppendFrame appends msg to dst in wire form: length prefix, tag and payload.
// Add-order and delete/cancel pick the short or long form from Attributed and Mode.
func AppendFrame(dst []byte, msg Message) ([]byte, error) {
	tag, payload, err := encodePayload(msg)
	if err != nil {
		return dst, err
	}
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(payload)+1))
	dst = append(dst, tag)
	return append(dst, payload...), nil
}

// AppendRawFrame appends a frame with an arbitrary tag and payload.
func AppendRawFrame(dst []byte, tag byte, payload []byte) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(payload)+1))
	dst = append(dst, tag)
	return append(dst, payload...)
}

func putHeader(b []byte, h Header) {
	binary.BigEndian.PutUint16(b[0:2], h.StockLocate)
	binary.BigEndian.PutUint16(b[2:4], h.TrackingNumber)
	PutTimestamp(b[4:10], h.Timestamp)
}

func yn(v bool) byte {
	if v {
		return 'Y'
	}
	return 'N'
}

func encodePayload(msg Message) (byte, []byte, error) {
	switch m := msg.(type) {
	case *SystemEventMessage:
		b := make([]byte, SystemEventLen)
		putHeader(b, m.Header)
		b[10] = m.EventCode
		return 'S', b, nil
	case *StockDirectoryMessage:
		b := make([]byte, StockDirectoryLen)
		putHeader(b, m.Header)
		copy(b[10:18], m.Stock[:])
		b[18] = m.MarketCategory
		b[19] = m.FinancialStatusIndicator
		binary.BigEndian.PutUint32(b[20:24], m.RoundLotSize)
		b[24] = yn(m.RoundLotsOnly)
		b[25] = m.IssueClassification
		copy(b[26:28], m.IssueSubType[:])
		b[28] = m.Authenticity
		b[29] = m.ShortSaleThreshold
		b[30] = m.IPOFlag
		b[31] = m.LULDReferencePriceTier
		b[32] = m.ETPFlag
		binary.BigEndian.PutUint32(b[33:37], m.ETPLeverageFactor)
		b[37] = yn(m.InverseIndicator)
		return 'R', b, nil
	case *StockTradingActionMessage:
		b := make([]byte, StockTradingActionLen)
		putHeader(b, m.Header)
		copy(b[10:18], m.Stock[:])
		b[18] = m.TradingState
		b[19] = ' '
		copy(b[20:24], m.Reason[:])
		return 'H', b, nil
	case *RegSHORestrictionMessage:
		b := make([]byte, RegSHORestrictionLen)
		putHeader(b, m.Header)
		copy(b[10:18], m.Stock[:])
		b[18] = m.RegSHOAction
		return 'Y', b, nil
	case *MarketParticipantPositionMessage:
		b := make([]byte, MarketParticipantPositionLen)
		putHeader(b, m.Header)
		copy(b[10:14], m.MPID[:])
		copy(b[14:22], m.Stock[:])
		b[22] = yn(m.PrimaryMarketMaker)
		b[23] = m.MarketMakerMode
		b[24] = m.MarketParticipantState
		return 'L', b, nil
	case *AddOrderMessage:
		tag, n := byte('A'), AddOrderLen
		if m.Attributed {
			tag, n = 'F', AddOrderAttributedLen
		}
		b := make([]byte, n)
		putHeader(b, m.Header)
		binary.BigEndian.PutUint64(b[10:18], m.OrderRef)
		b[18] = byte(m.Side)
		binary.BigEndian.PutUint32(b[19:23], m.Shares)
		copy(b[23:31], m.Stock[:])
		binary.BigEndian.PutUint32(b[31:35], uint32(m.Price))
		if m.Attributed {
			copy(b[35:39], m.Attribution[:])
		}
		return tag, b, nil
	case *DeleteCancelMessage:
		if m.Mode == PartialCancel {
			b := make([]byte, OrderCancelLen)
			putHeader(b, m.Header)
			binary.BigEndian.PutUint64(b[10:18], m.OrderRef)
			binary.BigEndian.PutUint32(b[18:22], m.CancelledShares)
			return 'X', b, nil
		}
		b := make([]byte, OrderDeleteLen)
		putHeader(b, m.Header)
		binary.BigEndian.PutUint64(b[10:18], m.OrderRef)
		return 'D', b, nil
	case *ReplaceOrderMessage:
		b := make([]byte, ReplaceOrderLen)
		putHeader(b, m.Header)
		binary.BigEndian.PutUint64(b[10:18], m.OriginalOrderRef)
		binary.BigEndian.PutUint64(b[18:26], m.NewOrderRef)
		binary.BigEndian.PutUint32(b[26:30], m.Shares)
		binary.BigEndian.PutUint32(b[30:34], uint32(m.Price))
		return 'U', b, nil
	case *OrderExecutedMessage:
		b := make([]byte, OrderExecutedLen)
		putHeader(b, m.Header)
		binary.BigEndian.PutUint64(b[10:18], m.OrderRef)
		binary.BigEndian.PutUint32(b[18:22], m.ExecutedShares)
		binary.BigEndian.PutUint64(b[22:30], m.MatchNumber)
		return 'E', b, nil
	case *OrderExecutedWithPriceMessage:
		b := make([]byte, OrderExecutedWithPriceLen)
		putHeader(b, m.Header)
		binary.BigEndian.PutUint64(b[10:18], m.OrderRef)
		binary.BigEndian.PutUint32(b[18:22], m.ExecutedShares)
		binary.BigEndian.PutUint64(b[22:30], m.MatchNumber)
		b[30] = yn(m.Printable)
		binary.BigEndian.PutUint32(b[31:35], uint32(m.ExecutionPrice))
		return 'C', b, nil
	case *TradeNonCrossMessage:
		b := make([]byte, TradeNonCrossLen)
		putHeader(b, m.Header)
		binary.BigEndian.PutUint64(b[10:18], m.OrderRef)
		b[18] = byte(m.Side)
		binary.BigEndian.PutUint32(b[19:23], m.Shares)
		copy(b[23:31], m.Stock[:])
		binary.BigEndian.PutUint32(b[31:35], uint32(m.Price))
		binary.BigEndian.PutUint64(b[35:43], m.MatchNumber)
		return 'P', b, nil
	case *TradeCrossMessage:
		b := make([]byte, TradeCrossLen)
		putHeader(b, m.Header)
		binary.BigEndian.PutUint64(b[10:18], m.Shares)
		copy(b[18:26], m.Stock[:])
		binary.BigEndian.PutUint32(b[26:30], uint32(m.CrossPrice))
		binary.BigEndian.PutUint64(b[30:38], m.MatchNumber)
		b[38] = m.CrossType
		return 'Q', b, nil
	default:
		return 0, nil, fmt.Errorf("itch: cannot encode %T", msg)
	}
}
