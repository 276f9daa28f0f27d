package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/erain9/itchbook/pkg/core"
	"github.com/erain9/itchbook/pkg/itch"
	"github.com/erain9/itchbook/pkg/reference"
)

// CSV headers
var (
	OrderBookHeader      = []string{"Order Reference Number", "Side", "Stock Locate", "Price", "Volume"}
	InstrumentBookHeader = []string{"Side", "Order Ref. Number", "Price", "Volume"}
	InstrumentHeader     = []string{
		"Stock Locate", "Stock", "Market Category", "Financial Status Indicator", "Round Lot Size",
		"Round Lots Only", "Issue Classification", "Issue Sub-Type", "Authenticity",
		"Short Sale Threshold Indicator", "IPO Flag", "LULD Reference Price Tier", "ETP Flag",
		"ETP Leverage Factor", "Inverse Indicator", "Trading State", "Reason", "Reg SHO Action",
	}
	ParticipantHeader = []string{"MPID", "Stock", "Primary Market Maker", "Market Maker Mode", "Market Participant State"}
)

// WriteOrderBook writes every live order, one row per order.
func WriteOrderBook(w io.Writer, orders []core.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OrderBookHeader); err != nil {
		return err
	}
	for _, o := range orders {
		row := []string{
			u64(o.Ref),
			side(o.Side),
			strconv.FormatUint(uint64(o.StockLocate), 10),
			price(o.Price),
			strconv.FormatUint(uint64(o.Volume), 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteInstrumentBook writes the live orders of one instrument.
func WriteInstrumentBook(w io.Writer, orders []core.Order) error {
	cw := csv.NewWriter(w)
	if err := writeBookBlock(cw, orders); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func writeBookBlock(cw *csv.Writer, orders []core.Order) error {
	if err := cw.Write(InstrumentBookHeader); err != nil {
		return err
	}
	for _, o := range orders {
		row := []string{side(o.Side), u64(o.Ref), price(o.Price), strconv.FormatUint(uint64(o.Volume), 10)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteExecutionPrices writes one price per line with no header.
func WriteExecutionPrices(w io.Writer, prices []itch.Price) error {
	cw := csv.NewWriter(w)
	for _, p := range prices {
		if err := cw.Write([]string{price(p)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteInstruments writes the instrument table.
func WriteInstruments(w io.Writer, instruments []reference.Instrument) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(InstrumentHeader); err != nil {
		return err
	}
	for _, inst := range instruments {
		row := []string{
			strconv.FormatUint(uint64(inst.Locate), 10),
			inst.Symbol.String(),
			char(inst.MarketCategory),
			char(inst.FinancialStatusIndicator),
			strconv.FormatUint(uint64(inst.RoundLotSize), 10),
			yesNo(inst.RoundLotsOnly),
			char(inst.IssueClassification),
			chars(inst.IssueSubType[:]),
			char(inst.Authenticity),
			char(inst.ShortSaleThreshold),
			char(inst.IPOFlag),
			char(inst.LULDReferencePriceTier),
			char(inst.ETPFlag),
			strconv.FormatUint(uint64(inst.ETPLeverageFactor), 10),
			yesNo(inst.InverseIndicator),
			char(inst.TradingState),
			chars(inst.Reason[:]),
			char(inst.RegSHOAction),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteParticipants writes the participant table.
func WriteParticipants(w io.Writer, participants []reference.Participant) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ParticipantHeader); err != nil {
		return err
	}
	for _, p := range participants {
		row := []string{
			p.MPID.String(),
			p.Symbol.String(),
			yesNo(p.PrimaryMarketMaker),
			char(p.MarketMakerMode),
			char(p.MarketParticipantState),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// price is written unscaled, as carried on the wire.
func price(p itch.Price) string {
	return strconv.FormatUint(uint64(p), 10)
}

func side(s itch.Side) string {
	return string(rune(s))
}

func char(b byte) string {
	if b == 0 {
		return ""
	}
	return string(rune(b))
}

func chars(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c != 0 && c != ' ' {
			out = append(out, c)
		}
	}
	return string(out)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
