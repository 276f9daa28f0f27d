package itch

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side of a resting order as carried on the wire.
type Side byte

// Order sides
const (
	Buy  Side = 'B'
	Sell Side = 'S'
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether s is one of the two wire sides.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Symbol is the 8-byte, space-padded instrument symbol.
type Symbol [symbolLen]byte

// SymbolFromString pads s with spaces (or truncates it) to the wire width.
func SymbolFromString(s string) Symbol {
	var sym Symbol
	for i := range sym {
		sym[i] = ' '
	}
	copy(sym[:], s)
	return sym
}

// String returns the symbol without trailing padding.
func (s Symbol) String() string {
	return strings.TrimRight(string(s[:]), " \x00")
}

// MPID is a 4-character market participant identifier.
type MPID [mpidLen]byte

// DefaultAttribution is used for add-order messages that carry no attribution.
var DefaultAttribution = MPID{'N', 'S', 'D', 'Q'}

// MPIDFromString pads s with spaces (or truncates it) to the wire width.
func MPIDFromString(s string) MPID {
	m := MPID{' ', ' ', ' ', ' '}
	copy(m[:], s)
	return m
}

// String returns the identifier without trailing padding.
func (m MPID) String() string {
	return strings.TrimRight(string(m[:]), " \x00")
}

// Price is an unscaled protocol price with four implied decimal places.
type Price uint32

// PriceScale is the number of implied decimal places in a Price.
const PriceScale = 4

// Decimal returns the scaled price.
func (p Price) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -PriceScale)
}

// String renders the price with its four decimal places.
func (p Price) String() string {
	return p.Decimal().StringFixed(PriceScale)
}

// FormatTimestamp renders nanoseconds since midnight as HH:MM:SS.mmm.uuu.nnn.
func FormatTimestamp(ns uint64) string {
	d := time.Duration(ns)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	d -= ms * time.Millisecond
	us := d / time.Microsecond
	d -= us * time.Microsecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d.%03d.%03d", h, m, s, ms, us, int64(d))
}
