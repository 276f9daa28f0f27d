package itch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUintFields(t *testing.T) {
	assert.Equal(t, uint16(0x0102), Uint16([]byte{0x01, 0x02}))
	assert.Equal(t, uint32(0x01020304), Uint32([]byte{0x01, 0x02, 0x03, 0x04}))
	assert.Equal(t, uint64(0x0102030405060708), Uint64([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
}

func TestTimestampReadsSixBytes(t *testing.T) {
	// trailing bytes must not leak into the value
	b := []byte{0x00, 0x00, 0x0B, 0xAD, 0xF0, 0x0D, 0xFF, 0xFF}
	assert.Equal(t, uint64(0x0BADF00D), Timestamp(b))

	max := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	assert.Equal(t, uint64(1<<48-1), Timestamp(max))
}

func TestPutTimestamp(t *testing.T) {
	b := make([]byte, 6)
	ns := uint64(34_200_123_456_789) // 09:30:00.123456789
	PutTimestamp(b, ns)
	assert.Equal(t, ns, Timestamp(b))
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "09:30:00.123.456.789", FormatTimestamp(34_200_123_456_789))
	assert.Equal(t, "00:00:00.000.000.000", FormatTimestamp(0))
	assert.Equal(t, "16:00:01.000.000.001", FormatTimestamp(57_601_000_000_001))
}

func TestPriceString(t *testing.T) {
	assert.Equal(t, "150.0000", Price(1500000).String())
	assert.Equal(t, "0.0100", Price(100).String())
	assert.True(t, Price(1234567).Decimal().Equal(Price(1234567).Decimal()))
	assert.Equal(t, "123.4567", Price(1234567).Decimal().String())
}

func TestSymbol(t *testing.T) {
	s := SymbolFromString("AAPL")
	assert.Equal(t, Symbol{'A', 'A', 'P', 'L', ' ', ' ', ' ', ' '}, s)
	assert.Equal(t, "AAPL", s.String())
	assert.Equal(t, "ABCDEFGH", SymbolFromString("ABCDEFGHIJ").String())
}

func TestSide(t *testing.T) {
	assert.Equal(t, "BUY", Buy.String())
	assert.Equal(t, "SELL", Sell.String())
	assert.Equal(t, "UNKNOWN", Side('Z').String())
	assert.False(t, Side('Z').Valid())
}
