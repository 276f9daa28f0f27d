package itch

import "encoding/binary"

// Field widths on the wire.
const (
	headerLen    = 10
	timestampLen = 6
	symbolLen    = 8
	mpidLen      = 4
)

// Uint16 reads a big-endian uint16 from the first 2 bytes of b.
func Uint16(b []byte) uint16 {
	return binary.BigEndian.Uint16(b)
}

// Uint32 reads a big-endian uint32 from the first 4 bytes of b.
func Uint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// Uint64 reads a big-endian uint64 from the first 8 bytes of b.
func Uint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// Timestamp reads the 48-bit big-endian nanoseconds-since-midnight field.
// Exactly 6 bytes are consumed.
func Timestamp(b []byte) uint64 {
	_ = b[5]
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
}

// PutTimestamp writes ns as a 48-bit big-endian value into the first 6 bytes of b.
func PutTimestamp(b []byte, ns uint64) {
	_ = b[5]
	b[0] = byte(ns >> 40)
	b[1] = byte(ns >> 32)
	b[2] = byte(ns >> 24)
	b[3] = byte(ns >> 16)
	b[4] = byte(ns >> 8)
	b[5] = byte(ns)
}

func parseHeader(b []byte) Header {
	return Header{
		StockLocate:    Uint16(b[0:2]),
		TrackingNumber: Uint16(b[2:4]),
		Timestamp:      Timestamp(b[4:10]),
	}
}

func parseSymbol(b []byte) Symbol {
	var s Symbol
	copy(s[:], b[:symbolLen])
	return s
}

func parseMPID(b []byte) MPID {
	var m MPID
	copy(m[:], b[:mpidLen])
	return m
}
