package itch

import (
	"bytes"
	"io"
	"testing"
)

func BenchmarkDecodeAddOrder(b *testing.B) {
	msg := &AddOrderMessage{
		Header:      Header{StockLocate: 1, Timestamp: 34200000000000},
		OrderRef:    42,
		Side:        Buy,
		Shares:      100,
		Stock:       SymbolFromString("AAPL"),
		Price:       1500000,
		Attribution: DefaultAttribution,
	}
	frame, err := AppendFrame(nil, msg)
	if err != nil {
		b.Fatal(err)
	}
	tag, payload := frame[2], frame[3:]

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(tag, payload); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReadFrames(b *testing.B) {
	var feed []byte
	for i := 0; i < 1000; i++ {
		var err error
		feed, err = AppendFrame(feed, &OrderExecutedMessage{OrderRef: uint64(i), ExecutedShares: 1, MatchNumber: uint64(i)})
		if err != nil {
			b.Fatal(err)
		}
	}

	b.SetBytes(int64(len(feed)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := NewReader(bytes.NewReader(feed))
		for {
			if _, err := r.ReadFrame(); err != nil {
				if err != io.EOF {
					b.Fatal(err)
				}
				break
			}
		}
	}
}
