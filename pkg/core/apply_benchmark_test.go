package core

import (
	"context"
	"testing"

	"github.com/erain9/itchbook/pkg/itch"
)

// BenchmarkAddExecute measures an add followed by a full execution.
func BenchmarkAddExecute(b *testing.B) {
	book := NewOrderBook(newMockBackend())
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		ref := uint64(i) + 1
		_, _ = book.AddOrder(ref, itch.Buy, 1, 100, 100)
		_, _ = book.ExecuteOrder(ref, 100, ref)
	}
}

// BenchmarkReplaceChain measures a long chain of replaces on one order.
func BenchmarkReplaceChain(b *testing.B) {
	book := NewOrderBook(newMockBackend())
	_, _ = book.AddOrder(0, itch.Sell, 1, 100, 100)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = book.ReplaceOrder(uint64(i), uint64(i)+1, 100, itch.Price(100+i%10))
	}
}

// BenchmarkProcess measures dispatch through Process, including span setup.
func BenchmarkProcess(b *testing.B) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()
	add := &itch.AddOrderMessage{Side: itch.Buy, Shares: 100, Price: 100}
	del := &itch.DeleteCancelMessage{Mode: itch.FullDelete}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		add.OrderRef = uint64(i)
		del.OrderRef = uint64(i)
		_, _ = book.Process(ctx, add)
		_, _ = book.Process(ctx, del)
	}
}
