package testutil

import (
	"io"
	"testing"

	"github.com/erain9/itchbook/pkg/itch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedBuilder_Decodes(t *testing.T) {
	b := NewFeedBuilder(t).
		SystemEvent('O').
		StockDirectory(1, "AAPL").
		AddOrder(1, 10, itch.Buy, 100, "AAPL", 1500000).
		AddOrderMPID(1, 11, itch.Sell, 100, "AAPL", 1510000, "GSCO").
		Cancel(1, 10, 10).
		Execute(1, 10, 90, 1).
		Delete(1, 11)

	r := itch.NewReader(b.Reader())
	var types []itch.MessageType
	for {
		f, err := r.ReadFrame()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		msg, err := itch.Decode(f.Tag, f.Payload)
		require.NoError(t, err)
		types = append(types, msg.Type())
	}

	assert.Equal(t, b.Frames(), len(types))
	assert.Equal(t, []itch.MessageType{
		itch.TypeSystemEvent, itch.TypeStockDirectory, itch.TypeAddOrder, itch.TypeAddOrder,
		itch.TypeDeleteCancel, itch.TypeOrderExecuted, itch.TypeDeleteCancel,
	}, types)
}

func TestFeedBuilder_Raw(t *testing.T) {
	b := NewFeedBuilder(t).Raw('V', make([]byte, 34)).Append(0x00)
	assert.Equal(t, 1, b.Frames())
	assert.Len(t, b.Bytes(), 2+1+34+1)
}
