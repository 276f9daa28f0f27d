package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/erain9/itchbook/pkg/backend/memory"
	"github.com/erain9/itchbook/pkg/core"
	"github.com/erain9/itchbook/pkg/feed"
	"github.com/erain9/itchbook/pkg/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ReplaysCleanly(t *testing.T) {
	for _, seed := range []int64{1, 7, 42} {
		var buf bytes.Buffer
		g := newGenerator(seed, []string{"AAPL", "MSFT"})
		frames, err := g.Generate(context.Background(), &buf, 5000, nil, true)
		require.NoError(t, err)

		book := core.NewOrderBook(memory.NewMemoryBackend())
		instruments := reference.NewInstrumentStore()
		d := feed.NewDispatcher(book, instruments, reference.NewParticipantRegistry())
		res, err := d.Run(context.Background(), &buf)
		require.NoError(t, err, "seed %d", seed)

		assert.Equal(t, uint64(frames), res.Frames)
		assert.Equal(t, feed.StopUnknownType, res.Reason)
		assert.Equal(t, len(g.live), book.OrderCount())
		assert.Equal(t, 2, instruments.Len())

		stats := d.Stats()
		assert.Zero(t, stats.Violations)
		assert.Zero(t, stats.LookupErrors)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	_, err := newGenerator(3, []string{"AAPL"}).Generate(context.Background(), &a, 200, nil, false)
	require.NoError(t, err)
	_, err = newGenerator(3, []string{"AAPL"}).Generate(context.Background(), &b, 200, nil, false)
	require.NoError(t, err)
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestGenerate_LiveOrdersMatchBook(t *testing.T) {
	var buf bytes.Buffer
	g := newGenerator(11, []string{"TSLA"})
	_, err := g.Generate(context.Background(), &buf, 1000, nil, false)
	require.NoError(t, err)

	book := core.NewOrderBook(memory.NewMemoryBackend())
	d := feed.NewDispatcher(book, reference.NewInstrumentStore(), reference.NewParticipantRegistry())
	res, err := d.Run(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, feed.StopEndOfStream, res.Reason)

	for _, o := range g.live {
		got, ok := book.GetOrder(o.ref)
		require.True(t, ok, "order %d", o.ref)
		assert.Equal(t, o.shares, got.Volume)
		assert.Equal(t, o.side, got.Side)
		assert.Equal(t, o.price, got.Price)
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newGenerator(1, []string{"AAPL"}).Generate(ctx, &bytes.Buffer{}, 10, nil, false)
	assert.ErrorIs(t, err, context.Canceled)
}
