package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/erain9/itchbook/config"
	"github.com/erain9/itchbook/pkg/core"
	"github.com/erain9/itchbook/pkg/feed"
	"github.com/erain9/itchbook/pkg/itch"
	"github.com/erain9/itchbook/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFeed(t *testing.T, b *testutil.FeedBuilder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.itch")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o600))
	return path
}

func testConfig(feedPath, outDir string) *config.Config {
	cfg := config.Default()
	cfg.Feed.Path = feedPath
	cfg.Report.OutputDir = outDir
	cfg.Report.Watch = []string{"AAPL"}
	cfg.Report.SnapshotEvery = 2
	cfg.Log.Format = "json"
	return cfg
}

func TestRun_ReplaysAndExports(t *testing.T) {
	b := testutil.NewFeedBuilder(t).
		SystemEvent('O').
		StockDirectory(1, "AAPL").
		Participant(1, "GSCO", "AAPL").
		AddOrder(1, 100, itch.Buy, 200, "AAPL", 1500000).
		AddOrder(1, 101, itch.Sell, 100, "AAPL", 1501000).
		Execute(1, 101, 40, 9001).
		Replace(1, 100, 102, 150, 1499000)
	b.Raw('Z', []byte{0})

	outDir := filepath.Join(t.TempDir(), "reports")
	cfg := testConfig(writeFeed(t, b), outDir)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out))
	assert.True(t, strings.HasPrefix(out.String(), "Parsed: 7 messages\n"))

	data, err := os.ReadFile(filepath.Join(outDir, "AAPL_orders.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Side,Order Ref. Number,Price,Volume\nS,101,1501000,60\nB,102,1499000,150\n", string(data))

	data, err = os.ReadFile(filepath.Join(outDir, "AAPL_executions.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1501000\n", string(data))

	data, err = os.ReadFile(filepath.Join(outDir, "participants.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "GSCO,AAPL")

	data, err = os.ReadFile(filepath.Join(outDir, "AAPL_book.csv"))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "Side,Order Ref. Number,Price,Volume"))
}

func TestRun_HaltsOnViolation(t *testing.T) {
	b := testutil.NewFeedBuilder(t).
		StockDirectory(1, "AAPL").
		AddOrder(1, 100, itch.Buy, 10, "AAPL", 100).
		Delete(1, 555)

	cfg := testConfig(writeFeed(t, b), t.TempDir())
	var out bytes.Buffer
	err := run(context.Background(), cfg, &out)
	require.Error(t, err)

	var fe *feed.FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, uint64(3), fe.Index)
	assert.Equal(t, feed.KindViolation, fe.Kind)
	assert.ErrorIs(t, err, core.ErrNonexistentOrder)
	assert.True(t, strings.HasPrefix(out.String(), "Parsed: "))
}

func TestRun_SkipPolicy(t *testing.T) {
	b := testutil.NewFeedBuilder(t).
		StockDirectory(1, "AAPL").
		AddOrder(1, 100, itch.Buy, 10, "AAPL", 100).
		Delete(1, 555).
		Delete(1, 100)

	cfg := testConfig(writeFeed(t, b), t.TempDir())
	cfg.Feed.Policy = "skip"
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out))
	assert.Contains(t, out.String(), "Violations")
}

func TestRun_MissingFeed(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "nope.itch"), t.TempDir())
	err := run(context.Background(), cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open feed")
}

func TestRun_RedisBackendReplayTwice(t *testing.T) {
	testutil.SkipIfRedisUnavailable(t, testutil.DefaultRedisAddr)

	b := testutil.NewFeedBuilder(t).
		StockDirectory(1, "AAPL").
		AddOrder(1, 100, itch.Buy, 10, "AAPL", 100).
		Execute(1, 100, 4, 1)

	cfg := testConfig(writeFeed(t, b), t.TempDir())
	cfg.Feed.Backend = config.BackendRedis
	cfg.Redis.Addr = testutil.DefaultRedisAddr
	cfg.Redis.Prefix = "itchreplay-test:" + time.Now().Format("150405.000000000")

	for i := 0; i < 2; i++ {
		var out bytes.Buffer
		require.NoError(t, run(context.Background(), cfg, &out), "run %d", i+1)
		assert.True(t, strings.HasPrefix(out.String(), "Parsed: 3 messages\n"))
	}
}
