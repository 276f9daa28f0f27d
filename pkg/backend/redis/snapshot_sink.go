package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erain9/itchbook/pkg/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BookSnapshot is one exported view of an instrument's book.
type BookSnapshot struct {
	Symbol string       `json:"symbol"`
	Frame  uint64       `json:"frame"`
	Orders []core.Order `json:"orders"`
}

// SnapshotSink exports book snapshots and run summaries to Redis. Snapshots
// for a symbol are appended to a list capped at keep entries.
type SnapshotSink struct {
	client *redis.Client
	prefix string
	keep   int64
	logger *zap.Logger
}

// NewSnapshotSink creates a sink writing under prefix. keep <= 0 keeps every
// snapshot.
func NewSnapshotSink(client *redis.Client, prefix string, keep int64, logger *zap.Logger) *SnapshotSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotSink{client: client, prefix: prefix, keep: keep, logger: logger}
}

// WriteSnapshot appends a snapshot of orders for symbol taken after frame.
func (s *SnapshotSink) WriteSnapshot(ctx context.Context, symbol string, frame uint64, orders []core.Order) error {
	data, err := json.Marshal(BookSnapshot{Symbol: symbol, Frame: frame, Orders: orders})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := s.snapshotKey(symbol)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.keep > 0 {
		pipe.LTrim(ctx, key, -s.keep, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("failed to write snapshot", zap.String("symbol", symbol), zap.Uint64("frame", frame), zap.Error(err))
		return err
	}
	s.logger.Debug("snapshot written", zap.String("symbol", symbol), zap.Uint64("frame", frame), zap.Int("orders", len(orders)))
	return nil
}

// Snapshots returns the stored snapshots for symbol, oldest first.
func (s *SnapshotSink) Snapshots(ctx context.Context, symbol string) ([]BookSnapshot, error) {
	raw, err := s.client.LRange(ctx, s.snapshotKey(symbol), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]BookSnapshot, 0, len(raw))
	for _, r := range raw {
		var snap BookSnapshot
		if err := json.Unmarshal([]byte(r), &snap); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// WriteSummary stores run counters in a hash.
func (s *SnapshotSink) WriteSummary(ctx context.Context, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, s.prefix+":summary", fields).Err(); err != nil {
		s.logger.Error("failed to write summary", zap.Error(err))
		return err
	}
	return nil
}

// Summary reads back the run counters.
func (s *SnapshotSink) Summary(ctx context.Context) (map[string]string, error) {
	return s.client.HGetAll(ctx, s.prefix+":summary").Result()
}

// Close closes the Redis client
func (s *SnapshotSink) Close() error {
	return s.client.Close()
}

func (s *SnapshotSink) snapshotKey(symbol string) string {
	return fmt.Sprintf("%s:snapshot:%s", s.prefix, symbol)
}
