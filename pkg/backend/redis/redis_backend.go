package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/erain9/itchbook/pkg/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions represents configuration options for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

var defaultOptions = &RedisOptions{
	Addr:     "localhost:6379",
	Password: "",
	DB:       0,
}

// SetDefaultRedisOptions sets the default options for Redis connections
func SetDefaultRedisOptions(options *RedisOptions) {
	defaultOptions = options
}

// GetRedisClient creates a new Redis client using the default options
func GetRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     defaultOptions.Addr,
		Password: defaultOptions.Password,
		DB:       defaultOptions.DB,
	})
}

// RedisBackend implements core.OrderBookBackend on Redis. Orders and trades
// live in two hashes of JSON values; each instrument has a sorted set of
// order references and one of match numbers, scored by key.
type RedisBackend struct {
	sync.RWMutex
	client    *redis.Client
	ctx       context.Context
	prefix    string
	ordersKey string
	tradesKey string
	logger    *zap.Logger
}

// NewRedisBackend creates a new instance of RedisBackend
func NewRedisBackend(client *redis.Client, prefix string, logger *zap.Logger) *RedisBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBackend{
		client:    client,
		ctx:       context.Background(),
		prefix:    prefix,
		ordersKey: fmt.Sprintf("%s:orders", prefix),
		tradesKey: fmt.Sprintf("%s:trades", prefix),
		logger:    logger,
	}
}

// WithContext returns a shallow copy of the backend that uses ctx for every
// Redis call.
func (b *RedisBackend) WithContext(ctx context.Context) *RedisBackend {
	return &RedisBackend{
		client:    b.client,
		ctx:       ctx,
		prefix:    b.prefix,
		ordersKey: b.ordersKey,
		tradesKey: b.tradesKey,
		logger:    b.logger,
	}
}

// Reset removes every order, trade and per-instrument index stored under the
// backend's prefix, so a replay starts from an empty book.
func (b *RedisBackend) Reset() error {
	b.Lock()
	defer b.Unlock()

	keys := []string{b.ordersKey, b.tradesKey}
	iter := b.client.Scan(b.ctx, 0, b.prefix+":locate:*", 1000).Iterator()
	for iter.Next(b.ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", b.prefix, err)
	}
	for start := 0; start < len(keys); start += 1000 {
		end := min(start+1000, len(keys))
		if err := b.client.Del(b.ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("failed to reset %s: %w", b.prefix, err)
		}
	}
	b.logger.Info("reset order book", zap.String("prefix", b.prefix), zap.Int("keys", len(keys)))
	return nil
}

// GetOrder retrieves an order by reference
func (b *RedisBackend) GetOrder(ref uint64) (core.Order, bool, error) {
	b.RLock()
	defer b.RUnlock()
	return b.getOrder(ref)
}

func (b *RedisBackend) getOrder(ref uint64) (core.Order, bool, error) {
	data, err := b.client.HGet(b.ctx, b.ordersKey, key(ref)).Bytes()
	if err == redis.Nil {
		return core.Order{}, false, nil
	}
	if err != nil {
		return core.Order{}, false, fmt.Errorf("failed to get order %d: %w", ref, err)
	}

	var order core.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return core.Order{}, false, fmt.Errorf("failed to unmarshal order %d: %w", ref, err)
	}
	return order, true, nil
}

// StoreOrder stores a new order
func (b *RedisBackend) StoreOrder(order core.Order) error {
	b.Lock()
	defer b.Unlock()

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	created, err := b.client.HSetNX(b.ctx, b.ordersKey, key(order.Ref), data).Result()
	if err != nil {
		return fmt.Errorf("failed to store order %d: %w", order.Ref, err)
	}
	if !created {
		return fmt.Errorf("order %d already stored", order.Ref)
	}
	return b.client.ZAdd(b.ctx, b.locateOrdersKey(order.StockLocate), redis.Z{
		Score:  float64(order.Ref),
		Member: key(order.Ref),
	}).Err()
}

// UpdateOrder overwrites an existing order
func (b *RedisBackend) UpdateOrder(order core.Order) error {
	b.Lock()
	defer b.Unlock()

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return b.client.HSet(b.ctx, b.ordersKey, key(order.Ref), data).Err()
}

// DeleteOrder removes an order and reports whether it existed
func (b *RedisBackend) DeleteOrder(ref uint64) (bool, error) {
	b.Lock()
	defer b.Unlock()

	order, ok, err := b.getOrder(ref)
	if err != nil || !ok {
		return false, err
	}

	pipe := b.client.TxPipeline()
	pipe.HDel(b.ctx, b.ordersKey, key(ref))
	pipe.ZRem(b.ctx, b.locateOrdersKey(order.StockLocate), key(ref))
	if _, err := pipe.Exec(b.ctx); err != nil {
		b.logger.Error("failed to delete order", zap.Uint64("ref", ref), zap.Error(err))
		return false, fmt.Errorf("failed to delete order %d: %w", ref, err)
	}
	return true, nil
}

// GetTrade retrieves a trade aggregate by match number
func (b *RedisBackend) GetTrade(matchNumber uint64) (core.Trade, bool, error) {
	b.RLock()
	defer b.RUnlock()

	data, err := b.client.HGet(b.ctx, b.tradesKey, key(matchNumber)).Bytes()
	if err == redis.Nil {
		return core.Trade{}, false, nil
	}
	if err != nil {
		return core.Trade{}, false, fmt.Errorf("failed to get trade %d: %w", matchNumber, err)
	}

	var trade core.Trade
	if err := json.Unmarshal(data, &trade); err != nil {
		return core.Trade{}, false, fmt.Errorf("failed to unmarshal trade %d: %w", matchNumber, err)
	}
	return trade, true, nil
}

// StoreTrade inserts or replaces a trade aggregate
func (b *RedisBackend) StoreTrade(trade core.Trade) error {
	b.Lock()
	defer b.Unlock()

	data, err := json.Marshal(trade)
	if err != nil {
		return err
	}

	pipe := b.client.TxPipeline()
	pipe.HSet(b.ctx, b.tradesKey, key(trade.MatchNumber), data)
	pipe.ZAdd(b.ctx, b.locateTradesKey(trade.StockLocate), redis.Z{
		Score:  float64(trade.MatchNumber),
		Member: key(trade.MatchNumber),
	})
	if _, err := pipe.Exec(b.ctx); err != nil {
		b.logger.Error("failed to store trade", zap.Uint64("match", trade.MatchNumber), zap.Error(err))
		return fmt.Errorf("failed to store trade %d: %w", trade.MatchNumber, err)
	}
	return nil
}

// OrdersByLocate returns the orders for one instrument ordered by reference
func (b *RedisBackend) OrdersByLocate(locate uint16) []core.Order {
	b.RLock()
	defer b.RUnlock()

	var out []core.Order
	b.loadIndexed(b.locateOrdersKey(locate), b.ordersKey, func(data []byte) error {
		var o core.Order
		if err := json.Unmarshal(data, &o); err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	sortOrders(out)
	return out
}

// TradesByLocate returns the aggregates for one instrument ordered by match number
func (b *RedisBackend) TradesByLocate(locate uint16) []core.Trade {
	b.RLock()
	defer b.RUnlock()

	var out []core.Trade
	b.loadIndexed(b.locateTradesKey(locate), b.tradesKey, func(data []byte) error {
		var t core.Trade
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	sortTrades(out)
	return out
}

// loadIndexed reads the members of a sorted-set index in score order and
// passes the matching hash values to fn.
func (b *RedisBackend) loadIndexed(indexKey, hashKey string, fn func([]byte) error) {
	members, err := b.client.ZRange(b.ctx, indexKey, 0, -1).Result()
	if err != nil {
		b.logger.Error("failed to read index", zap.String("key", indexKey), zap.Error(err))
		return
	}
	if len(members) == 0 {
		return
	}
	values, err := b.client.HMGet(b.ctx, hashKey, members...).Result()
	if err != nil {
		b.logger.Error("failed to read values", zap.String("key", hashKey), zap.Error(err))
		return
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if err := fn([]byte(s)); err != nil {
			b.logger.Error("failed to unmarshal value", zap.String("member", members[i]), zap.Error(err))
		}
	}
}

// Orders returns every live order ordered by reference
func (b *RedisBackend) Orders() []core.Order {
	b.RLock()
	defer b.RUnlock()

	all, err := b.client.HGetAll(b.ctx, b.ordersKey).Result()
	if err != nil {
		b.logger.Error("failed to read orders", zap.Error(err))
		return nil
	}
	out := make([]core.Order, 0, len(all))
	for k, v := range all {
		var o core.Order
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			b.logger.Error("failed to unmarshal order", zap.String("ref", k), zap.Error(err))
			continue
		}
		out = append(out, o)
	}
	sortOrders(out)
	return out
}

// Trades returns every aggregate ordered by match number
func (b *RedisBackend) Trades() []core.Trade {
	b.RLock()
	defer b.RUnlock()

	all, err := b.client.HGetAll(b.ctx, b.tradesKey).Result()
	if err != nil {
		b.logger.Error("failed to read trades", zap.Error(err))
		return nil
	}
	out := make([]core.Trade, 0, len(all))
	for k, v := range all {
		var t core.Trade
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			b.logger.Error("failed to unmarshal trade", zap.String("match", k), zap.Error(err))
			continue
		}
		out = append(out, t)
	}
	sortTrades(out)
	return out
}

// OrderCount returns the number of live orders
func (b *RedisBackend) OrderCount() int {
	n, err := b.client.HLen(b.ctx, b.ordersKey).Result()
	if err != nil {
		b.logger.Error("failed to count orders", zap.Error(err))
	}
	return int(n)
}

// TradeCount returns the number of aggregates
func (b *RedisBackend) TradeCount() int {
	n, err := b.client.HLen(b.ctx, b.tradesKey).Result()
	if err != nil {
		b.logger.Error("failed to count trades", zap.Error(err))
	}
	return int(n)
}

// Close closes the Redis client
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) locateOrdersKey(locate uint16) string {
	return fmt.Sprintf("%s:locate:%d:orders", b.prefix, locate)
}

func (b *RedisBackend) locateTradesKey(locate uint16) string {
	return fmt.Sprintf("%s:locate:%d:trades", b.prefix, locate)
}

func key(n uint64) string {
	return strconv.FormatUint(n, 10)
}

var _ core.OrderBookBackend = (*RedisBackend)(nil)
