package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erain9/itchbook/pkg/messaging"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// TradeConsumer tails the JSON trade tape.
type TradeConsumer struct {
	reader messageReader
	logger zerolog.Logger
}

// NewTradeConsumer creates a consumer in the given consumer group.
func NewTradeConsumer(brokerAddr, topic, groupID string, logger zerolog.Logger) *TradeConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{brokerAddr},
		Topic:   topic,
		GroupID: groupID,
	})
	return &TradeConsumer{reader: reader, logger: logger}
}

// Consume calls handler for every trade until ctx is cancelled or handler
// fails. Messages that do not decode are logged and skipped.
func (c *TradeConsumer) Consume(ctx context.Context, handler func(*messaging.TradeMessage) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		var trade messaging.TradeMessage
		if err := json.Unmarshal(msg.Value, &trade); err != nil {
			c.logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping undecodable trade message")
			continue
		}
		if err := handler(&trade); err != nil {
			return err
		}
	}
}

// Close closes the reader
func (c *TradeConsumer) Close() error {
	return c.reader.Close()
}
