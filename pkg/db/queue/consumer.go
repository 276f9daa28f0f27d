package queue

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/erain9/itchbook/pkg/messaging"
)

// QueueTradeConsumer reads trade tape events from a single partition.
type QueueTradeConsumer struct {
	consumer sarama.Consumer
	topic    string
}

// NewQueueTradeConsumer connects a consumer to the given brokers.
func NewQueueTradeConsumer(brokers []string, topic string) (*QueueTradeConsumer, error) {
	if len(brokers) == 0 {
		brokers = []string{defaultBroker}
	}
	if topic == "" {
		topic = defaultTopic
	}

	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true

	consumer, err := newConsumer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}
	return &QueueTradeConsumer{consumer: consumer, topic: topic}, nil
}

// ConsumeTrades calls handler for each trade on partition 0 until ctx is done,
// the partition closes, or handler returns an error.
func (c *QueueTradeConsumer) ConsumeTrades(ctx context.Context, offset int64, handler func(*messaging.TradeMessage) error) error {
	pc, err := c.consumer.ConsumePartition(c.topic, 0, offset)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer pc.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-pc.Messages():
			if !ok {
				return nil
			}
			trade, err := UnmarshalTrade(msg.Value)
			if err != nil {
				return fmt.Errorf("failed to decode trade at offset %d: %w", msg.Offset, err)
			}
			if err := handler(trade); err != nil {
				return err
			}
		case cerr, ok := <-pc.Errors():
			if !ok {
				return nil
			}
			return fmt.Errorf("consumer error: %w", cerr.Err)
		}
	}
}

// Close closes the consumer
func (c *QueueTradeConsumer) Close() error {
	return c.consumer.Close()
}
