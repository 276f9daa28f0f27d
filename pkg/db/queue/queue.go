package queue

import (
	"fmt"

	"github.com/IBM/sarama"
	"github.com/erain9/itchbook/pkg/messaging"
)

const (
	defaultBroker = "localhost:9092"
	defaultTopic  = "itch-trades"
	maxRetry      = 5
)

// Overridable in tests.
var (
	newSyncProducer = sarama.NewSyncProducer
	newConsumer     = sarama.NewConsumer
)

// QueueTradeSender publishes trade tape events to Kafka through a sarama
// sync producer, encoded in protobuf wire format.
type QueueTradeSender struct {
	producer sarama.SyncProducer
	topic    string
}

// NewQueueTradeSender connects a producer to the given brokers. Empty
// arguments fall back to localhost:9092 and the itch-trades topic.
func NewQueueTradeSender(brokers []string, topic string) (*QueueTradeSender, error) {
	if len(brokers) == 0 {
		brokers = []string{defaultBroker}
	}
	if topic == "" {
		topic = defaultTopic
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = maxRetry
	config.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := newSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &QueueTradeSender{producer: producer, topic: topic}, nil
}

// SendTrade sends one trade message. The message is keyed by stock locate so
// every trade for an instrument lands on the same partition.
func (q *QueueTradeSender) SendTrade(trade *messaging.TradeMessage) error {
	msg := &sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d", trade.StockLocate)),
		Value: sarama.ByteEncoder(MarshalTrade(trade)),
	}
	if _, _, err := q.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}
	return nil
}

// Close closes the producer
func (q *QueueTradeSender) Close() error {
	return q.producer.Close()
}

var _ messaging.TradeSender = (*QueueTradeSender)(nil)
