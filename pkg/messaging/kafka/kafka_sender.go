package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/erain9/itchbook/pkg/messaging"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the sender uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTradeSender implements TradeSender using Kafka
type KafkaTradeSender struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
}

// NewKafkaTradeSender creates a new Kafka trade sender
func NewKafkaTradeSender(brokerAddr, topic string) (*KafkaTradeSender, error) {
	if brokerAddr == "" {
		return nil, fmt.Errorf("kafka broker address is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerAddr),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &KafkaTradeSender{
		writer:  writer,
		topic:   topic,
		timeout: 5 * time.Second,
	}, nil
}

// SendTrade sends a trade message to Kafka as JSON, keyed by match number.
func (k *KafkaTradeSender) SendTrade(trade *messaging.TradeMessage) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("failed to marshal trade message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(trade.MatchNumber, 10)),
		Value: data,
		Time:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka writer
func (k *KafkaTradeSender) Close() error {
	return k.writer.Close()
}

var _ messaging.TradeSender = (*KafkaTradeSender)(nil)
