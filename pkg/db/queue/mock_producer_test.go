package queue

import (
	"sync"

	"github.com/IBM/sarama"
)

// recordingProducer captures what the sender publishes. Transaction methods
// come from the embedded nil interface and are never called.
type recordingProducer struct {
	sarama.SyncProducer

	mu     sync.Mutex
	sent   []*sarama.ProducerMessage
	err    error
	closed bool
}

func (p *recordingProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, 0, p.err
	}
	p.sent = append(p.sent, msg)
	return 0, int64(len(p.sent) - 1), nil
}

func (p *recordingProducer) Close() error {
	p.closed = true
	return nil
}
