package kafka

import (
	"context"
	"errors"

	"github.com/IBM/sarama"
)

var ErrNoBrokers = errors.New("kafka: at least one broker is required")

type Producer struct {
	sync sarama.SyncProducer
}

// NewConfig returns the producer settings the outbox relay relies on:
// idempotent writes acknowledged by every in-sync replica.
func NewConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_5_0_0
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Compression = sarama.CompressionSnappy
	return cfg
}

func NewProducer(brokers []string, cfg *sarama.Config) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg == nil {
		cfg = NewConfig("stayledger")
	}
	sync, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{sync: sync}, nil
}

func newProducerWith(sync sarama.SyncProducer) *Producer {
	return &Producer{sync: sync}
}

func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := p.sync.SendMessage(message(topic, key, payload, headers))
	return err
}

func message(topic, key string, payload []byte, headers map[string]string) *sarama.ProducerMessage {
	hs := make([]sarama.RecordHeader, 0, len(headers))
	for k, v := range headers {
		hs = append(hs, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Value:   sarama.ByteEncoder(payload),
		Headers: hs,
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}
	return msg
}

func (p *Producer) Close() error {
	if p.sync == nil {
		return nil
	}
	return p.sync.Close()
}
