package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestProducerSendsKeyAndHeaders(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "booking.events.v1" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "bk-1" {
			return errors.New("unexpected key " + string(key))
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != "event-name" {
			return errors.New("headers not forwarded")
		}
		return nil
	})
	p := newProducerWith(mock)
	defer p.Close()

	err := p.Publish(context.Background(), "booking.events.v1", "bk-1", []byte(`{}`), map[string]string{"event-name": "booking.created"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestProducerHonoursCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	p := newProducerWith(mock)
	defer p.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, "t", "k", nil, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewProducerNeedsBrokers(t *testing.T) {
	if _, err := NewProducer(nil, nil); !errors.Is(err, ErrNoBrokers) {
		t.Fatalf("expected ErrNoBrokers, got %v", err)
	}
}

type capture struct {
	topic, key string
	payload    []byte
}

func (c *capture) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	c.topic, c.key, c.payload = topic, key, payload
	return nil
}

func TestNotifierPublishesEnvelope(t *testing.T) {
	pub := &capture{}
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	n := &Notifier{Publisher: pub, Topic: "notifications.v1", Clock: func() time.Time { return at }}

	if err := n.Send(context.Background(), "host-1", "booking_requested", map[string]string{"booking_id": "bk-1"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if pub.topic != "notifications.v1" || pub.key != "host-1" {
		t.Fatalf("topic=%q key=%q", pub.topic, pub.key)
	}
	var got notification
	if err := json.Unmarshal(pub.payload, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Template != "booking_requested" || got.To != "host-1" || !got.SentAt.Equal(at) || got.ID == "" {
		t.Fatalf("envelope = %+v", got)
	}
}
