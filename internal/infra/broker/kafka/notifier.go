package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Publisher is the subset of Producer the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Notifier hands notifications to a downstream delivery service through a
// topic keyed by recipient.
type Notifier struct {
	Publisher Publisher
	Topic     string
	Clock     func() time.Time
}

type notification struct {
	ID       string    `json:"id"`
	To       string    `json:"to"`
	Template string    `json:"template"`
	Data     any       `json:"data"`
	SentAt   time.Time `json:"sent_at"`
}

func (n *Notifier) Send(ctx context.Context, to string, template string, data any) error {
	now := time.Now().UTC()
	if n.Clock != nil {
		now = n.Clock()
	}
	payload, err := json.Marshal(notification{
		ID:       uuid.NewString(),
		To:       to,
		Template: template,
		Data:     data,
		SentAt:   now,
	})
	if err != nil {
		return err
	}
	return n.Publisher.Publish(ctx, n.Topic, to, payload, map[string]string{
		"content-type": "application/json",
		"template":     template,
	})
}
