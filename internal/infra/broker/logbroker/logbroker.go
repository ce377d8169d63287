// Package logbroker stands in for Kafka when no brokers are configured:
// events and notifications are written to the structured log.
package logbroker

import (
	"context"
	"log/slog"
)

type Producer struct {
	Logger *slog.Logger
}

func (p Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	p.logger().InfoContext(ctx, "event published", "topic", topic, "key", key, "bytes", len(payload), "event", headers["event-name"])
	return nil
}

func (p Producer) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

type Notifier struct {
	Logger *slog.Logger
}

func (n Notifier) Send(ctx context.Context, to string, template string, data any) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification", "to", to, "template", template, "data", data)
	return nil
}
