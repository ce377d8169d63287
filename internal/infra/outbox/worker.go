package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "stayledger/internal/app/outbox"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker relays outbox records to the producer as CloudEvents.
type Worker struct {
	Queue       appoutbox.Queue
	Producer    Producer
	Interval    time.Duration
	BatchSize   int
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	Logger      *slog.Logger
	Clock       func() time.Time
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

func (w *Worker) Run(ctx context.Context) error {
	if w.Queue == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil {
				w.logger().Error("outbox drain failed", "worker", w.ID, "error", err)
			}
		}
	}
}

// Drain publishes up to BatchSize due records and reports how many were sent.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for i := 0; i < w.batchSize(); i++ {
		ok, more, err := w.processOnce(ctx)
		if err != nil {
			return sent, err
		}
		if ok {
			sent++
		}
		if !more {
			break
		}
	}
	return sent, nil
}

// processOnce reports whether a record was sent and whether one was claimed.
func (w *Worker) processOnce(ctx context.Context) (bool, bool, error) {
	rec, err := w.Queue.Claim(ctx, w.ID)
	if err != nil || rec == nil {
		return false, false, err
	}
	payload, headers, err := w.formatPayload(rec)
	if err != nil {
		return false, true, w.fail(ctx, rec, err)
	}
	if err := w.Producer.Publish(ctx, w.topicFor(rec.Name), rec.Aggregate, payload, headers); err != nil {
		return false, true, w.fail(ctx, rec, err)
	}
	return true, true, w.Queue.MarkSent(ctx, rec.ID)
}

func (w *Worker) fail(ctx context.Context, rec *appoutbox.Pending, cause error) error {
	w.logger().Warn("outbox publish failed", "event", rec.Name, "id", rec.ID, "attempts", rec.Attempts+1, "error", cause)
	return w.Queue.MarkFailed(ctx, rec.ID, w.nextRetry(rec.Attempts), cause.Error())
}

func (w *Worker) formatPayload(rec *appoutbox.Pending) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              rec.ID,
		"type":            rec.Name + ".v1",
		"source":          w.source(),
		"subject":         rec.Aggregate,
		"time":            rec.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := rec.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
	}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor maps "booking.cancelled" to "<prefix>booking.events.v1".
func (w *Worker) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".events.v1"
	if w.TopicPrefix != "" {
		topic = w.TopicPrefix + topic
	}
	return topic
}

func (w *Worker) now() time.Time {
	if w.Clock != nil {
		return w.Clock()
	}
	return time.Now().UTC()
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 50
	}
	return w.BatchSize
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return w.now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return w.now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return w.now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://stayledger"
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
