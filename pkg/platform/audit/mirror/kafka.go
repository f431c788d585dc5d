// Package mirror copies audit entries to a Kafka topic for downstream consumers.
package mirror

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "personas/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client used by the mirror.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// Kafka produces each entry asynchronously, keyed by event ID.
type Kafka struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

// NewKafka builds a Kafka mirror.
func NewKafka(producer Producer, topic string, logger *slog.Logger) *Kafka {
	return &Kafka{producer: producer, topic: topic, logger: logger}
}

type message struct {
	EventID        string         `json:"event_id"`
	Operation      string         `json:"tipo_operacion"`
	DocumentNumber string         `json:"numero_documento,omitempty"`
	Details        map[string]any `json:"detalles"`
	Timestamp      string         `json:"fecha_transaccion"`
}

// Mirror never blocks on the broker; delivery failures are logged.
func (k *Kafka) Mirror(ctx context.Context, entry audit.Entry) {
	payload, err := json.Marshal(message{
		EventID:        entry.EventID.String(),
		Operation:      string(entry.Operation),
		DocumentNumber: entry.DocumentNumber,
		Details:        entry.Details,
		Timestamp:      entry.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		k.logger.WarnContext(ctx, "failed to encode audit mirror message", "error", err)
		return
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(entry.EventID.String()),
		Value: payload,
	}
	// The request context may be cancelled before the broker acks.
	k.producer.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			k.logger.Warn("audit mirror delivery failed",
				"topic", r.Topic,
				"event_id", entry.EventID,
				"error", err,
			)
		}
	})
}
