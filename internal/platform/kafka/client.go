// Package kafka connects the optional audit mirror to the broker.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"personas/internal/platform/config"
)

// New connects a producer client and makes sure the audit topic exists.
// Returns nil if no brokers are configured.
func New(ctx context.Context, cfg config.Kafka) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.AuditTopic),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}
	if err := ensureTopic(ctx, kadm.NewClient(client), cfg.AuditTopic); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func ensureTopic(ctx context.Context, admin *kadm.Client, topic string) error {
	resp, err := admin.CreateTopic(ctx, 1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}
