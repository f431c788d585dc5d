//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/redpanda"
)

const redpandaImage = "docker.redpanda.com/redpandadata/redpanda:v24.2.7"

// KafkaContainer is a Kafka-compatible Redpanda broker for audit mirror tests.
type KafkaContainer struct {
	Container *redpanda.Container
	Broker    string
}

// NewKafkaContainer starts a single-node broker. Topic auto-creation stays
// off so tests exercise explicit topic creation.
func NewKafkaContainer(t *testing.T) *KafkaContainer {
	t.Helper()

	ctx := context.Background()
	container, err := redpanda.Run(ctx, redpandaImage)
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}
	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get kafka seed broker: %v", err)
	}
	return &KafkaContainer{Container: container, Broker: broker}
}
