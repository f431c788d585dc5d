//go:build integration

package containers

import (
	"sync"
	"testing"
)

// Manager shares one container per backend across every suite in a test
// binary. Ryuk reaps the containers when the process exits.
type Manager struct {
	postgresOnce sync.Once
	postgres     *PostgresContainer
	redisOnce    sync.Once
	redis        *RedisContainer
	kafkaOnce    sync.Once
	kafka        *KafkaContainer
}

var (
	managerOnce sync.Once
	manager     *Manager
)

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

// GetPostgres starts the shared Postgres container on first use.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.postgresOnce.Do(func() {
		m.postgres = NewPostgresContainer(t)
	})
	if m.postgres == nil {
		t.Fatal("postgres container failed to start earlier in this run")
	}
	return m.postgres
}

// GetRedis starts the shared Redis container on first use.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	m.redisOnce.Do(func() {
		m.redis = NewRedisContainer(t)
	})
	if m.redis == nil {
		t.Fatal("redis container failed to start earlier in this run")
	}
	return m.redis
}

// GetKafka starts the shared Redpanda broker on first use.
func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	t.Helper()
	m.kafkaOnce.Do(func() {
		m.kafka = NewKafkaContainer(t)
	})
	if m.kafka == nil {
		t.Fatal("kafka container failed to start earlier in this run")
	}
	return m.kafka
}
