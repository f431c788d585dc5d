package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 2, cfg.Database.MinConns)
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, "gemini", cfg.Completion.Provider)
	assert.Equal(t, 15*time.Second, cfg.Completion.Timeout)
	assert.True(t, cfg.DevMode())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("DATABASE_URL", "postgres://personas@localhost/personas")
	t.Setenv("GEMINI_API_KEY", "key-123")
	t.Setenv("COMPLETION_TIMEOUT", "3s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,k1:9092")

	cfg, err := load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres://personas@localhost/personas", cfg.Database.URL)
	assert.Equal(t, "key-123", cfg.CompletionAPIKey())
	assert.Equal(t, 3*time.Second, cfg.Completion.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":7000\"\ncompletion_provider: openai\nopenai_api_key: from-file\n"), 0o600))
	t.Setenv("OPENAI_API_KEY", "from-env")

	cfg, err := load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "openai", cfg.Completion.Provider)
	assert.Equal(t, "from-env", cfg.CompletionAPIKey())
}

func TestMissingAPIKeyIsNotAnError(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg, err := load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.CompletionAPIKey())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Completion.Provider = "llama"
	assert.ErrorContains(t, cfg.Validate(), "invalid completion_provider")

	cfg = Default()
	cfg.Database.MaxConns = 1
	assert.Error(t, cfg.Validate())
}
