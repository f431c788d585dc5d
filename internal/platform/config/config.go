package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	pstrings "personas/pkg/platform/strings"
)

// ConfigPathEnv names the optional YAML file read before the environment.
const ConfigPathEnv = "PERSONAS_CONFIG"

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	LogLevel        string        `koanf:"log_level"`
}

// Database configures the shared personas/logs Postgres pool.
type Database struct {
	URL      string `koanf:"database_url"`
	MinConns int    `koanf:"db_min_conns"`
	MaxConns int    `koanf:"db_max_conns"`
}

// RedisConfig configures the optional statistics cache.
type RedisConfig struct {
	URL          string        `koanf:"redis_url"`
	PoolSize     int           `koanf:"redis_pool_size"`
	MinIdleConns int           `koanf:"redis_min_idle_conns"`
	DialTimeout  time.Duration `koanf:"redis_dial_timeout"`
	ReadTimeout  time.Duration `koanf:"redis_read_timeout"`
	WriteTimeout time.Duration `koanf:"redis_write_timeout"`
}

// Kafka configures the optional audit mirror.
type Kafka struct {
	Brokers    []string `koanf:"kafka_brokers"`
	AuditTopic string   `koanf:"kafka_audit_topic"`
}

// Completion configures the language-model provider behind /consulta-nlp.
// An empty API key for the selected provider leaves it unconfigured.
type Completion struct {
	Provider     string        `koanf:"completion_provider"`
	Model        string        `koanf:"completion_model"`
	GeminiAPIKey string        `koanf:"gemini_api_key"`
	OpenAIAPIKey string        `koanf:"openai_api_key"`
	Timeout      time.Duration `koanf:"completion_timeout"`
	RPM          int           `koanf:"completion_rpm"`
}

// Auth configures the development auth stub.
type Auth struct {
	Auth0Domain   string `koanf:"auth0_domain"`
	Auth0Audience string `koanf:"auth0_api_audience"`
	JWTSigningKey string `koanf:"jwt_signing_key"`
}

// Config is the full service configuration.
type Config struct {
	Server     `koanf:",squash"`
	Database   `koanf:",squash"`
	Redis      RedisConfig `koanf:",squash"`
	Kafka      `koanf:",squash"`
	Completion `koanf:",squash"`
	Auth       `koanf:",squash"`

	StatsCacheTTL time.Duration `koanf:"stats_cache_ttl"`
}

// Default returns development defaults.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			LogLevel:        "info",
		},
		Database: Database{MinConns: 2, MaxConns: 10},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{AuditTopic: "personas.audit"},
		Completion: Completion{
			Provider: "gemini",
			Timeout:  15 * time.Second,
			RPM:      60,
		},
		Auth: Auth{
			Auth0Domain:   "dev-example.auth0.com",
			Auth0Audience: "https://api.example.com",
			// Use a default for development - should be overridden in production
			JWTSigningKey: "dev-secret-key-change-in-production",
		},
		StatsCacheTTL: time.Minute,
	}
}

// Load layers the optional YAML file named by PERSONAS_CONFIG and then the
// process environment over Default. Environment keys are the upper-cased
// field keys (DATABASE_URL, GEMINI_API_KEY, ...).
func Load() (*Config, error) {
	return load(os.Getenv(ConfigPathEnv))
}

func load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	known := knownKeys()
	err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if !known[key] {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Kafka.Brokers = pstrings.DedupeAndTrim(cfg.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func knownKeys() map[string]bool {
	keys := []string{
		"addr", "shutdown_timeout", "log_level",
		"database_url", "db_min_conns", "db_max_conns",
		"redis_url", "redis_pool_size", "redis_min_idle_conns",
		"redis_dial_timeout", "redis_read_timeout", "redis_write_timeout",
		"kafka_brokers", "kafka_audit_topic",
		"completion_provider", "completion_model", "gemini_api_key",
		"openai_api_key", "completion_timeout", "completion_rpm",
		"auth0_domain", "auth0_api_audience", "jwt_signing_key",
		"stats_cache_ttl",
	}
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	switch c.Completion.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("invalid completion_provider %q: must be gemini or openai", c.Completion.Provider)
	}
	if c.Completion.Timeout <= 0 {
		return fmt.Errorf("completion_timeout must be positive")
	}
	if c.Database.MinConns < 0 || c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("db_max_conns must be >= db_min_conns >= 0")
	}
	return nil
}

// CompletionAPIKey returns the credential for the selected provider.
func (c *Config) CompletionAPIKey() string {
	if c.Completion.Provider == "openai" {
		return c.Completion.OpenAIAPIKey
	}
	return c.Completion.GeminiAPIKey
}

// DevMode reports whether auth runs against the placeholder Auth0 tenant.
func (a Auth) DevMode() bool {
	return strings.Contains(a.Auth0Domain, "dev-example")
}
