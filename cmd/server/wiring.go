package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	authhandler "personas/internal/auth/handler"
	"personas/internal/auth/token"
	consultashandler "personas/internal/consultas/handler"
	consultasservice "personas/internal/consultas/service"
	logshandler "personas/internal/logs/handler"
	logsservice "personas/internal/logs/service"
	"personas/internal/nlp"
	"personas/internal/nlp/completion"
	nlphandler "personas/internal/nlp/handler"
	nlpmetrics "personas/internal/nlp/metrics"
	personashandler "personas/internal/personas/handler"
	personasservice "personas/internal/personas/service"
	"personas/internal/personas/store"
	"personas/internal/platform/config"
	"personas/internal/platform/kafka"
	"personas/internal/platform/metrics"
	"personas/internal/platform/postgres"
	"personas/internal/platform/redis"
	"personas/pkg/platform/audit"
	"personas/pkg/platform/audit/mirror"
	auditmemory "personas/pkg/platform/audit/store/memory"
	auditpostgres "personas/pkg/platform/audit/store/postgres"
)

const tokenIssuer = "personas-dev"

// registryStore is satisfied by both the Postgres and in-memory personas stores.
type registryStore interface {
	personasservice.Store
	consultasservice.Store
	nlp.SnapshotProvider
}

type infra struct {
	storage  string
	db       *sql.DB
	registry registryStore
	logs     audit.Store
	tx       personasservice.TxRunner
	redis    *redis.Client
	kafka    *kgo.Client
}

// buildInfra connects the configured backends. Without DATABASE_URL the
// registry and logs live in memory; Redis and Kafka are optional.
func buildInfra(ctx context.Context, cfg *config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		in.storage = "memory"
		in.registry = store.NewInMemory()
		in.logs = auditmemory.NewInMemoryStore()
		in.tx = &personasservice.LockTx{}
	} else {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		in.storage = "postgres"
		in.db = db
		in.registry = store.NewPostgres(db, log)
		in.logs = auditpostgres.New(db)
		in.tx = personasservice.NewSQLTx(db)
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.redis = rc

	kc, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.kafka = kc
	return in, nil
}

func (in *infra) Close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

// Ping checks the backends a request depends on.
func (in *infra) Ping(ctx context.Context) error {
	if in.db != nil {
		if err := in.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

type app struct {
	infra     *infra
	nlp       *nlp.Service
	personas  *personashandler.Handler
	consultas *consultashandler.Handler
	logs      *logshandler.Handler
	nlpHTTP   *nlphandler.Handler
	auth      *authhandler.Handler
	metrics   *metrics.Metrics
}

func buildApp(cfg *config.Config, in *infra, reg prometheus.Registerer, log *slog.Logger) (*app, error) {
	platformMetrics := metrics.New(reg)

	publisherOpts := []audit.PublisherOption{audit.WithLogger(log)}
	if in.kafka != nil {
		publisherOpts = append(publisherOpts, audit.WithMirror(mirror.NewKafka(in.kafka, cfg.Kafka.AuditTopic, log)))
	}
	publisher := audit.NewPublisher(in.logs, publisherOpts...)

	var statsCache consultasservice.Cache = consultasservice.NewMemoryCache(cfg.StatsCacheTTL)
	if in.redis != nil {
		statsCache = consultasservice.NewRedisCache(in.redis.Client, cfg.StatsCacheTTL, log)
	}

	provider, err := completion.New(cfg.Completion, log)
	if err != nil {
		return nil, err
	}
	nlpService := nlp.NewService(in.registry,
		nlp.WithProvider(provider),
		nlp.WithAuditor(publisher),
		nlp.WithLogger(log),
		nlp.WithMetrics(nlpmetrics.New(reg)),
		nlp.WithCompletionTimeout(cfg.Completion.Timeout),
	)

	tokens := token.NewService(cfg.JWTSigningKey, tokenIssuer, cfg.Auth0Audience)

	return &app{
		infra: in,
		nlp:   nlpService,
		personas: personashandler.New(
			personasservice.New(in.registry, in.tx, publisher, log, platformMetrics), log),
		consultas: consultashandler.New(
			consultasservice.New(in.registry, statsCache, publisher, log), log),
		logs:    logshandler.New(logsservice.New(in.logs, log), log),
		nlpHTTP: nlphandler.New(nlpService, log),
		auth:    authhandler.New(tokens, cfg.Auth, log),
		metrics: platformMetrics,
	}, nil
}
