// Package postgres opens the shared connection pool for the personas and logs tables.
package postgres

import (
	"context"
	_ "embed"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"personas/internal/platform/config"
)

// Open creates a pooled *sql.DB and verifies connectivity. Every store borrows
// a connection per statement and returns it on completion, including on error.
func Open(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database_url is required")
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(max(cfg.MinConns, 1))
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return db, nil
}

// Schema is the DDL for the personas and logs tables. Production schemas are
// managed outside this service; tests apply Schema to fresh databases.
//
//go:embed schema.sql
var Schema string

// ApplySchema executes Schema against db.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
