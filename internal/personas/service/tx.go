package service

import (
	"context"
	"database/sql"
	"sync"

	txcontext "personas/pkg/platform/tx"
)

// TxRunner provides the transactional boundary for a registry change and its
// audit entry.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLTx runs fn in a database transaction carried on the context, so the
// personas and logs stores write atomically.
type SQLTx struct {
	db *sql.DB
}

func NewSQLTx(db *sql.DB) *SQLTx {
	return &SQLTx{db: db}
}

func (t *SQLTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, t.db, fn)
}

// LockTx serializes changes for the in-memory stores. It cannot roll back.
type LockTx struct {
	mu sync.Mutex
}

func (t *LockTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
