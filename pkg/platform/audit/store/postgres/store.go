package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	audit "personas/pkg/platform/audit"
	txcontext "personas/pkg/platform/tx"
)

// Store implements audit.Store over the shared logs table. Appends join a
// transaction carried on ctx so a registry write and its log row commit together.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an audit row. The timestamp defaults to now() in the database
// when the entry carries none.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	var documentNumber *string
	if entry.DocumentNumber != "" {
		documentNumber = &entry.DocumentNumber
	}
	var ts *time.Time
	if !entry.Timestamp.IsZero() {
		ts = &entry.Timestamp
	}

	query := `
		INSERT INTO logs (tipo_operacion, numero_documento, detalles, fecha_transaccion)
		VALUES ($1, $2, $3::jsonb, COALESCE($4, NOW()))
	`
	_, err = txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		string(entry.Operation),
		documentNumber,
		string(payload),
		ts,
	)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

// List returns entries matching filter, newest first.
func (s *Store) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.Operation != "" {
		add("tipo_operacion = $%d", string(filter.Operation))
	}
	if filter.DocumentNumber != "" {
		add("numero_documento = $%d", filter.DocumentNumber)
	}
	if filter.From != nil {
		add("fecha_transaccion >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("fecha_transaccion <= $%d", *filter.To)
	}
	limit := filter.Limit
	if limit <= 0 || limit > audit.DefaultListLimit {
		limit = audit.DefaultListLimit
	}

	query := "SELECT id, tipo_operacion, COALESCE(numero_documento, ''), detalles, fecha_transaccion FROM logs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY fecha_transaccion DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			entry     audit.Entry
			operation string
			details   []byte
		)
		if err := rows.Scan(&entry.ID, &operation, &entry.DocumentNumber, &details, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		entry.Operation = audit.Operation(operation)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("decode log details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return entries, nil
}

// Summarize counts all entries, those after since, and the per-operation split.
func (s *Store) Summarize(ctx context.Context, since time.Time) (*audit.Summary, error) {
	summary := &audit.Summary{Distribution: []audit.OperationCount{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM logs`).Scan(&summary.Total); err != nil {
		return nil, fmt.Errorf("count logs: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM logs WHERE fecha_transaccion > $1`, since,
	).Scan(&summary.Last24h); err != nil {
		return nil, fmt.Errorf("count recent logs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tipo_operacion, COUNT(*) FROM logs GROUP BY tipo_operacion ORDER BY tipo_operacion`)
	if err != nil {
		return nil, fmt.Errorf("group logs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			operation string
			count     int
		)
		if err := rows.Scan(&operation, &count); err != nil {
			return nil, fmt.Errorf("scan log group: %w", err)
		}
		summary.Distribution = append(summary.Distribution, audit.OperationCount{
			Operation: audit.Operation(operation),
			Count:     count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log groups: %w", err)
	}
	return summary, nil
}
