package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"personas/internal/personas/models"
	txcontext "personas/pkg/platform/tx"
)

const uniqueViolation = "23505"

const personaColumns = `id, tipo_documento, numero_documento, primer_nombre, segundo_nombre,
	apellidos, fecha_nacimiento::text, genero, correo_electronico, celular, created_at, updated_at`

// PostgresStore reads and writes the personas table.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// DB exposes the pool so services can open transactions spanning the log table.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, record *models.Record) (*models.Persona, error) {
	query := `
		INSERT INTO personas
			(tipo_documento, numero_documento, primer_nombre, segundo_nombre,
			 apellidos, fecha_nacimiento, genero, correo_electronico, celular)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + personaColumns
	row := txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query,
		string(record.DocumentType),
		record.DocumentNumber,
		record.FirstName,
		record.SecondName,
		record.Surnames,
		record.BirthDate.Time,
		string(record.Gender),
		record.Email,
		record.Phone,
	)
	p, err := s.scanPersona(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert persona: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindByDocument(ctx context.Context, documentNumber string) (*models.Persona, error) {
	row := txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE numero_documento = $1`, documentNumber)
	p, err := s.scanPersona(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find persona: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, documentNumber string, record *models.Record) (*models.Persona, error) {
	query := `
		UPDATE personas
		SET tipo_documento = $1, primer_nombre = $2, segundo_nombre = $3,
			apellidos = $4, fecha_nacimiento = $5, genero = $6,
			correo_electronico = $7, celular = $8, updated_at = CURRENT_TIMESTAMP
		WHERE numero_documento = $9
		RETURNING ` + personaColumns
	row := txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query,
		string(record.DocumentType),
		record.FirstName,
		record.SecondName,
		record.Surnames,
		record.BirthDate.Time,
		string(record.Gender),
		record.Email,
		record.Phone,
		documentNumber,
	)
	p, err := s.scanPersona(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update persona: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Delete(ctx context.Context, documentNumber string) error {
	res, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM personas WHERE numero_documento = $1`, documentNumber)
	if err != nil {
		return fmt.Errorf("delete persona: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete persona: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns up to ListLimit entries, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]models.Persona, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+personaColumns+` FROM personas ORDER BY id DESC LIMIT $1`, ListLimit)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	return s.collect(rows)
}

// Search applies filter with positional parameters.
func (s *PostgresStore) Search(ctx context.Context, filter SearchFilter) ([]models.Persona, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.DocumentNumber != "" {
		args = append(args, filter.DocumentNumber)
		clauses = append(clauses, fmt.Sprintf("numero_documento = $%d", len(args)))
	}
	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		clauses = append(clauses, fmt.Sprintf("tipo_documento = $%d", len(args)))
	}
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		clauses = append(clauses, fmt.Sprintf("(primer_nombre ILIKE $%d OR apellidos ILIKE $%d)", len(args), len(args)))
	}
	query := `SELECT ` + personaColumns + ` FROM personas`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search personas: %w", err)
	}
	return s.collect(rows)
}

// Snapshot returns every registry row in storage order. Rows whose birth date
// cannot be parsed are kept with an unknown date.
func (s *PostgresStore) Snapshot(ctx context.Context) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tipo_documento, numero_documento, primer_nombre,
		       segundo_nombre, apellidos, fecha_nacimiento::text,
		       genero, correo_electronico, celular
		FROM personas`)
	if err != nil {
		return nil, fmt.Errorf("snapshot personas: %w", err)
	}
	defer rows.Close()

	records := []models.Record{}
	for rows.Next() {
		var (
			r         models.Record
			docType   string
			gender    string
			birthDate sql.NullString
		)
		if err := rows.Scan(&docType, &r.DocumentNumber, &r.FirstName, &r.SecondName,
			&r.Surnames, &birthDate, &gender, &r.Email, &r.Phone); err != nil {
			return nil, fmt.Errorf("scan persona: %w", err)
		}
		r.DocumentType = models.DocumentType(docType)
		r.Gender = models.Gender(gender)
		r.BirthDate = s.parseBirthDate(ctx, r.DocumentNumber, birthDate)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate personas: %w", err)
	}
	return records, nil
}

// Count returns the number of registry entries.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM personas`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count personas: %w", err)
	}
	return n, nil
}

// GenderDistribution counts entries per gender.
func (s *PostgresStore) GenderDistribution(ctx context.Context) ([]GenderCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT genero, COUNT(*) AS cantidad FROM personas GROUP BY genero ORDER BY genero`)
	if err != nil {
		return nil, fmt.Errorf("gender distribution: %w", err)
	}
	defer rows.Close()

	out := []GenderCount{}
	for rows.Next() {
		var gc GenderCount
		if err := rows.Scan(&gc.Gender, &gc.Count); err != nil {
			return nil, fmt.Errorf("scan gender bucket: %w", err)
		}
		out = append(out, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gender buckets: %w", err)
	}
	return out, nil
}

// AverageAge returns the mean age in whole years, or 0 for an empty registry.
func (s *PostgresStore) AverageAge(ctx context.Context) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(EXTRACT(YEAR FROM age(fecha_nacimiento)))::float8 FROM personas`).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average age: %w", err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanPersona(row rowScanner) (*models.Persona, error) {
	var (
		p         models.Persona
		docType   string
		gender    string
		birthDate sql.NullString
	)
	err := row.Scan(&p.ID, &docType, &p.DocumentNumber, &p.FirstName, &p.SecondName,
		&p.Surnames, &birthDate, &gender, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.DocumentType = models.DocumentType(docType)
	p.Gender = models.Gender(gender)
	p.BirthDate = s.parseBirthDate(context.Background(), p.DocumentNumber, birthDate)
	return &p, nil
}

func (s *PostgresStore) collect(rows *sql.Rows) ([]models.Persona, error) {
	defer rows.Close()
	out := []models.Persona{}
	for rows.Next() {
		p, err := s.scanPersona(rows)
		if err != nil {
			return nil, fmt.Errorf("scan persona: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate personas: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) parseBirthDate(ctx context.Context, documentNumber string, raw sql.NullString) models.Date {
	if !raw.Valid || raw.String == "" {
		return models.Date{}
	}
	d, err := models.ParseDate(raw.String)
	if err != nil {
		s.logger.WarnContext(ctx, "malformed birth date",
			"numero_documento", documentNumber,
			"value", raw.String,
		)
		return models.Date{}
	}
	return d
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
