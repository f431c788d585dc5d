// Package service implements registry CRUD. Every operation writes its audit
// entry in the same transaction as the change it records.
package service

import (
	"context"
	"errors"
	"log/slog"

	"personas/internal/personas/models"
	"personas/internal/personas/store"
	"personas/internal/platform/metrics"
	dErrors "personas/pkg/domain-errors"
	"personas/pkg/platform/audit"
	"personas/pkg/requestcontext"
)

const (
	msgDuplicate = "El documento ya existe"
	msgNotFound  = "Persona no encontrada"
)

// Store is the persistence port for registry entries.
type Store interface {
	Create(ctx context.Context, record *models.Record) (*models.Persona, error)
	FindByDocument(ctx context.Context, documentNumber string) (*models.Persona, error)
	Update(ctx context.Context, documentNumber string, record *models.Record) (*models.Persona, error)
	Delete(ctx context.Context, documentNumber string) error
	List(ctx context.Context) ([]models.Persona, error)
}

// AuditEmitter appends audit entries.
type AuditEmitter interface {
	Emit(ctx context.Context, entry audit.Entry) error
}

type Service struct {
	store   Store
	tx      TxRunner
	auditor AuditEmitter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(store Store, tx TxRunner, auditor AuditEmitter, logger *slog.Logger, m *metrics.Metrics) *Service {
	if tx == nil {
		tx = &LockTx{}
	}
	return &Service{store: store, tx: tx, auditor: auditor, logger: logger, metrics: m}
}

func (s *Service) Create(ctx context.Context, record *models.Record) (*models.Persona, error) {
	var created *models.Persona
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.store.Create(ctx, record)
		if err != nil {
			return err
		}
		created = p
		return s.emit(ctx, audit.OperationCreate, record.DocumentNumber, "Persona creada")
	})
	s.metrics.IncrementRegistryOperation(string(audit.OperationCreate), err)
	if err != nil {
		return nil, s.translate(ctx, "create", err)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, documentNumber string) (*models.Persona, error) {
	var found *models.Persona
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.store.FindByDocument(ctx, documentNumber)
		if err != nil {
			return err
		}
		found = p
		return s.emit(ctx, audit.OperationRead, documentNumber, "Consulta realizada")
	})
	s.metrics.IncrementRegistryOperation(string(audit.OperationRead), err)
	if err != nil {
		return nil, s.translate(ctx, "get", err)
	}
	return found, nil
}

// Update replaces the entry's fields; the path document number wins over any
// number in the body.
func (s *Service) Update(ctx context.Context, documentNumber string, record *models.Record) (*models.Persona, error) {
	var updated *models.Persona
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.store.Update(ctx, documentNumber, record)
		if err != nil {
			return err
		}
		updated = p
		return s.emit(ctx, audit.OperationUpdate, documentNumber, "Persona actualizada")
	})
	s.metrics.IncrementRegistryOperation(string(audit.OperationUpdate), err)
	if err != nil {
		return nil, s.translate(ctx, "update", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, documentNumber string) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Delete(ctx, documentNumber); err != nil {
			return err
		}
		return s.emit(ctx, audit.OperationDelete, documentNumber, "Persona eliminada")
	})
	s.metrics.IncrementRegistryOperation(string(audit.OperationDelete), err)
	if err != nil {
		return s.translate(ctx, "delete", err)
	}
	return nil
}

// List returns the newest entries. Listing is not audited.
func (s *Service) List(ctx context.Context) ([]models.Persona, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, s.translate(ctx, "list", err)
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, op audit.Operation, documentNumber, action string) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, audit.Entry{
		Operation:      op,
		DocumentNumber: documentNumber,
		Details:        map[string]any{"accion": action},
	})
}

func (s *Service) translate(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return dErrors.New(dErrors.CodeBadRequest, msgDuplicate)
	case errors.Is(err, store.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, msgNotFound)
	}
	s.logger.ErrorContext(ctx, "registry operation failed",
		"request_id", requestcontext.RequestID(ctx),
		"operation", op,
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, "registry operation failed")
}
