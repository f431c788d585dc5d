package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Operation is the tipo_operacion tag stored with every log row.
type Operation string

const (
	OperationCreate      Operation = "CREATE"
	OperationRead        Operation = "READ"
	OperationUpdate      Operation = "UPDATE"
	OperationDelete      Operation = "DELETE"
	OperationConsulta    Operation = "CONSULTA"
	OperationConsultaNLP Operation = "CONSULTA_NLP"
)

// Entry is one append-only audit row. Details must be JSON-serializable.
type Entry struct {
	EventID        uuid.UUID
	ID             int64
	Operation      Operation
	DocumentNumber string
	Details        map[string]any
	Timestamp      time.Time
}

// Filter narrows a log search. Zero values are ignored.
type Filter struct {
	Operation      Operation
	DocumentNumber string
	From           *time.Time
	To             *time.Time
	Limit          int
}

// OperationCount is one bucket of the per-operation distribution.
type OperationCount struct {
	Operation Operation `json:"tipo_operacion"`
	Count     int       `json:"cantidad"`
}

// Summary aggregates the log table.
type Summary struct {
	Total        int              `json:"total_operaciones"`
	Last24h      int              `json:"operaciones_24h"`
	Distribution []OperationCount `json:"distribucion_tipos"`
}

// DefaultListLimit caps log searches.
const DefaultListLimit = 100

// Store persists and queries audit entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
	Summarize(ctx context.Context, since time.Time) (*Summary, error)
}

// Mirror receives a copy of every appended entry. Mirrors are best effort.
type Mirror interface {
	Mirror(ctx context.Context, entry Entry)
}
