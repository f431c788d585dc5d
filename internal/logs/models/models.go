// Package models holds the audit log query and response types.
package models

import (
	"strings"
	"time"

	dErrors "personas/pkg/domain-errors"
	"personas/pkg/platform/audit"
)

const dateLayout = "2006-01-02"

// ListRequest carries the /logs query-string filters. Dates are calendar days;
// To covers the whole of its day.
type ListRequest struct {
	Operation      string
	DocumentNumber string
	From           string
	To             string
}

// Filter validates the dates and builds the store filter.
func (r ListRequest) Filter() (audit.Filter, error) {
	f := audit.Filter{
		Operation:      audit.Operation(strings.TrimSpace(r.Operation)),
		DocumentNumber: strings.TrimSpace(r.DocumentNumber),
		Limit:          audit.DefaultListLimit,
	}
	if r.From != "" {
		from, err := time.Parse(dateLayout, strings.TrimSpace(r.From))
		if err != nil {
			return audit.Filter{}, dErrors.New(dErrors.CodeValidation, "fecha_inicio must be YYYY-MM-DD")
		}
		f.From = &from
	}
	if r.To != "" {
		to, err := time.Parse(dateLayout, strings.TrimSpace(r.To))
		if err != nil {
			return audit.Filter{}, dErrors.New(dErrors.CodeValidation, "fecha_fin must be YYYY-MM-DD")
		}
		end := to.Add(24*time.Hour - time.Nanosecond)
		f.To = &end
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return audit.Filter{}, dErrors.New(dErrors.CodeValidation, "fecha_fin must not precede fecha_inicio")
	}
	return f, nil
}

// LogEntry is the wire shape of one logs row.
type LogEntry struct {
	ID             int64          `json:"id"`
	Operation      string         `json:"tipo_operacion"`
	DocumentNumber *string        `json:"numero_documento"`
	Details        map[string]any `json:"detalles"`
	Timestamp      time.Time      `json:"fecha_transaccion"`
}

// FromEntry converts a stored entry. An empty document number renders as null.
func FromEntry(e audit.Entry) LogEntry {
	out := LogEntry{
		ID:        e.ID,
		Operation: string(e.Operation),
		Details:   e.Details,
		Timestamp: e.Timestamp,
	}
	if e.DocumentNumber != "" {
		doc := e.DocumentNumber
		out.DocumentNumber = &doc
	}
	if out.Details == nil {
		out.Details = map[string]any{}
	}
	return out
}
