// Package models holds the search and statistics types served by /consultar
// and /estadisticas.
package models

import (
	"strings"

	"personas/internal/personas/store"
)

// SearchRequest carries the optional query-string filters of /consultar.
type SearchRequest struct {
	DocumentNumber string
	DocumentType   string
	Name           string
}

// Normalize trims surrounding whitespace from every filter.
func (r *SearchRequest) Normalize() {
	r.DocumentNumber = strings.TrimSpace(r.DocumentNumber)
	r.DocumentType = strings.TrimSpace(r.DocumentType)
	r.Name = strings.TrimSpace(r.Name)
}

// Filter converts the request into the store filter.
func (r SearchRequest) Filter() store.SearchFilter {
	return store.SearchFilter{
		DocumentNumber: r.DocumentNumber,
		DocumentType:   r.DocumentType,
		Name:           r.Name,
	}
}

// AuditDetails renders the filters for the CONSULTA log row. Absent filters
// are recorded as null.
func (r SearchRequest) AuditDetails() map[string]any {
	return map[string]any{
		"filtros": map[string]any{
			"documento": nullable(r.DocumentNumber),
			"tipo":      nullable(r.DocumentType),
			"nombre":    nullable(r.Name),
		},
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Statistics summarizes the registry.
type Statistics struct {
	Total        int                 `json:"total_personas"`
	Distribution []store.GenderCount `json:"distribucion_genero"`
	AverageAge   float64             `json:"edad_promedio"`
}

// Clone returns a deep copy so cached values are never shared with callers.
func (s *Statistics) Clone() *Statistics {
	if s == nil {
		return nil
	}
	out := *s
	out.Distribution = append([]store.GenderCount(nil), s.Distribution...)
	if out.Distribution == nil {
		out.Distribution = []store.GenderCount{}
	}
	return &out
}
