// Package store persists registry entries in Postgres, with an in-memory
// implementation for tests and database-less runs.
package store

import (
	"personas/pkg/platform/sentinel"
)

// Sentinel aliases keep store callers from importing the platform package.
var (
	ErrNotFound = sentinel.ErrNotFound
	ErrConflict = sentinel.ErrConflict
)

// ListLimit caps the registry listing.
const ListLimit = 100

// SearchFilter narrows a registry search. Zero values are ignored. Name matches
// primer_nombre or apellidos case-insensitively as a substring.
type SearchFilter struct {
	DocumentNumber string
	DocumentType   string
	Name           string
}

// GenderCount is one bucket of the gender distribution.
type GenderCount struct {
	Gender string `json:"genero"`
	Count  int    `json:"cantidad"`
}
