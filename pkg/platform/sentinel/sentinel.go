package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// - ErrNotFound: the persona or log entry does not exist
// - ErrConflict: a unique key (document number) is already taken
// - ErrUnavailable: the database, cache, or broker cannot be reached
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
