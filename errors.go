package schemagraph

import "errors"

// Common errors used throughout the schemagraph packages
var (
	// ErrGraphNotFound is returned when the persisted graph file does not exist yet.
	ErrGraphNotFound = errors.New("graph not found, run scan first")
	// ErrDatabaseNotConfigured indicates the requested environment has no databases entry.
	ErrDatabaseNotConfigured = errors.New("database environment is not configured")
	// ErrEmptySnapshot indicates a metadata source returned no tables at all.
	ErrEmptySnapshot = errors.New("snapshot contains no tables")
	// ErrUnknownExportFormat indicates an export format other than graphml, yaml or json.
	ErrUnknownExportFormat = errors.New("unknown export format")
)
