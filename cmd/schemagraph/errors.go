package main

import "errors"

// Sentinel errors for command operations
var (
	ErrMissingDBOrEnv      = errors.New("either --db or --env must be specified")
	ErrEmptyDatabaseType   = errors.New("database type is not specified")
	ErrInvalidTableCount   = errors.New("at least two tables are required")
	ErrTableNotFound       = errors.New("table not found")
	ErrExportTargetMissing = errors.New("--format is required when writing to stdout")
)
