package schemaimport

import "errors"

// Resolution errors
var (
	ErrTblsConfigNotFound    = errors.New("no .tbls.yml or tbls.yml found")
	ErrSchemaJSONPathMissing = errors.New("schema.json location is unknown")
)

// Loading errors
var (
	ErrImporterNil     = errors.New("nil importer")
	ErrSchemaNotLoaded = errors.New("schema.json must be loaded before conversion")
)

// Validation errors for decoded schema.json payloads
var (
	ErrSchemaPayloadNil      = errors.New("schema.json decoded to nothing")
	ErrDriverMetadataMissing = errors.New("schema.json has no driver section")
	ErrDriverNameEmpty       = errors.New("schema.json driver has no name")
	ErrSchemaTablesEmpty     = errors.New("schema.json lists no tables")
)
