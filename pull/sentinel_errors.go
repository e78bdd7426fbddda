package pull

import "errors"

// Errors raised before any connection is attempted
var (
	ErrEmptyDatabaseURL         = errors.New("no database URL given")
	ErrEmptyDatabaseType        = errors.New("no database type given")
	ErrInvalidDatabaseURL       = errors.New("malformed database URL")
	ErrUnsupportedDatabase      = errors.New("database type is not postgresql, mysql or sqlite")
	ErrInvalidConnectionInfo    = errors.New("incomplete connection info")
	ErrConflictingSchemaFilters = errors.New("a schema is both included and excluded")
	ErrConflictingTableFilters  = errors.New("a table pattern is both included and excluded")
)

// Errors raised while talking to the catalog
var (
	ErrConnectionFailed     = errors.New("cannot reach database")
	ErrQueryExecutionFailed = errors.New("catalog query failed")
	ErrResultScanFailed     = errors.New("catalog row could not be read")
)
