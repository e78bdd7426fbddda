package pull

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/shibukawa/schemagraph"
	"github.com/shopspring/decimal"
)

// Extractor reads a database catalog into a metadata snapshot.
type Extractor interface {
	Extract(ctx context.Context, db *sql.DB, config ExtractConfig) (*schemagraph.Snapshot, error)
}

// ExtractConfig contains configuration for schema extraction
type ExtractConfig struct {
	IncludeSchemas []string // Schema filter (PostgreSQL/MySQL)
	ExcludeSchemas []string // Schema exclusion (PostgreSQL/MySQL)
	IncludeTables  []string // Wildcard patterns matched against the table name or schema.table
	ExcludeTables  []string
}

// NewExtractor creates a new extractor for the specified database type
func NewExtractor(databaseType string) (Extractor, error) {
	if databaseType == "" {
		return nil, ErrEmptyDatabaseType
	}

	switch normalizeDatabaseType(databaseType) {
	case "postgresql":
		return NewPostgreSQLExtractor(), nil
	case "mysql":
		return NewMySQLExtractor(), nil
	case "sqlite":
		return NewSQLiteExtractor(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, databaseType)
	}
}

// ValidateExtractConfig validates the extraction configuration
func ValidateExtractConfig(config ExtractConfig) error {
	for _, includeSchema := range config.IncludeSchemas {
		if slices.Contains(config.ExcludeSchemas, includeSchema) {
			return ErrConflictingSchemaFilters
		}
	}

	for _, includeTable := range config.IncludeTables {
		if slices.Contains(config.ExcludeTables, includeTable) {
			return ErrConflictingTableFilters
		}
	}

	return nil
}

// ShouldIncludeSchema determines if a schema should be included based on filters.
// Schemaless tables (SQLite) are always included.
func ShouldIncludeSchema(schemaName string, includeSchemas, excludeSchemas []string) bool {
	if schemaName == "" {
		return true
	}

	if slices.Contains(excludeSchemas, schemaName) {
		return false
	}

	if len(includeSchemas) > 0 {
		return slices.Contains(includeSchemas, schemaName)
	}

	return true
}

// ShouldIncludeTable determines if a table should be included based on filters.
// Patterns are matched against both the bare and the qualified name.
func ShouldIncludeTable(schemaName, tableName string, includeTables, excludeTables []string) bool {
	fullName := schemagraph.QualifiedName(schemaName, tableName)
	matches := func(pattern string) bool {
		return MatchWildcard(pattern, tableName) || MatchWildcard(pattern, fullName)
	}

	if slices.ContainsFunc(excludeTables, matches) {
		return false
	}

	if len(includeTables) > 0 {
		return slices.ContainsFunc(includeTables, matches)
	}

	return true
}

// MatchWildcard performs simple wildcard matching with * character
func MatchWildcard(pattern, text string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == text
	}

	matched, err := filepath.Match(pattern, text)
	if err != nil {
		// Invalid pattern: fall back to exact match
		return pattern == text
	}
	return matched
}

// Common system schema names to exclude by default
const (
	PostgreSQLSystemSchemas = "information_schema,pg_catalog,pg_toast"
	MySQLSystemSchemas      = "information_schema,mysql,performance_schema,sys"
)

// GetDefaultExcludeSchemas returns default schemas to exclude for each database type
func GetDefaultExcludeSchemas(databaseType string) []string {
	switch normalizeDatabaseType(databaseType) {
	case "postgresql":
		return strings.Split(PostgreSQLSystemSchemas, ",")
	case "mysql":
		return strings.Split(MySQLSystemSchemas, ",")
	default:
		return []string{}
	}
}

// FilterSnapshot drops excluded tables from the snapshot along with every
// column, key and relationship that touches them.
func FilterSnapshot(snapshot *schemagraph.Snapshot, config ExtractConfig) {
	kept := make(map[string]bool)
	tables := snapshot.Tables[:0]
	for _, table := range snapshot.Tables {
		if !ShouldIncludeSchema(table.Schema, config.IncludeSchemas, config.ExcludeSchemas) ||
			!ShouldIncludeTable(table.Schema, table.Name, config.IncludeTables, config.ExcludeTables) {
			continue
		}
		kept[table.FullName()] = true
		tables = append(tables, table)
	}
	snapshot.Tables = tables

	snapshot.Columns = slices.DeleteFunc(snapshot.Columns, func(c schemagraph.ColumnInfo) bool {
		return !kept[c.TableFullName()]
	})
	snapshot.PrimaryKeys = slices.DeleteFunc(snapshot.PrimaryKeys, func(pk schemagraph.PrimaryKeyInfo) bool {
		return !kept[pk.TableFullName()]
	})
	snapshot.ForeignKeys = slices.DeleteFunc(snapshot.ForeignKeys, func(fk schemagraph.ForeignKeyInfo) bool {
		return !kept[fk.FromFullName()] || !kept[fk.ToFullName()]
	})
}

// keyColumnRow is one column of a primary key, in key order.
type keyColumnRow struct {
	schema, table, constraint, column string
}

// foreignKeyRow is one column pair of a foreign key, in key order.
type foreignKeyRow struct {
	constraint                        string
	fromSchema, fromTable, fromColumn string
	toSchema, toTable, toColumn       string
}

// groupPrimaryKeys folds ordered key rows into one entry per table.
func groupPrimaryKeys(rows []keyColumnRow) []schemagraph.PrimaryKeyInfo {
	var result []schemagraph.PrimaryKeyInfo
	index := make(map[string]int)

	for _, row := range rows {
		key := schemagraph.QualifiedName(row.schema, row.table)
		i, ok := index[key]
		if !ok {
			i = len(result)
			index[key] = i
			result = append(result, schemagraph.PrimaryKeyInfo{
				TableSchema:    row.schema,
				TableName:      row.table,
				ConstraintName: row.constraint,
			})
		}
		result[i].Columns = append(result[i].Columns, row.column)
	}

	return result
}

// groupForeignKeys folds ordered column pairs into one entry per constraint.
func groupForeignKeys(rows []foreignKeyRow) []schemagraph.ForeignKeyInfo {
	var result []schemagraph.ForeignKeyInfo
	index := make(map[string]int)

	for _, row := range rows {
		key := schemagraph.QualifiedName(row.fromSchema, row.fromTable) + "/" + row.constraint
		i, ok := index[key]
		if !ok {
			i = len(result)
			index[key] = i
			result = append(result, schemagraph.ForeignKeyInfo{
				ConstraintName: row.constraint,
				FromSchema:     row.fromSchema,
				FromTable:      row.fromTable,
				ToSchema:       row.toSchema,
				ToTable:        row.toTable,
			})
		}
		result[i].FromColumns = append(result[i].FromColumns, row.fromColumn)
		result[i].ToColumns = append(result[i].ToColumns, row.toColumn)
	}

	return result
}

var bytesPerMB = decimal.NewFromInt(1024 * 1024)

// sizeMB converts a byte count to megabytes rounded to two decimals.
func sizeMB(bytes sql.NullInt64) *float64 {
	if !bytes.Valid || bytes.Int64 < 0 {
		return nil
	}
	mb, _ := decimal.NewFromInt(bytes.Int64).Div(bytesPerMB).Round(2).Float64()
	return &mb
}

// rowCount treats negative planner estimates as unknown.
func rowCount(rows sql.NullInt64) *int64 {
	if !rows.Valid || rows.Int64 < 0 {
		return nil
	}
	v := rows.Int64
	return &v
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func queryError(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrQueryExecutionFailed, what, err)
}

func scanError(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrResultScanFailed, what, err)
}
