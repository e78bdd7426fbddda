package pull

import (
	"context"
	"database/sql"
	"slices"

	"github.com/shibukawa/schemagraph"
)

// MySQLExtractor reads information_schema. MySQL databases map to schemas.
type MySQLExtractor struct{}

// NewMySQLExtractor creates a new MySQL extractor
func NewMySQLExtractor() *MySQLExtractor {
	return &MySQLExtractor{}
}

// Extract implements Extractor. Without an explicit schema filter only the
// connected database is read.
func (e *MySQLExtractor) Extract(ctx context.Context, db *sql.DB, config ExtractConfig) (*schemagraph.Snapshot, error) {
	config.ExcludeSchemas = slices.Concat(GetDefaultExcludeSchemas("mysql"), config.ExcludeSchemas)

	snapshot := &schemagraph.Snapshot{Source: "mysql"}

	var databaseName sql.NullString
	err := db.QueryRowContext(ctx, mysqlDatabaseQuery).Scan(&databaseName, &snapshot.ServerName)
	if err != nil {
		return nil, queryError("database name", err)
	}
	snapshot.DatabaseName = databaseName.String

	if len(config.IncludeSchemas) == 0 && databaseName.Valid {
		config.IncludeSchemas = []string{databaseName.String}
	}

	if snapshot.Tables, err = e.ExtractTables(ctx, db); err != nil {
		return nil, err
	}
	if snapshot.Columns, err = e.ExtractColumns(ctx, db); err != nil {
		return nil, err
	}
	if snapshot.PrimaryKeys, err = e.ExtractPrimaryKeys(ctx, db); err != nil {
		return nil, err
	}
	if snapshot.ForeignKeys, err = e.ExtractForeignKeys(ctx, db); err != nil {
		return nil, err
	}

	FilterSnapshot(snapshot, config)

	return snapshot, nil
}

// ExtractTables lists base tables with their row estimate and data+index size.
func (e *MySQLExtractor) ExtractTables(ctx context.Context, db *sql.DB) ([]schemagraph.TableInfo, error) {
	rows, err := db.QueryContext(ctx, mysqlTablesQuery)
	if err != nil {
		return nil, queryError("tables", err)
	}
	defer rows.Close()

	var tables []schemagraph.TableInfo
	for rows.Next() {
		var table schemagraph.TableInfo
		var estimate, bytes sql.NullInt64

		if err := rows.Scan(&table.Schema, &table.Name, &estimate, &bytes); err != nil {
			return nil, scanError("tables", err)
		}

		table.RowCount = rowCount(estimate)
		table.SizeMB = sizeMB(bytes)
		tables = append(tables, table)
	}

	if err := rows.Err(); err != nil {
		return nil, queryError("tables", err)
	}

	return tables, nil
}

// ExtractColumns lists columns of every base table in ordinal order.
func (e *MySQLExtractor) ExtractColumns(ctx context.Context, db *sql.DB) ([]schemagraph.ColumnInfo, error) {
	rows, err := db.QueryContext(ctx, mysqlColumnsQuery)
	if err != nil {
		return nil, queryError("columns", err)
	}
	defer rows.Close()

	var columns []schemagraph.ColumnInfo
	for rows.Next() {
		var col schemagraph.ColumnInfo
		var isNullable string
		var maxLength, precision, scale sql.NullInt64

		err := rows.Scan(
			&col.TableSchema,
			&col.TableName,
			&col.Name,
			&col.SQLType,
			&isNullable,
			&col.OrdinalPosition,
			&maxLength,
			&precision,
			&scale,
		)
		if err != nil {
			return nil, scanError("columns", err)
		}

		col.IsNullable = isNullable == "YES"
		col.MaxLength = nullableInt(maxLength)
		col.Precision = nullableInt(precision)
		col.Scale = nullableInt(scale)
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, queryError("columns", err)
	}

	return columns, nil
}

// ExtractPrimaryKeys lists PRIMARY key columns in key order.
func (e *MySQLExtractor) ExtractPrimaryKeys(ctx context.Context, db *sql.DB) ([]schemagraph.PrimaryKeyInfo, error) {
	rows, err := db.QueryContext(ctx, mysqlPrimaryKeysQuery)
	if err != nil {
		return nil, queryError("primary keys", err)
	}
	defer rows.Close()

	var keyRows []keyColumnRow
	for rows.Next() {
		var row keyColumnRow
		if err := rows.Scan(&row.schema, &row.table, &row.constraint, &row.column); err != nil {
			return nil, scanError("primary keys", err)
		}
		keyRows = append(keyRows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, queryError("primary keys", err)
	}

	return groupPrimaryKeys(keyRows), nil
}

// ExtractForeignKeys lists referencing column pairs grouped by constraint.
func (e *MySQLExtractor) ExtractForeignKeys(ctx context.Context, db *sql.DB) ([]schemagraph.ForeignKeyInfo, error) {
	rows, err := db.QueryContext(ctx, mysqlForeignKeysQuery)
	if err != nil {
		return nil, queryError("foreign keys", err)
	}
	defer rows.Close()

	var fkRows []foreignKeyRow
	for rows.Next() {
		var row foreignKeyRow
		err := rows.Scan(
			&row.constraint,
			&row.fromSchema,
			&row.fromTable,
			&row.fromColumn,
			&row.toSchema,
			&row.toTable,
			&row.toColumn,
		)
		if err != nil {
			return nil, scanError("foreign keys", err)
		}
		fkRows = append(fkRows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, queryError("foreign keys", err)
	}

	return groupForeignKeys(fkRows), nil
}

const mysqlDatabaseQuery = `SELECT DATABASE(), @@hostname`

const mysqlTablesQuery = `
	SELECT
		TABLE_SCHEMA,
		TABLE_NAME,
		TABLE_ROWS,
		DATA_LENGTH + INDEX_LENGTH
	FROM information_schema.TABLES
	WHERE TABLE_TYPE = 'BASE TABLE'
	AND TABLE_SCHEMA NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
	ORDER BY TABLE_SCHEMA, TABLE_NAME
`

const mysqlColumnsQuery = `
	SELECT
		c.TABLE_SCHEMA,
		c.TABLE_NAME,
		c.COLUMN_NAME,
		c.DATA_TYPE,
		c.IS_NULLABLE,
		c.ORDINAL_POSITION,
		c.CHARACTER_MAXIMUM_LENGTH,
		c.NUMERIC_PRECISION,
		c.NUMERIC_SCALE
	FROM information_schema.COLUMNS c
	JOIN information_schema.TABLES t
		ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
	WHERE t.TABLE_TYPE = 'BASE TABLE'
	AND c.TABLE_SCHEMA NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
	ORDER BY c.TABLE_SCHEMA, c.TABLE_NAME, c.ORDINAL_POSITION
`

const mysqlPrimaryKeysQuery = `
	SELECT
		TABLE_SCHEMA,
		TABLE_NAME,
		CONSTRAINT_NAME,
		COLUMN_NAME
	FROM information_schema.KEY_COLUMN_USAGE
	WHERE CONSTRAINT_NAME = 'PRIMARY'
	AND TABLE_SCHEMA NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
	ORDER BY TABLE_SCHEMA, TABLE_NAME, ORDINAL_POSITION
`

const mysqlForeignKeysQuery = `
	SELECT
		CONSTRAINT_NAME,
		TABLE_SCHEMA,
		TABLE_NAME,
		COLUMN_NAME,
		REFERENCED_TABLE_SCHEMA,
		REFERENCED_TABLE_NAME,
		REFERENCED_COLUMN_NAME
	FROM information_schema.KEY_COLUMN_USAGE
	WHERE REFERENCED_TABLE_NAME IS NOT NULL
	AND TABLE_SCHEMA NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
	ORDER BY TABLE_SCHEMA, TABLE_NAME, CONSTRAINT_NAME, ORDINAL_POSITION
`
