package pull

import (
	"context"
	"database/sql"
	"slices"

	"github.com/shibukawa/schemagraph"
)

// PostgreSQLExtractor reads pg_catalog and information_schema.
type PostgreSQLExtractor struct{}

// NewPostgreSQLExtractor creates a new PostgreSQL extractor
func NewPostgreSQLExtractor() *PostgreSQLExtractor {
	return &PostgreSQLExtractor{}
}

// Extract implements Extractor.
func (e *PostgreSQLExtractor) Extract(ctx context.Context, db *sql.DB, config ExtractConfig) (*schemagraph.Snapshot, error) {
	config.ExcludeSchemas = slices.Concat(GetDefaultExcludeSchemas("postgresql"), config.ExcludeSchemas)

	snapshot := &schemagraph.Snapshot{Source: "postgresql"}

	err := db.QueryRowContext(ctx, postgresDatabaseQuery).Scan(&snapshot.DatabaseName, &snapshot.ServerName)
	if err != nil {
		return nil, queryError("database name", err)
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

// ExtractTables lists ordinary and partitioned tables with planner row
// estimates and total relation size.
func (e *PostgreSQLExtractor) ExtractTables(ctx context.Context, db *sql.DB) ([]schemagraph.TableInfo, error) {
	rows, err := db.QueryContext(ctx, postgresTablesQuery)
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

// ExtractColumns lists columns of every user table in ordinal order.
func (e *PostgreSQLExtractor) ExtractColumns(ctx context.Context, db *sql.DB) ([]schemagraph.ColumnInfo, error) {
	rows, err := db.QueryContext(ctx, postgresColumnsQuery)
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

// ExtractPrimaryKeys lists primary key columns in key order.
func (e *PostgreSQLExtractor) ExtractPrimaryKeys(ctx context.Context, db *sql.DB) ([]schemagraph.PrimaryKeyInfo, error) {
	rows, err := db.QueryContext(ctx, postgresPrimaryKeysQuery)
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

// ExtractForeignKeys pairs conkey and confkey positions so composite keys
// keep their column correspondence.
func (e *PostgreSQLExtractor) ExtractForeignKeys(ctx context.Context, db *sql.DB) ([]schemagraph.ForeignKeyInfo, error) {
	rows, err := db.QueryContext(ctx, postgresForeignKeysQuery)
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

const postgresDatabaseQuery = `
	SELECT current_database(), COALESCE(host(inet_server_addr()), 'localhost')
`

const postgresTablesQuery = `
	SELECT
		n.nspname,
		c.relname,
		c.reltuples::bigint,
		pg_total_relation_size(c.oid)
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relkind IN ('r', 'p')
	AND n.nspname NOT IN ('information_schema', 'pg_catalog')
	AND n.nspname NOT LIKE 'pg_toast%'
	AND n.nspname NOT LIKE 'pg_temp%'
	ORDER BY n.nspname, c.relname
`

const postgresColumnsQuery = `
	SELECT
		table_schema,
		table_name,
		column_name,
		data_type,
		is_nullable,
		ordinal_position,
		character_maximum_length,
		numeric_precision,
		numeric_scale
	FROM information_schema.columns
	WHERE table_schema NOT IN ('information_schema', 'pg_catalog')
	ORDER BY table_schema, table_name, ordinal_position
`

const postgresPrimaryKeysQuery = `
	SELECT
		tc.table_schema,
		tc.table_name,
		tc.constraint_name,
		kcu.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON kcu.constraint_schema = tc.constraint_schema
		AND kcu.constraint_name = tc.constraint_name
		AND kcu.table_name = tc.table_name
	WHERE tc.constraint_type = 'PRIMARY KEY'
	ORDER BY tc.table_schema, tc.table_name, kcu.ordinal_position
`

const postgresForeignKeysQuery = `
	SELECT
		con.conname,
		fn.nspname,
		fc.relname,
		fa.attname,
		tn.nspname,
		tc.relname,
		ta.attname
	FROM pg_constraint con
	CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(from_attnum, to_attnum, pos)
	JOIN pg_class fc ON fc.oid = con.conrelid
	JOIN pg_namespace fn ON fn.oid = fc.relnamespace
	JOIN pg_attribute fa ON fa.attrelid = con.conrelid AND fa.attnum = k.from_attnum
	JOIN pg_class tc ON tc.oid = con.confrelid
	JOIN pg_namespace tn ON tn.oid = tc.relnamespace
	JOIN pg_attribute ta ON ta.attrelid = con.confrelid AND ta.attnum = k.to_attnum
	WHERE con.contype = 'f'
	ORDER BY fn.nspname, fc.relname, con.conname, k.pos
`
