package pull

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/shibukawa/schemagraph"
)

// SQLiteExtractor reads sqlite_master and the table pragmas. SQLite tables
// have no schema, so their ids are bare names.
type SQLiteExtractor struct{}

// NewSQLiteExtractor creates a new SQLite extractor
func NewSQLiteExtractor() *SQLiteExtractor {
	return &SQLiteExtractor{}
}

var sqliteTypeArgs = regexp.MustCompile(`\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)`)

// Extract implements Extractor.
func (e *SQLiteExtractor) Extract(ctx context.Context, db *sql.DB, config ExtractConfig) (*schemagraph.Snapshot, error) {
	snapshot := &schemagraph.Snapshot{Source: "sqlite", ServerName: "localhost"}

	var file string
	err := db.QueryRowContext(ctx, `SELECT file FROM pragma_database_list WHERE name = 'main'`).Scan(&file)
	if err != nil {
		return nil, queryError("database name", err)
	}
	snapshot.DatabaseName = "main"
	if file != "" {
		snapshot.DatabaseName = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}

	names, err := e.tableNames(ctx, db)
	if err != nil {
		return nil, err
	}

	primaryKeys := make(map[string][]string)
	for _, name := range names {
		table := schemagraph.TableInfo{Name: name}

		var count int64
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdentifier(name)).Scan(&count); err != nil {
			return nil, queryError("row count of "+name, err)
		}
		table.RowCount = &count
		snapshot.Tables = append(snapshot.Tables, table)

		columns, pk, err := e.ExtractColumns(ctx, db, name)
		if err != nil {
			return nil, err
		}
		snapshot.Columns = append(snapshot.Columns, columns...)

		if len(pk) > 0 {
			primaryKeys[name] = pk
			snapshot.PrimaryKeys = append(snapshot.PrimaryKeys, schemagraph.PrimaryKeyInfo{
				TableName:      name,
				ConstraintName: "pk_" + name,
				Columns:        pk,
			})
		}
	}

	for _, name := range names {
		fks, err := e.ExtractForeignKeys(ctx, db, name, primaryKeys)
		if err != nil {
			return nil, err
		}
		snapshot.ForeignKeys = append(snapshot.ForeignKeys, fks...)
	}

	FilterSnapshot(snapshot, config)

	return snapshot, nil
}

func (e *SQLiteExtractor) tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, queryError("tables", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, scanError("tables", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, queryError("tables", err)
	}

	return names, nil
}

// ExtractColumns returns the columns of a table and its primary key columns
// in key order.
func (e *SQLiteExtractor) ExtractColumns(ctx context.Context, db *sql.DB, tableName string) ([]schemagraph.ColumnInfo, []string, error) {
	rows, err := db.QueryContext(ctx, `SELECT cid, name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, tableName)
	if err != nil {
		return nil, nil, queryError("columns of "+tableName, err)
	}
	defer rows.Close()

	type keyPart struct {
		position int
		column   string
	}

	var columns []schemagraph.ColumnInfo
	var keyParts []keyPart
	for rows.Next() {
		var cid, notNull, pk int
		col := schemagraph.ColumnInfo{TableName: tableName}

		if err := rows.Scan(&cid, &col.Name, &col.SQLType, &notNull, &pk); err != nil {
			return nil, nil, scanError("columns of "+tableName, err)
		}

		col.OrdinalPosition = cid + 1
		// primary key columns are reported as NOT NULL
		col.IsNullable = notNull == 0 && pk == 0
		ApplyDeclaredSize(&col)
		columns = append(columns, col)

		if pk > 0 {
			keyParts = append(keyParts, keyPart{position: pk, column: col.Name})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, nil, queryError("columns of "+tableName, err)
	}

	slices.SortFunc(keyParts, func(a, b keyPart) int {
		return cmp.Compare(a.position, b.position)
	})

	pk := make([]string, 0, len(keyParts))
	for _, part := range keyParts {
		pk = append(pk, part.column)
	}

	return columns, pk, nil
}

// ExtractForeignKeys lists the foreign keys declared on a table. A reference
// without target columns points at the target's primary key.
func (e *SQLiteExtractor) ExtractForeignKeys(ctx context.Context, db *sql.DB, tableName string, primaryKeys map[string][]string) ([]schemagraph.ForeignKeyInfo, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, seq, "table", "from", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`, tableName)
	if err != nil {
		return nil, queryError("foreign keys of "+tableName, err)
	}
	defer rows.Close()

	var fkRows []foreignKeyRow
	for rows.Next() {
		var id, seq int
		var target, from string
		var to sql.NullString

		if err := rows.Scan(&id, &seq, &target, &from, &to); err != nil {
			return nil, scanError("foreign keys of "+tableName, err)
		}

		toColumn := to.String
		if !to.Valid || toColumn == "" {
			if pk := primaryKeys[target]; seq < len(pk) {
				toColumn = pk[seq]
			}
		}

		fkRows = append(fkRows, foreignKeyRow{
			constraint: fmt.Sprintf("fk_%s_%d", tableName, id),
			fromTable:  tableName,
			fromColumn: from,
			toTable:    target,
			toColumn:   toColumn,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, queryError("foreign keys of "+tableName, err)
	}

	return groupForeignKeys(fkRows), nil
}

// ApplyDeclaredSize fills length, precision and scale from VARCHAR(n) and
// DECIMAL(p,s) style arguments of the declared type.
func ApplyDeclaredSize(col *schemagraph.ColumnInfo) {
	match := sqliteTypeArgs.FindStringSubmatch(col.SQLType)
	if match == nil {
		return
	}

	first, _ := strconv.Atoi(match[1])
	upper := strings.ToUpper(col.SQLType)

	switch {
	case strings.Contains(upper, "CHAR"), strings.Contains(upper, "TEXT"), strings.Contains(upper, "CLOB"):
		col.MaxLength = &first
	case strings.Contains(upper, "DEC"), strings.Contains(upper, "NUM"):
		col.Precision = &first
		if match[2] != "" {
			second, _ := strconv.Atoi(match[2])
			col.Scale = &second
		}
	}
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
