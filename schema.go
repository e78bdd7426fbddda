package schemagraph

// TableInfo is a table as reported by a metadata source
type TableInfo struct {
	Schema   string   `json:"schema" yaml:"schema"`
	Name     string   `json:"name" yaml:"name"`
	RowCount *int64   `json:"row_count,omitempty" yaml:"row_count,omitempty"` // Unknown when the catalog has no estimate
	SizeMB   *float64 `json:"size_mb,omitempty" yaml:"size_mb,omitempty"`
}

// FullName returns the graph id of the table (schema.table).
func (t TableInfo) FullName() string {
	return QualifiedName(t.Schema, t.Name)
}

// ColumnInfo is a column as reported by a metadata source
type ColumnInfo struct {
	TableSchema     string `json:"table_schema" yaml:"table_schema"`
	TableName       string `json:"table_name" yaml:"table_name"`
	Name            string `json:"name" yaml:"name"`
	SQLType         string `json:"sql_type" yaml:"sql_type"`
	IsNullable      bool   `json:"is_nullable" yaml:"is_nullable"`
	OrdinalPosition int    `json:"ordinal_position" yaml:"ordinal_position"`
	MaxLength       *int   `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Precision       *int   `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale           *int   `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// TableFullName returns the graph id of the owning table.
func (c ColumnInfo) TableFullName() string {
	return QualifiedName(c.TableSchema, c.TableName)
}

// FullName returns the graph id of the column (schema.table.column).
func (c ColumnInfo) FullName() string {
	return c.TableFullName() + "." + c.Name
}

// PrimaryKeyInfo is the ordered primary key of one table
type PrimaryKeyInfo struct {
	TableSchema    string   `json:"table_schema" yaml:"table_schema"`
	TableName      string   `json:"table_name" yaml:"table_name"`
	ConstraintName string   `json:"constraint_name" yaml:"constraint_name"`
	Columns        []string `json:"columns" yaml:"columns"`
}

// TableFullName returns the graph id of the owning table.
func (p PrimaryKeyInfo) TableFullName() string {
	return QualifiedName(p.TableSchema, p.TableName)
}

// ForeignKeyInfo is one declared foreign key constraint.
// FromColumns and ToColumns are positionally paired.
type ForeignKeyInfo struct {
	ConstraintName string   `json:"constraint_name" yaml:"constraint_name"`
	FromSchema     string   `json:"from_schema" yaml:"from_schema"`
	FromTable      string   `json:"from_table" yaml:"from_table"`
	FromColumns    []string `json:"from_columns" yaml:"from_columns"`
	ToSchema       string   `json:"to_schema" yaml:"to_schema"`
	ToTable        string   `json:"to_table" yaml:"to_table"`
	ToColumns      []string `json:"to_columns" yaml:"to_columns"`
}

// FromFullName returns the graph id of the referencing table.
func (f ForeignKeyInfo) FromFullName() string {
	return QualifiedName(f.FromSchema, f.FromTable)
}

// ToFullName returns the graph id of the referenced table.
func (f ForeignKeyInfo) ToFullName() string {
	return QualifiedName(f.ToSchema, f.ToTable)
}

// Snapshot is a point-in-time capture of a database's structural metadata.
// It is the only input the graph builder consumes.
type Snapshot struct {
	DatabaseName string           `json:"database_name" yaml:"database_name"`
	ServerName   string           `json:"server_name" yaml:"server_name"`
	Source       string           `json:"source,omitempty" yaml:"source,omitempty"` // Driver or importer that produced the snapshot
	Tables       []TableInfo      `json:"tables" yaml:"tables"`
	Columns      []ColumnInfo     `json:"columns" yaml:"columns"`
	PrimaryKeys  []PrimaryKeyInfo `json:"primary_keys" yaml:"primary_keys"`
	ForeignKeys  []ForeignKeyInfo `json:"foreign_keys" yaml:"foreign_keys"`
}

// QualifiedName joins schema and name into a graph id.
// Sources without schemas (SQLite) pass an empty schema.
func QualifiedName(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}
