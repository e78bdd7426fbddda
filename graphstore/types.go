package graphstore

import "fmt"

// NodeType distinguishes table nodes from column nodes
type NodeType string

const (
	NodeTable  NodeType = "table"
	NodeColumn NodeType = "column"
)

// EdgeType distinguishes table-level foreign keys from their column pairs
type EdgeType string

const (
	// EdgeForeignKey connects two table nodes, one per distinct ordered table pair
	EdgeForeignKey EdgeType = "fk"
	// EdgeForeignKeyColumn connects two column nodes, one per column pair per constraint
	EdgeForeignKeyColumn EdgeType = "fk_col"
)

// Edge weights. Lower is a stronger relationship.
const (
	WeightForeignKey       = 1
	WeightForeignKeyColumn = 1
)

// TableAttrs is the payload of a table node
type TableAttrs struct {
	Schema     string   `json:"schema" yaml:"schema"`
	Name       string   `json:"name" yaml:"name"`
	RowCount   *int64   `json:"row_count" yaml:"row_count"`
	SizeMB     *float64 `json:"size_mb" yaml:"size_mb"`
	PrimaryKey []string `json:"primary_key" yaml:"primary_key"`
	Tags       []string `json:"tags" yaml:"tags"`
}

// ColumnAttrs is the payload of a column node
type ColumnAttrs struct {
	Table           string `json:"table" yaml:"table"` // Owning table id
	Name            string `json:"name" yaml:"name"`
	SQLType         string `json:"sql_type" yaml:"sql_type"`
	IsNullable      bool   `json:"is_nullable" yaml:"is_nullable"`
	IsPK            bool   `json:"is_pk" yaml:"is_pk"`
	IsFK            bool   `json:"is_fk" yaml:"is_fk"`
	OrdinalPosition int    `json:"ordinal_position" yaml:"ordinal_position"`
	MaxLength       *int   `json:"max_length" yaml:"max_length"`
	Precision       *int   `json:"precision" yaml:"precision"`
	Scale           *int   `json:"scale" yaml:"scale"`
}

// Node is a table or a column. Exactly one of Table and Column is set, matching Type.
type Node struct {
	ID     string       `json:"id" yaml:"id"`
	Type   NodeType     `json:"type" yaml:"type"`
	Table  *TableAttrs  `json:"table,omitempty" yaml:"table,omitempty"`
	Column *ColumnAttrs `json:"column,omitempty" yaml:"column,omitempty"`
}

// NewTableNode creates a table node.
func NewTableNode(id string, attrs TableAttrs) Node {
	return Node{ID: id, Type: NodeTable, Table: &attrs}
}

// NewColumnNode creates a column node.
func NewColumnNode(id string, attrs ColumnAttrs) Node {
	return Node{ID: id, Type: NodeColumn, Column: &attrs}
}

// EdgeAttrs is the payload shared by fk and fk_col edges.
//
// fk edges carry FromColumns/ToColumns (positionally paired) and Via, which
// alternates source and target column ids. fk_col edges carry FromTable and
// ToTable. Reverse is only set on traversal entries synthesized by the query
// engine and never persisted.
type EdgeAttrs struct {
	ConstraintName string   `json:"constraint_name" yaml:"constraint_name"`
	FromColumns    []string `json:"from_columns,omitempty" yaml:"from_columns,omitempty"`
	ToColumns      []string `json:"to_columns,omitempty" yaml:"to_columns,omitempty"`
	Via            []string `json:"via,omitempty" yaml:"via,omitempty"`
	FromTable      string   `json:"from_table,omitempty" yaml:"from_table,omitempty"`
	ToTable        string   `json:"to_table,omitempty" yaml:"to_table,omitempty"`
	Reverse        bool     `json:"reverse,omitempty" yaml:"reverse,omitempty"`
}

// Edge is a directed, weighted relationship between two nodes
type Edge struct {
	ID     string    `json:"id" yaml:"id"`
	FromID string    `json:"from_id" yaml:"from_id"`
	ToID   string    `json:"to_id" yaml:"to_id"`
	Type   EdgeType  `json:"type" yaml:"type"`
	Weight int       `json:"weight" yaml:"weight"`
	Attrs  EdgeAttrs `json:"data" yaml:"data"`
}

// ForeignKeyEdgeID returns the id of the table-level edge for a constraint.
// Constraint names are only unique per table, so the referencing table id
// is part of the key.
func ForeignKeyEdgeID(fromTable, constraint string) string {
	return "fk:" + fromTable + "." + constraint
}

// ForeignKeyColumnEdgeID returns the id of the i-th column edge of a constraint.
func ForeignKeyColumnEdgeID(fromTable, constraint string, i int) string {
	return fmt.Sprintf("fk_col:%s.%s:%d", fromTable, constraint, i)
}

// Stats counts the graph contents
type Stats struct {
	Tables              int `json:"tables" yaml:"tables"`
	Columns             int `json:"columns" yaml:"columns"`
	ForeignKeys         int `json:"foreign_keys" yaml:"foreign_keys"`
	ColumnRelationships int `json:"column_relationships" yaml:"column_relationships"`
}

// Well-known metadata keys
const (
	MetaDatabaseName  = "database_name"
	MetaServerName    = "server_name"
	MetaScanTimestamp = "scan_timestamp"
	MetaVersion       = "version"
	MetaScanID        = "scan_id"
	MetaSource        = "source"
)

// FormatVersion is the graph format version recorded on every build.
const FormatVersion = "1.0"

// ScanInfo is the typed view over the well-known metadata keys
type ScanInfo struct {
	DatabaseName  string `json:"database_name" yaml:"database_name"`
	ServerName    string `json:"server_name" yaml:"server_name"`
	ScanTimestamp string `json:"scan_timestamp" yaml:"scan_timestamp"`
	Version       string `json:"version" yaml:"version"`
	ScanID        string `json:"scan_id,omitempty" yaml:"scan_id,omitempty"`
	Source        string `json:"source,omitempty" yaml:"source,omitempty"`
}
