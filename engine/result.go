package engine

import "github.com/shibukawa/schemagraph/graphstore"

// PathResult is the outcome of a path search. Found is false for unresolved
// names, unreachable tables and fewer than two requested tables.
type PathResult struct {
	Found       bool              `json:"found" yaml:"found"`
	Path        []string          `json:"path" yaml:"path"`
	Edges       []graphstore.Edge `json:"edges" yaml:"edges"`
	TotalWeight int               `json:"total_weight" yaml:"total_weight"`
	Explanation string            `json:"explanation" yaml:"explanation"`
}

// JoinStep describes one JOIN clause of a generated query
type JoinStep struct {
	FromTable    string   `json:"from_table" yaml:"from_table"`
	FromAlias    string   `json:"from_alias" yaml:"from_alias"`
	ToTable      string   `json:"to_table" yaml:"to_table"`
	ToAlias      string   `json:"to_alias" yaml:"to_alias"`
	OnConditions []string `json:"on_conditions" yaml:"on_conditions"`
	Constraint   string   `json:"constraint" yaml:"constraint"`
}

// JoinResult is the outcome of join generation
type JoinResult struct {
	Success     bool       `json:"success" yaml:"success"`
	SQL         string     `json:"sql" yaml:"sql"`
	Tables      []string   `json:"tables" yaml:"tables"`
	Joins       []JoinStep `json:"joins" yaml:"joins"`
	Explanation string     `json:"explanation" yaml:"explanation"`
}

// Relationship summarizes an fk edge from the point of view of one table.
// Peer is the table on the other end.
type Relationship struct {
	Peer        string   `json:"peer" yaml:"peer"`
	Constraint  string   `json:"constraint" yaml:"constraint"`
	FromColumns []string `json:"from_columns" yaml:"from_columns"`
	ToColumns   []string `json:"to_columns" yaml:"to_columns"`
}

// ColumnSummary is a column as shown by explain and column listings
type ColumnSummary struct {
	ID string `json:"id" yaml:"id"`
	graphstore.ColumnAttrs `yaml:",inline"`
}

// TableExplanation is the detailed view of one table
type TableExplanation struct {
	TableName             string          `json:"table_name" yaml:"table_name"`
	Schema                string          `json:"schema" yaml:"schema"`
	Name                  string          `json:"name" yaml:"name"`
	PrimaryKey            []string        `json:"primary_key" yaml:"primary_key"`
	RowCount              *int64          `json:"row_count" yaml:"row_count"`
	SizeMB                *float64        `json:"size_mb" yaml:"size_mb"`
	Columns               []ColumnSummary `json:"columns" yaml:"columns"`
	OutgoingRelationships []Relationship  `json:"outgoing_relationships" yaml:"outgoing_relationships"`
	IncomingRelationships []Relationship  `json:"incoming_relationships" yaml:"incoming_relationships"`
	Tags                  []string        `json:"tags" yaml:"tags"`
}

// TableSummary is one row of the table listing
type TableSummary struct {
	Name     string   `json:"name" yaml:"name"` // Table id (schema.table)
	Schema   string   `json:"schema" yaml:"schema"`
	Table    string   `json:"table" yaml:"table"`
	RowCount *int64   `json:"row_count" yaml:"row_count"`
	SizeMB   *float64 `json:"size_mb" yaml:"size_mb"`
	PK       []string `json:"pk" yaml:"pk"`
	Tags     []string `json:"tags" yaml:"tags"`
}

// RelationshipSummary is one row of the relationship listing
type RelationshipSummary struct {
	FromTable   string   `json:"from_table" yaml:"from_table"`
	ToTable     string   `json:"to_table" yaml:"to_table"`
	Constraint  string   `json:"constraint" yaml:"constraint"`
	FromColumns []string `json:"from_columns" yaml:"from_columns"`
	ToColumns   []string `json:"to_columns" yaml:"to_columns"`
}
