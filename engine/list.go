package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/shibukawa/schemagraph/graphstore"
)

// ListTables summarizes every table, sorted by id.
func (e *Engine) ListTables(ctx context.Context) ([]TableSummary, error) {
	nodes, err := e.store.GetNodesByType(ctx, graphstore.NodeTable)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]TableSummary, 0, len(nodes))
	for _, node := range nodes {
		tables = append(tables, TableSummary{
			Name:     node.ID,
			Schema:   node.Table.Schema,
			Table:    node.Table.Name,
			RowCount: node.Table.RowCount,
			SizeMB:   node.Table.SizeMB,
			PK:       nonNil(node.Table.PrimaryKey),
			Tags:     nonNil(node.Table.Tags),
		})
	}

	slices.SortFunc(tables, func(a, b TableSummary) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return tables, nil
}

// ListRelationships summarizes every fk edge, sorted by (from, to).
func (e *Engine) ListRelationships(ctx context.Context) ([]RelationshipSummary, error) {
	edges, err := e.store.GetEdgesByType(ctx, graphstore.EdgeForeignKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}

	slices.SortStableFunc(edges, func(a, b graphstore.Edge) int {
		return cmp.Or(cmp.Compare(a.FromID, b.FromID), cmp.Compare(a.ToID, b.ToID))
	})

	relationships := make([]RelationshipSummary, 0, len(edges))
	for _, edge := range edges {
		relationships = append(relationships, RelationshipSummary{
			FromTable:   edge.FromID,
			ToTable:     edge.ToID,
			Constraint:  edge.Attrs.ConstraintName,
			FromColumns: nonNil(edge.Attrs.FromColumns),
			ToColumns:   nonNil(edge.Attrs.ToColumns),
		})
	}

	return relationships, nil
}

// ListColumns returns every column, sorted by id.
func (e *Engine) ListColumns(ctx context.Context) ([]ColumnSummary, error) {
	nodes, err := e.store.GetNodesByType(ctx, graphstore.NodeColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}

	columns := make([]ColumnSummary, 0, len(nodes))
	for _, node := range nodes {
		columns = append(columns, ColumnSummary{ID: node.ID, ColumnAttrs: *node.Column})
	}

	slices.SortFunc(columns, func(a, b ColumnSummary) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return columns, nil
}

// Stats reports graph counts together with the scan metadata.
func (e *Engine) Stats(ctx context.Context) (graphstore.Stats, graphstore.ScanInfo, error) {
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return graphstore.Stats{}, graphstore.ScanInfo{}, err
	}

	info, err := e.store.ScanInfo(ctx)
	if err != nil {
		return graphstore.Stats{}, graphstore.ScanInfo{}, err
	}

	return stats, info, nil
}
