package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/shibukawa/schemagraph/graphstore"
)

// ExplainTable describes a table, its columns and its fk relationships.
// ok is false when name does not resolve.
func (e *Engine) ExplainTable(ctx context.Context, name string) (*TableExplanation, bool, error) {
	id, ok, err := e.ResolveTable(ctx, name)
	if err != nil || !ok {
		return nil, false, err
	}

	node, ok, err := e.store.GetNode(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load table %s: %w", id, err)
	}
	if !ok || node.Table == nil {
		return nil, false, nil
	}

	columns, err := e.tableColumns(ctx, id)
	if err != nil {
		return nil, false, err
	}

	edges, err := e.store.GetEdgesByType(ctx, graphstore.EdgeForeignKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load relationships of %s: %w", id, err)
	}

	explanation := &TableExplanation{
		TableName:             id,
		Schema:                node.Table.Schema,
		Name:                  node.Table.Name,
		PrimaryKey:            nonNil(node.Table.PrimaryKey),
		RowCount:              node.Table.RowCount,
		SizeMB:                node.Table.SizeMB,
		Columns:               columns,
		OutgoingRelationships: []Relationship{},
		IncomingRelationships: []Relationship{},
		Tags:                  nonNil(node.Table.Tags),
	}

	for _, edge := range edges {
		switch id {
		case edge.FromID:
			explanation.OutgoingRelationships = append(explanation.OutgoingRelationships, relationship(edge.ToID, edge))
		case edge.ToID:
			explanation.IncomingRelationships = append(explanation.IncomingRelationships, relationship(edge.FromID, edge))
		}
	}

	return explanation, true, nil
}

func (e *Engine) tableColumns(ctx context.Context, tableID string) ([]ColumnSummary, error) {
	nodes, err := e.store.GetNodesByType(ctx, graphstore.NodeColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to load columns of %s: %w", tableID, err)
	}

	columns := []ColumnSummary{}
	for _, node := range nodes {
		if node.Column.Table == tableID {
			columns = append(columns, ColumnSummary{ID: node.ID, ColumnAttrs: *node.Column})
		}
	}

	slices.SortStableFunc(columns, func(a, b ColumnSummary) int {
		return cmp.Compare(a.OrdinalPosition, b.OrdinalPosition)
	})

	return columns, nil
}

func relationship(peer string, edge graphstore.Edge) Relationship {
	return Relationship{
		Peer:        peer,
		Constraint:  edge.Attrs.ConstraintName,
		FromColumns: nonNil(edge.Attrs.FromColumns),
		ToColumns:   nonNil(edge.Attrs.ToColumns),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
