package engine

import (
	"context"
	"fmt"

	"github.com/shibukawa/schemagraph/graphstore"
	"golang.org/x/text/cases"
)

// ResolveTable converts a user supplied name into a table id. An exact id
// wins; otherwise the first table in id order whose short name matches
// case-insensitively is used, so ambiguous short names across schemas
// resolve to the lexicographically first id.
func (e *Engine) ResolveTable(ctx context.Context, name string) (string, bool, error) {
	node, ok, err := e.store.GetNode(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	if ok && node.Type == graphstore.NodeTable {
		return node.ID, true, nil
	}

	tables, err := e.store.GetNodesByType(ctx, graphstore.NodeTable)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve %s: %w", name, err)
	}

	fold := cases.Fold()
	want := fold.String(name)
	for _, table := range tables {
		if fold.String(table.Table.Name) == want {
			return table.ID, true, nil
		}
	}

	return "", false, nil
}
