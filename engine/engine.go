// Package engine answers connectivity questions over a built schema graph:
// shortest foreign-key paths between tables, JOIN synthesis, and table
// explanations.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/shibukawa/schemagraph/graphstore"
)

// Neighbor is one traversal entry of the adjacency index
type Neighbor struct {
	ID   string
	Edge graphstore.Edge
}

// Engine owns an in-memory adjacency index over the store's fk edges.
// Queries may run concurrently; Refresh is exclusive.
type Engine struct {
	store *graphstore.Store

	mu        sync.RWMutex
	adjacency map[string][]Neighbor
}

// New creates an engine over store and builds the adjacency index.
func New(ctx context.Context, store *graphstore.Store) (*Engine, error) {
	e := &Engine{store: store}
	if err := e.Refresh(ctx); err != nil {
		return nil, err
	}

	return e, nil
}

// Store returns the underlying graph store.
func (e *Engine) Store() *graphstore.Store {
	return e.store
}

// Refresh rebuilds the adjacency index from the store. Call it after every
// rebuild of the graph; the index is a point-in-time cache.
func (e *Engine) Refresh(ctx context.Context) error {
	edges, err := e.store.GetEdgesByType(ctx, graphstore.EdgeForeignKey)
	if err != nil {
		return fmt.Errorf("failed to load foreign key edges: %w", err)
	}

	adjacency := make(map[string][]Neighbor)
	for _, edge := range edges {
		adjacency[edge.FromID] = append(adjacency[edge.FromID], Neighbor{ID: edge.ToID, Edge: edge})
		adjacency[edge.ToID] = append(adjacency[edge.ToID], Neighbor{ID: edge.FromID, Edge: reverseEdge(edge)})
	}

	e.mu.Lock()
	e.adjacency = adjacency
	e.mu.Unlock()

	return nil
}

// Neighbors returns a copy of the adjacency entries of a node.
func (e *Engine) Neighbors(nodeID string) []Neighbor {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return append([]Neighbor(nil), e.adjacency[nodeID]...)
}

// reverseEdge synthesizes the traversal entry walking edge from its target
// back to its source. Column lists keep their original meaning.
func reverseEdge(edge graphstore.Edge) graphstore.Edge {
	attrs := edge.Attrs
	attrs.Reverse = true

	return graphstore.Edge{
		ID:     "rev:" + edge.ID,
		FromID: edge.ToID,
		ToID:   edge.FromID,
		Type:   edge.Type,
		Weight: edge.Weight,
		Attrs:  attrs,
	}
}
