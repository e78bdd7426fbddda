package engine

import (
	"container/heap"
	"context"
	"fmt"
	"strings"

	"github.com/shibukawa/schemagraph/graphstore"
)

type queueItem struct {
	dist int
	id   string
}

// pathQueue is a min-heap on (distance, node id)
type pathQueue []queueItem

func (q pathQueue) Len() int { return len(q) }

func (q pathQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].id < q[j].id
}

func (q pathQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pathQueue) Push(x any) { *q = append(*q, x.(queueItem)) }

func (q *pathQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}

type hop struct {
	from string
	edge graphstore.Edge
}

func notFound(explanation string) *PathResult {
	return &PathResult{
		Path:        []string{},
		Edges:       []graphstore.Edge{},
		Explanation: explanation,
	}
}

// FindPath returns the lowest-weight fk path between two tables. Edges may
// be traversed against their declared direction; such hops carry
// Attrs.Reverse.
func (e *Engine) FindPath(ctx context.Context, fromTable, toTable string) (*PathResult, error) {
	from, okFrom, err := e.ResolveTable(ctx, fromTable)
	if err != nil {
		return nil, err
	}
	to, okTo, err := e.ResolveTable(ctx, toTable)
	if err != nil {
		return nil, err
	}
	if !okFrom || !okTo {
		return notFound("One or both tables not found in the graph."), nil
	}

	return e.shortestPath(from, to), nil
}

func (e *Engine) shortestPath(from, to string) *PathResult {
	if from == to {
		return &PathResult{
			Found:       true,
			Path:        []string{from},
			Edges:       []graphstore.Edge{},
			Explanation: "Same table specified for source and target.",
		}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	distances := map[string]int{from: 0}
	previous := make(map[string]hop)
	visited := make(map[string]bool)
	queue := &pathQueue{{dist: 0, id: from}}

	for queue.Len() > 0 {
		current := heap.Pop(queue).(queueItem)
		if visited[current.id] {
			continue
		}
		visited[current.id] = true

		if current.id == to {
			break
		}

		for _, neighbor := range e.adjacency[current.id] {
			if visited[neighbor.ID] {
				continue
			}

			dist := current.dist + neighbor.Edge.Weight
			if known, ok := distances[neighbor.ID]; !ok || dist < known {
				distances[neighbor.ID] = dist
				previous[neighbor.ID] = hop{from: current.id, edge: neighbor.Edge}
				heap.Push(queue, queueItem{dist: dist, id: neighbor.ID})
			}
		}
	}

	if _, ok := previous[to]; !ok {
		return notFound(fmt.Sprintf("No path found between %s and %s.", from, to))
	}

	var (
		path  = []string{to}
		edges []graphstore.Edge
	)
	for current := to; current != from; {
		h := previous[current]
		edges = append(edges, h.edge)
		path = append(path, h.from)
		current = h.from
	}

	reverseSlice(path)
	reverseSlice(edges)

	return &PathResult{
		Found:       true,
		Path:        path,
		Edges:       edges,
		TotalWeight: distances[to],
		Explanation: explainPath(path, edges),
	}
}

// FindMultiPath connects tables in the given order by chaining FindPath
// between consecutive pairs. The route depends on input order; it is not a
// minimal connector over the set.
func (e *Engine) FindMultiPath(ctx context.Context, tables []string) (*PathResult, error) {
	if len(tables) < 2 {
		result := notFound("Need at least two tables to find a path.")
		result.Path = append(result.Path, tables...)
		return result, nil
	}

	resolved := make([]string, len(tables))
	var missing []string
	for i, name := range tables {
		id, ok, err := e.ResolveTable(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, name)
			continue
		}
		resolved[i] = id
	}
	if len(missing) > 0 {
		return notFound("Tables not found: " + strings.Join(missing, ", ")), nil
	}

	result := &PathResult{
		Found: true,
		Path:  []string{resolved[0]},
		Edges: []graphstore.Edge{},
	}

	for i := 0; i < len(resolved)-1; i++ {
		segment := e.shortestPath(resolved[i], resolved[i+1])
		if !segment.Found {
			result.Found = false
			result.Explanation = fmt.Sprintf("No path found between %s and %s.", resolved[i], resolved[i+1])
			return result, nil
		}

		// The junction node ends the previous segment
		result.Path = append(result.Path, segment.Path[1:]...)
		result.Edges = append(result.Edges, segment.Edges...)
		result.TotalWeight += segment.TotalWeight
	}

	result.Explanation = explainPath(result.Path, result.Edges)

	return result, nil
}

func explainPath(path []string, edges []graphstore.Edge) string {
	switch len(path) {
	case 0:
		return "Empty path."
	case 1:
		return "Single table: " + path[0]
	}

	var sb strings.Builder
	sb.WriteString("Path: " + path[0])

	for i, edge := range edges {
		arrow := "→"
		if edge.Attrs.Reverse {
			arrow = "←"
		}
		constraint := edge.Attrs.ConstraintName
		if constraint == "" {
			constraint = "relationship"
		}
		fmt.Fprintf(&sb, "\n  %s %s (via %s)", arrow, path[i+1], constraint)
	}

	return sb.String()
}

func reverseSlice[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
