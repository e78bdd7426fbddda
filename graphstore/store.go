// Package graphstore persists the schema graph (nodes, edges and scan
// metadata) in a SQLite file.
package graphstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS nodes (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS edges (
    id TEXT PRIMARY KEY,
    from_id TEXT NOT NULL,
    to_id TEXT NOT NULL,
    type TEXT NOT NULL,
    weight INTEGER NOT NULL DEFAULT 1,
    data TEXT NOT NULL,
    FOREIGN KEY (from_id) REFERENCES nodes(id),
    FOREIGN KEY (to_id) REFERENCES nodes(id)
);
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(type);
`

const (
	nodeColumns = "id, type, data"
	edgeColumns = "id, from_id, to_id, type, weight, data"
)

// Store is the durable owner of the graph. Every mutating call commits
// before it returns.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the graph file at path.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn = path + "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store %s: %w", path, err)
	}

	// Each in-memory connection is its own database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// New wraps an existing handle and ensures the graph tables exist.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("failed to initialize graph schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Clear erases all nodes, edges and metadata.
func (s *Store) Clear(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"edges", "nodes", "metadata"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// AddNode inserts or fully replaces a node.
func (s *Store) AddNode(ctx context.Context, node Node) error {
	return s.AddNodes(ctx, []Node{node})
}

// AddNodes inserts or replaces nodes in a single transaction.
func (s *Store) AddNodes(ctx context.Context, nodes []Node) error {
	if len(nodes) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO nodes (id, type, data) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare node insert: %w", err)
		}
		defer stmt.Close()

		for _, node := range nodes {
			data, err := encodeNode(node)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, node.ID, string(node.Type), data); err != nil {
				return fmt.Errorf("failed to insert node %s: %w", node.ID, err)
			}
		}
		return nil
	})
}

// AddEdge inserts or fully replaces an edge.
func (s *Store) AddEdge(ctx context.Context, edge Edge) error {
	return s.AddEdges(ctx, []Edge{edge})
}

// AddEdges inserts or replaces edges in a single transaction.
func (s *Store) AddEdges(ctx context.Context, edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO edges (id, from_id, to_id, type, weight, data) VALUES (?, ?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare edge insert: %w", err)
		}
		defer stmt.Close()

		for _, edge := range edges {
			if edge.ID == "" || edge.FromID == "" || edge.ToID == "" {
				return fmt.Errorf("%w: %q", ErrInvalidEdge, edge.ID)
			}
			data, err := json.Marshal(edge.Attrs)
			if err != nil {
				return fmt.Errorf("failed to encode edge %s: %w", edge.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, edge.ID, edge.FromID, edge.ToID, string(edge.Type), edge.Weight, string(data)); err != nil {
				return fmt.Errorf("failed to insert edge %s: %w", edge.ID, err)
			}
		}
		return nil
	})
}

// GetNode returns the node with the given id. An absent id is reported as
// ok == false, not as an error.
func (s *Store) GetNode(ctx context.Context, id string) (*Node, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE id = ?", id)

	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return node, true, nil
}

// GetNodesByType returns every node of the given type, ordered by id.
func (s *Store) GetNodesByType(ctx context.Context, nodeType NodeType) ([]Node, error) {
	return s.queryNodes(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE type = ? ORDER BY id", string(nodeType))
}

// GetAllNodes returns every node, ordered by id.
func (s *Store) GetAllNodes(ctx context.Context) ([]Node, error) {
	return s.queryNodes(ctx, "SELECT "+nodeColumns+" FROM nodes ORDER BY id")
}

// GetEdge returns the edge with the given id.
func (s *Store) GetEdge(ctx context.Context, id string) (*Edge, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+edgeColumns+" FROM edges WHERE id = ?", id)

	edge, err := scanEdge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return edge, true, nil
}

// GetEdgesFrom returns edges whose source is nodeID.
func (s *Store) GetEdgesFrom(ctx context.Context, nodeID string) ([]Edge, error) {
	return s.queryEdges(ctx, "SELECT "+edgeColumns+" FROM edges WHERE from_id = ? ORDER BY id", nodeID)
}

// GetEdgesTo returns edges whose target is nodeID.
func (s *Store) GetEdgesTo(ctx context.Context, nodeID string) ([]Edge, error) {
	return s.queryEdges(ctx, "SELECT "+edgeColumns+" FROM edges WHERE to_id = ? ORDER BY id", nodeID)
}

// GetEdgesForNode returns edges touching nodeID in either direction.
func (s *Store) GetEdgesForNode(ctx context.Context, nodeID string) ([]Edge, error) {
	return s.queryEdges(ctx, "SELECT "+edgeColumns+" FROM edges WHERE from_id = ? OR to_id = ? ORDER BY id", nodeID, nodeID)
}

// GetEdgesByType returns every edge of the given type.
func (s *Store) GetEdgesByType(ctx context.Context, edgeType EdgeType) ([]Edge, error) {
	return s.queryEdges(ctx, "SELECT "+edgeColumns+" FROM edges WHERE type = ? ORDER BY id", string(edgeType))
}

// GetAllEdges returns every edge.
func (s *Store) GetAllEdges(ctx context.Context) ([]Edge, error) {
	return s.queryEdges(ctx, "SELECT "+edgeColumns+" FROM edges ORDER BY id")
}

// SetMetadata stores value (JSON encoded) under key. Last write wins.
func (s *Store) SetMetadata(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode metadata %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, "INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)", key, string(data))
	if err != nil {
		return fmt.Errorf("failed to store metadata %s: %w", key, err)
	}

	return nil
}

// GetMetadata returns the decoded value stored under key.
func (s *Store) GetMetadata(ctx context.Context, key string) (any, bool, error) {
	var raw string

	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read metadata %s: %w", key, err)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, false, fmt.Errorf("%w: metadata %s: %v", ErrCorruptRecord, key, err)
	}

	return value, true, nil
}

// AllMetadata returns every metadata entry.
func (s *Store) AllMetadata(ctx context.Context) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	defer rows.Close()

	result := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("%w: metadata %s: %v", ErrCorruptRecord, key, err)
		}
		result[key] = value
	}

	return result, rows.Err()
}

// ScanInfo reads the well-known metadata keys. Missing keys stay empty.
func (s *Store) ScanInfo(ctx context.Context) (ScanInfo, error) {
	meta, err := s.AllMetadata(ctx)
	if err != nil {
		return ScanInfo{}, err
	}

	str := func(key string) string {
		v, _ := meta[key].(string)
		return v
	}

	return ScanInfo{
		DatabaseName:  str(MetaDatabaseName),
		ServerName:    str(MetaServerName),
		ScanTimestamp: str(MetaScanTimestamp),
		Version:       str(MetaVersion),
		ScanID:        str(MetaScanID),
		Source:        str(MetaSource),
	}, nil
}

// Stats counts table nodes, column nodes, fk edges and fk_col edges.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	counts := []struct {
		query string
		arg   string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM nodes WHERE type = ?", string(NodeTable), &stats.Tables},
		{"SELECT COUNT(*) FROM nodes WHERE type = ?", string(NodeColumn), &stats.Columns},
		{"SELECT COUNT(*) FROM edges WHERE type = ?", string(EdgeForeignKey), &stats.ForeignKeys},
		{"SELECT COUNT(*) FROM edges WHERE type = ?", string(EdgeForeignKeyColumn), &stats.ColumnRelationships},
	}

	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.arg).Scan(c.dest); err != nil {
			return Stats{}, fmt.Errorf("failed to count %s: %w", c.arg, err)
		}
	}

	return stats, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *Store) queryNodes(ctx context.Context, query string, args ...any) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nodes: %w", err)
	}

	return nodes, nil
}

func (s *Store) queryEdges(ctx context.Context, query string, args ...any) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, *edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edges: %w", err)
	}

	return edges, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*Node, error) {
	var (
		node     Node
		nodeType string
		data     string
	)

	if err := row.Scan(&node.ID, &nodeType, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan node: %w", err)
	}

	node.Type = NodeType(nodeType)

	var err error
	switch node.Type {
	case NodeTable:
		node.Table = &TableAttrs{}
		err = json.Unmarshal([]byte(data), node.Table)
	case NodeColumn:
		node.Column = &ColumnAttrs{}
		err = json.Unmarshal([]byte(data), node.Column)
	default:
		err = fmt.Errorf("unknown node type %q", nodeType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: node %s: %v", ErrCorruptRecord, node.ID, err)
	}

	return &node, nil
}

func scanEdge(row rowScanner) (*Edge, error) {
	var (
		edge     Edge
		edgeType string
		data     string
	)

	if err := row.Scan(&edge.ID, &edge.FromID, &edge.ToID, &edgeType, &edge.Weight, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan edge: %w", err)
	}

	edge.Type = EdgeType(edgeType)
	if err := json.Unmarshal([]byte(data), &edge.Attrs); err != nil {
		return nil, fmt.Errorf("%w: edge %s: %v", ErrCorruptRecord, edge.ID, err)
	}

	return &edge, nil
}

func encodeNode(node Node) (string, error) {
	if node.ID == "" {
		return "", fmt.Errorf("%w: empty id", ErrInvalidNode)
	}

	var payload any
	switch {
	case node.Type == NodeTable && node.Table != nil:
		payload = node.Table
	case node.Type == NodeColumn && node.Column != nil:
		payload = node.Column
	default:
		return "", fmt.Errorf("%w: %s has type %q without a matching payload", ErrInvalidNode, node.ID, node.Type)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode node %s: %w", node.ID, err)
	}

	return string(data), nil
}
