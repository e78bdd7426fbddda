// Package graphbuild turns a metadata snapshot into table/column nodes and
// foreign-key edges in a graph store.
package graphbuild

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shibukawa/schemagraph"
	"github.com/shibukawa/schemagraph/graphstore"
)

// Stats summarizes one build
type Stats struct {
	Tables              int    `json:"tables" yaml:"tables"`
	Columns             int    `json:"columns" yaml:"columns"`
	ForeignKeys         int    `json:"foreign_keys" yaml:"foreign_keys"`
	ColumnRelationships int    `json:"column_relationships" yaml:"column_relationships"`
	Database            string `json:"database" yaml:"database"`
	Server              string `json:"server" yaml:"server"`
	ScanID              string `json:"scan_id" yaml:"scan_id"`
}

// Builder populates a store from snapshots. It is not re-entrant: callers
// must serialize builds against the same store.
type Builder struct {
	store *graphstore.Store
	now   func() time.Time
	newID func() string
}

// Option configures a Builder
type Option func(*Builder)

// WithClock overrides the clock used for scan_timestamp.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithScanID overrides scan id generation.
func WithScanID(newID func() string) Option {
	return func(b *Builder) {
		b.newID = newID
	}
}

// NewBuilder creates a builder writing into store.
func NewBuilder(store *graphstore.Store, opts ...Option) *Builder {
	b := &Builder{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build writes the snapshot into the store. When clearExisting is true the
// previous graph is erased first; otherwise nodes and edges are upserted by id.
func (b *Builder) Build(ctx context.Context, snapshot *schemagraph.Snapshot, clearExisting bool) (*Stats, error) {
	if clearExisting {
		if err := b.store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear graph: %w", err)
		}
	}

	primaryKeys := primaryKeyLookup(snapshot.PrimaryKeys)

	tableNodes := buildTableNodes(snapshot.Tables, primaryKeys)
	if err := b.store.AddNodes(ctx, tableNodes); err != nil {
		return nil, fmt.Errorf("failed to store table nodes: %w", err)
	}

	columnNodes := buildColumnNodes(snapshot.Columns, primaryKeys)
	if err := b.store.AddNodes(ctx, columnNodes); err != nil {
		return nil, fmt.Errorf("failed to store column nodes: %w", err)
	}

	fkEdges := buildForeignKeyEdges(snapshot.ForeignKeys)
	if err := b.store.AddEdges(ctx, fkEdges); err != nil {
		return nil, fmt.Errorf("failed to store foreign key edges: %w", err)
	}

	columnEdges := buildColumnEdges(snapshot.ForeignKeys)
	if err := b.store.AddEdges(ctx, columnEdges); err != nil {
		return nil, fmt.Errorf("failed to store column relationship edges: %w", err)
	}

	if err := b.markForeignKeyColumns(ctx, columnEdges); err != nil {
		return nil, err
	}

	stats := &Stats{
		Tables:              len(tableNodes),
		Columns:             len(columnNodes),
		ForeignKeys:         len(fkEdges),
		ColumnRelationships: len(columnEdges),
		Database:            snapshot.DatabaseName,
		Server:              snapshot.ServerName,
		ScanID:              b.newID(),
	}

	if err := b.recordMetadata(ctx, snapshot, stats.ScanID); err != nil {
		return nil, err
	}

	return stats, nil
}

type primaryKey struct {
	columns []string
	set     map[string]bool
}

func primaryKeyLookup(pks []schemagraph.PrimaryKeyInfo) map[string]primaryKey {
	lookup := make(map[string]primaryKey, len(pks))
	for _, pk := range pks {
		set := make(map[string]bool, len(pk.Columns))
		for _, col := range pk.Columns {
			set[col] = true
		}
		lookup[pk.TableFullName()] = primaryKey{columns: pk.Columns, set: set}
	}

	return lookup
}

func buildTableNodes(tables []schemagraph.TableInfo, primaryKeys map[string]primaryKey) []graphstore.Node {
	nodes := make([]graphstore.Node, 0, len(tables))
	for _, table := range tables {
		id := table.FullName()

		pk := primaryKeys[id].columns
		if pk == nil {
			pk = []string{}
		}

		nodes = append(nodes, graphstore.NewTableNode(id, graphstore.TableAttrs{
			Schema:     table.Schema,
			Name:       table.Name,
			RowCount:   table.RowCount,
			SizeMB:     table.SizeMB,
			PrimaryKey: pk,
			Tags:       InferTags(table.Name),
		}))
	}

	return nodes
}

func buildColumnNodes(columns []schemagraph.ColumnInfo, primaryKeys map[string]primaryKey) []graphstore.Node {
	nodes := make([]graphstore.Node, 0, len(columns))
	for _, col := range columns {
		tableID := col.TableFullName()

		nodes = append(nodes, graphstore.NewColumnNode(col.FullName(), graphstore.ColumnAttrs{
			Table:           tableID,
			Name:            col.Name,
			SQLType:         col.SQLType,
			IsNullable:      col.IsNullable,
			IsPK:            primaryKeys[tableID].set[col.Name],
			OrdinalPosition: col.OrdinalPosition,
			MaxLength:       col.MaxLength,
			Precision:       col.Precision,
			Scale:           col.Scale,
		}))
	}

	return nodes
}

// columnPairs zips the positionally paired column lists, truncating to the
// shorter one.
func columnPairs(fk schemagraph.ForeignKeyInfo) (from, to []string) {
	n := min(len(fk.FromColumns), len(fk.ToColumns))
	return fk.FromColumns[:n], fk.ToColumns[:n]
}

func buildForeignKeyEdges(fks []schemagraph.ForeignKeyInfo) []graphstore.Edge {
	type tablePair struct{ from, to string }

	seen := make(map[tablePair]bool)
	var edges []graphstore.Edge

	for _, fk := range fks {
		pair := tablePair{fk.FromFullName(), fk.ToFullName()}
		// First constraint per ordered table pair wins
		if seen[pair] {
			continue
		}
		seen[pair] = true

		fromCols, toCols := columnPairs(fk)
		via := make([]string, 0, len(fromCols)*2)
		for i := range fromCols {
			via = append(via, pair.from+"."+fromCols[i], pair.to+"."+toCols[i])
		}

		edges = append(edges, graphstore.Edge{
			ID:     graphstore.ForeignKeyEdgeID(pair.from, fk.ConstraintName),
			FromID: pair.from,
			ToID:   pair.to,
			Type:   graphstore.EdgeForeignKey,
			Weight: graphstore.WeightForeignKey,
			Attrs: graphstore.EdgeAttrs{
				ConstraintName: fk.ConstraintName,
				FromColumns:    fromCols,
				ToColumns:      toCols,
				Via:            via,
			},
		})
	}

	return edges
}

func buildColumnEdges(fks []schemagraph.ForeignKeyInfo) []graphstore.Edge {
	var edges []graphstore.Edge

	for _, fk := range fks {
		fromTable, toTable := fk.FromFullName(), fk.ToFullName()
		fromCols, toCols := columnPairs(fk)

		for i := range fromCols {
			edges = append(edges, graphstore.Edge{
				ID:     graphstore.ForeignKeyColumnEdgeID(fromTable, fk.ConstraintName, i),
				FromID: fromTable + "." + fromCols[i],
				ToID:   toTable + "." + toCols[i],
				Type:   graphstore.EdgeForeignKeyColumn,
				Weight: graphstore.WeightForeignKeyColumn,
				Attrs: graphstore.EdgeAttrs{
					ConstraintName: fk.ConstraintName,
					FromTable:      fromTable,
					ToTable:        toTable,
				},
			})
		}
	}

	return edges
}

// markForeignKeyColumns flips is_fk on every source column of a column edge.
// Columns missing from the store (references outside the snapshot) are skipped.
func (b *Builder) markForeignKeyColumns(ctx context.Context, edges []graphstore.Edge) error {
	done := make(map[string]bool)

	for _, edge := range edges {
		if done[edge.FromID] {
			continue
		}
		done[edge.FromID] = true

		node, ok, err := b.store.GetNode(ctx, edge.FromID)
		if err != nil {
			return fmt.Errorf("failed to read column %s: %w", edge.FromID, err)
		}
		if !ok || node.Column == nil || node.Column.IsFK {
			continue
		}

		node.Column.IsFK = true
		if err := b.store.AddNode(ctx, *node); err != nil {
			return fmt.Errorf("failed to mark column %s as foreign key: %w", edge.FromID, err)
		}
	}

	return nil
}

func (b *Builder) recordMetadata(ctx context.Context, snapshot *schemagraph.Snapshot, scanID string) error {
	entries := []struct {
		key   string
		value string
	}{
		{graphstore.MetaDatabaseName, snapshot.DatabaseName},
		{graphstore.MetaServerName, snapshot.ServerName},
		{graphstore.MetaScanTimestamp, b.now().UTC().Format(time.RFC3339)},
		{graphstore.MetaVersion, graphstore.FormatVersion},
		{graphstore.MetaScanID, scanID},
		{graphstore.MetaSource, snapshot.Source},
	}

	for _, entry := range entries {
		if err := b.store.SetMetadata(ctx, entry.key, entry.value); err != nil {
			return fmt.Errorf("failed to record scan metadata: %w", err)
		}
	}

	return nil
}
