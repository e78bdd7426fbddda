package graphbuild

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/schemagraph"
	"github.com/shibukawa/schemagraph/graphstore"
	"github.com/shibukawa/schemagraph/testhelper"
)

func newTestStore(t *testing.T) *graphstore.Store {
	t.Helper()

	store, err := graphstore.Open(t.Context(), filepath.Join(t.TempDir(), "graph.sqlite"))
	assert.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func fixedBuilder(store *graphstore.Store) *Builder {
	return NewBuilder(store,
		WithClock(func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }),
		WithScanID(func() string { return "scan-1" }),
	)
}

func TestBuild(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	stats, err := fixedBuilder(store).Build(ctx, testhelper.ShopSnapshot(), true)
	assert.NoError(t, err)
	assert.Equal(t, &Stats{
		Tables:              5,
		Columns:             13,
		ForeignKeys:         3,
		ColumnRelationships: 3,
		Database:            "Shop",
		Server:              "sql01",
		ScanID:              "scan-1",
	}, stats)

	t.Run("TableNode", func(t *testing.T) {
		node, ok, err := store.GetNode(ctx, "dbo.Users")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, graphstore.NodeTable, node.Type)
		assert.Equal(t, "dbo", node.Table.Schema)
		assert.Equal(t, "Users", node.Table.Name)
		assert.Equal(t, int64(1200), *node.Table.RowCount)
		assert.Equal(t, 0.5, *node.Table.SizeMB)
		assert.Equal(t, []string{"Id"}, node.Table.PrimaryKey)
		assert.Equal(t, []string{TagCollection, TagActor}, node.Table.Tags)

		node, ok, err = store.GetNode(ctx, "dbo.AuditLogs")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, node.Table.RowCount)
		assert.Zero(t, node.Table.SizeMB)
	})

	t.Run("ColumnFlags", func(t *testing.T) {
		tests := []struct {
			id     string
			isPK   bool
			isFK   bool
			table  string
			sqlTyp string
		}{
			{"dbo.Users.Id", true, false, "dbo.Users", "int"},
			{"dbo.Users.Email", false, false, "dbo.Users", "nvarchar"},
			{"dbo.Orders.UserId", false, true, "dbo.Orders", "int"},
			{"dbo.OrderItems.OrderId", false, true, "dbo.OrderItems", "int"},
			{"dbo.OrderItems.ProductId", false, true, "dbo.OrderItems", "int"},
			{"dbo.OrderItems.Id", true, false, "dbo.OrderItems", "int"},
		}

		for _, tt := range tests {
			t.Run(tt.id, func(t *testing.T) {
				node, ok, err := store.GetNode(ctx, tt.id)
				assert.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, graphstore.NodeColumn, node.Type)
				assert.Equal(t, tt.isPK, node.Column.IsPK)
				assert.Equal(t, tt.isFK, node.Column.IsFK)
				assert.Equal(t, tt.table, node.Column.Table)
				assert.Equal(t, tt.sqlTyp, node.Column.SQLType)
			})
		}

		email, _, err := store.GetNode(ctx, "dbo.Users.Email")
		assert.NoError(t, err)
		assert.Equal(t, 255, *email.Column.MaxLength)
		assert.Equal(t, 2, email.Column.OrdinalPosition)

		total, _, err := store.GetNode(ctx, "dbo.Orders.Total")
		assert.NoError(t, err)
		assert.Equal(t, 18, *total.Column.Precision)
		assert.Equal(t, 2, *total.Column.Scale)
	})

	t.Run("ForeignKeyEdge", func(t *testing.T) {
		edge, ok, err := store.GetEdge(ctx, "fk:dbo.Orders.FK_Orders_Users")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, graphstore.Edge{
			ID:     "fk:dbo.Orders.FK_Orders_Users",
			FromID: "dbo.Orders",
			ToID:   "dbo.Users",
			Type:   graphstore.EdgeForeignKey,
			Weight: 1,
			Attrs: graphstore.EdgeAttrs{
				ConstraintName: "FK_Orders_Users",
				FromColumns:    []string{"UserId"},
				ToColumns:      []string{"Id"},
				Via:            []string{"dbo.Orders.UserId", "dbo.Users.Id"},
			},
		}, *edge)
	})

	t.Run("ColumnEdge", func(t *testing.T) {
		edge, ok, err := store.GetEdge(ctx, "fk_col:dbo.OrderItems.FK_OrderItems_Products:0")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "dbo.OrderItems.ProductId", edge.FromID)
		assert.Equal(t, "dbo.Products.Id", edge.ToID)
		assert.Equal(t, graphstore.EdgeForeignKeyColumn, edge.Type)
		assert.Equal(t, "dbo.OrderItems", edge.Attrs.FromTable)
		assert.Equal(t, "dbo.Products", edge.Attrs.ToTable)
	})

	t.Run("Metadata", func(t *testing.T) {
		info, err := store.ScanInfo(ctx)
		assert.NoError(t, err)
		assert.Equal(t, graphstore.ScanInfo{
			DatabaseName:  "Shop",
			ServerName:    "sql01",
			ScanTimestamp: "2026-10-18T09:30:00Z",
			Version:       "1.0",
			ScanID:        "scan-1",
			Source:        "test",
		}, info)
	})

	t.Run("StoreStatsAgree", func(t *testing.T) {
		storeStats, err := store.Stats(ctx)
		assert.NoError(t, err)
		assert.Equal(t, graphstore.Stats{Tables: 5, Columns: 13, ForeignKeys: 3, ColumnRelationships: 3}, storeStats)
	})
}

func TestBuildDuplicateTablePair(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	snapshot := &schemagraph.Snapshot{
		DatabaseName: "Shop",
		Tables: []schemagraph.TableInfo{
			{Schema: "dbo", Name: "Users"},
			{Schema: "dbo", Name: "Orders"},
		},
		Columns: []schemagraph.ColumnInfo{
			{TableSchema: "dbo", TableName: "Users", Name: "Id", SQLType: "int", OrdinalPosition: 1},
			{TableSchema: "dbo", TableName: "Orders", Name: "BuyerId", SQLType: "int", OrdinalPosition: 2},
			{TableSchema: "dbo", TableName: "Orders", Name: "SellerId", SQLType: "int", OrdinalPosition: 3},
		},
		ForeignKeys: []schemagraph.ForeignKeyInfo{
			{
				ConstraintName: "FK_Orders_Buyer",
				FromSchema:     "dbo",
				FromTable:      "Orders",
				FromColumns:    []string{"BuyerId"},
				ToSchema:       "dbo",
				ToTable:        "Users",
				ToColumns:      []string{"Id"},
			},
			{
				ConstraintName: "FK_Orders_Seller",
				FromSchema:     "dbo",
				FromTable:      "Orders",
				FromColumns:    []string{"SellerId"},
				ToSchema:       "dbo",
				ToTable:        "Users",
				ToColumns:      []string{"Id"},
			},
		},
	}

	stats, err := fixedBuilder(store).Build(ctx, snapshot, true)
	assert.NoError(t, err)
	assert.Equal(t, 1, stats.ForeignKeys)
	assert.Equal(t, 2, stats.ColumnRelationships)

	_, ok, err := store.GetEdge(ctx, "fk:dbo.Orders.FK_Orders_Buyer")
	assert.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = store.GetEdge(ctx, "fk:dbo.Orders.FK_Orders_Seller")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.GetEdge(ctx, "fk_col:dbo.Orders.FK_Orders_Seller:0")
	assert.NoError(t, err)
	assert.True(t, ok)

	for _, id := range []string{"dbo.Orders.BuyerId", "dbo.Orders.SellerId"} {
		node, _, err := store.GetNode(ctx, id)
		assert.NoError(t, err)
		assert.True(t, node.Column.IsFK, "%s should be marked as foreign key", id)
	}
}

func TestBuildCompositeForeignKey(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	snapshot := &schemagraph.Snapshot{
		Tables: []schemagraph.TableInfo{
			{Schema: "sales", Name: "Shipments"},
			{Schema: "sales", Name: "OrderLines"},
		},
		PrimaryKeys: []schemagraph.PrimaryKeyInfo{
			{TableSchema: "sales", TableName: "OrderLines", ConstraintName: "PK_OrderLines", Columns: []string{"OrderId", "LineNo"}},
		},
		ForeignKeys: []schemagraph.ForeignKeyInfo{
			{
				ConstraintName: "FK_Shipments_OrderLines",
				FromSchema:     "sales",
				FromTable:      "Shipments",
				FromColumns:    []string{"OrderId", "LineNo"},
				ToSchema:       "sales",
				ToTable:        "OrderLines",
				ToColumns:      []string{"OrderId", "LineNo"},
			},
		},
	}

	stats, err := fixedBuilder(store).Build(ctx, snapshot, true)
	assert.NoError(t, err)
	assert.Equal(t, 1, stats.ForeignKeys)
	assert.Equal(t, 2, stats.ColumnRelationships)

	edge, ok, err := store.GetEdge(ctx, "fk:sales.Shipments.FK_Shipments_OrderLines")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{
		"sales.Shipments.OrderId", "sales.OrderLines.OrderId",
		"sales.Shipments.LineNo", "sales.OrderLines.LineNo",
	}, edge.Attrs.Via)

	table, _, err := store.GetNode(ctx, "sales.OrderLines")
	assert.NoError(t, err)
	assert.Equal(t, []string{"OrderId", "LineNo"}, table.Table.PrimaryKey)

	second, ok, err := store.GetEdge(ctx, "fk_col:sales.Shipments.FK_Shipments_OrderLines:1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sales.Shipments.LineNo", second.FromID)
}

func TestBuildSameConstraintNameOnDifferentTables(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	snapshot := &schemagraph.Snapshot{
		Tables: []schemagraph.TableInfo{
			{Schema: "public", Name: "customers"},
			{Schema: "public", Name: "orders"},
			{Schema: "public", Name: "invoices"},
		},
		Columns: []schemagraph.ColumnInfo{
			{TableSchema: "public", TableName: "customers", Name: "id", SQLType: "integer", OrdinalPosition: 1},
			{TableSchema: "public", TableName: "orders", Name: "customer_id", SQLType: "integer", OrdinalPosition: 1},
			{TableSchema: "public", TableName: "invoices", Name: "customer_id", SQLType: "integer", OrdinalPosition: 1},
		},
		ForeignKeys: []schemagraph.ForeignKeyInfo{
			{
				ConstraintName: "fk_customer",
				FromSchema:     "public",
				FromTable:      "orders",
				FromColumns:    []string{"customer_id"},
				ToSchema:       "public",
				ToTable:        "customers",
				ToColumns:      []string{"id"},
			},
			{
				ConstraintName: "fk_customer",
				FromSchema:     "public",
				FromTable:      "invoices",
				FromColumns:    []string{"customer_id"},
				ToSchema:       "public",
				ToTable:        "customers",
				ToColumns:      []string{"id"},
			},
		},
	}

	stats, err := fixedBuilder(store).Build(ctx, snapshot, true)
	assert.NoError(t, err)
	assert.Equal(t, 2, stats.ForeignKeys)
	assert.Equal(t, 2, stats.ColumnRelationships)

	storeStats, err := store.Stats(ctx)
	assert.NoError(t, err)
	assert.Equal(t, stats.ForeignKeys, storeStats.ForeignKeys)
	assert.Equal(t, stats.ColumnRelationships, storeStats.ColumnRelationships)

	for _, from := range []string{"public.orders", "public.invoices"} {
		edge, ok, err := store.GetEdge(ctx, "fk:"+from+".fk_customer")
		assert.NoError(t, err)
		assert.True(t, ok, "missing edge from %s", from)
		assert.Equal(t, from, edge.FromID)
		assert.Equal(t, "public.customers", edge.ToID)

		col, ok, err := store.GetEdge(ctx, "fk_col:"+from+".fk_customer:0")
		assert.NoError(t, err)
		assert.True(t, ok, "missing column edge from %s", from)
		assert.Equal(t, from+".customer_id", col.FromID)
	}
}

func TestBuildClearExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()
	builder := fixedBuilder(store)

	_, err := builder.Build(ctx, testhelper.ShopSnapshot(), true)
	assert.NoError(t, err)

	small := &schemagraph.Snapshot{
		DatabaseName: "Other",
		Tables:       []schemagraph.TableInfo{{Schema: "dbo", Name: "Settings"}},
	}

	t.Run("Upsert", func(t *testing.T) {
		_, err := builder.Build(ctx, small, false)
		assert.NoError(t, err)

		stats, err := store.Stats(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 6, stats.Tables)
	})

	t.Run("Rebuild", func(t *testing.T) {
		_, err := builder.Build(ctx, small, true)
		assert.NoError(t, err)

		stats, err := store.Stats(ctx)
		assert.NoError(t, err)
		assert.Equal(t, graphstore.Stats{Tables: 1}, stats)

		name, _, err := store.GetMetadata(ctx, graphstore.MetaDatabaseName)
		assert.NoError(t, err)
		assert.Equal(t, any("Other"), name)
	})
}

func TestInferTags(t *testing.T) {
	tests := []struct {
		name     string
		expected []string
	}{
		{"Users", []string{TagCollection, TagActor}},
		{"Orders", []string{TagCollection, TagTransaction}},
		{"OrderItems", []string{TagCollection, TagTransaction, TagInventory}},
		{"AuditLogs", []string{TagCollection, TagAudit}},
		{"AppConfig", []string{TagConfig}},
		{"OrderStatus", []string{TagCollection, TagTransaction, TagReference}},
		{"Person", []string{TagActor}},
		{"Ledger", []string{}},
		{"user_preferences", []string{TagCollection, TagActor, TagConfig}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferTags(tt.name))
		})
	}
}
