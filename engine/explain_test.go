package engine

import (
	"encoding/json"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/schemagraph/testhelper"
)

func TestExplainTable(t *testing.T) {
	e := newEngine(t, testhelper.ShopSnapshot())
	ctx := t.Context()

	t.Run("Orders", func(t *testing.T) {
		explanation, ok, err := e.ExplainTable(ctx, "orders")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "dbo.Orders", explanation.TableName)
		assert.Equal(t, "dbo", explanation.Schema)
		assert.Equal(t, "Orders", explanation.Name)
		assert.Equal(t, []string{"Id"}, explanation.PrimaryKey)
		assert.Equal(t, int64(5400), *explanation.RowCount)
		assert.Equal(t, 2.25, *explanation.SizeMB)
		assert.Equal(t, []string{"collection", "transaction"}, explanation.Tags)

		names := make([]string, 0, len(explanation.Columns))
		for _, col := range explanation.Columns {
			names = append(names, col.Name)
		}
		assert.Equal(t, []string{"Id", "UserId", "Total"}, names)
		assert.True(t, explanation.Columns[0].IsPK)
		assert.True(t, explanation.Columns[1].IsFK)
		assert.Equal(t, "dbo.Orders.UserId", explanation.Columns[1].ID)

		assert.Equal(t, []Relationship{
			{Peer: "dbo.Users", Constraint: "FK_Orders_Users", FromColumns: []string{"UserId"}, ToColumns: []string{"Id"}},
		}, explanation.OutgoingRelationships)
		assert.Equal(t, []Relationship{
			{Peer: "dbo.OrderItems", Constraint: "FK_OrderItems_Orders", FromColumns: []string{"OrderId"}, ToColumns: []string{"Id"}},
		}, explanation.IncomingRelationships)
	})

	t.Run("Isolated", func(t *testing.T) {
		explanation, ok, err := e.ExplainTable(ctx, "dbo.AuditLogs")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, explanation.RowCount)
		assert.Equal(t, []Relationship{}, explanation.OutgoingRelationships)
		assert.Equal(t, []Relationship{}, explanation.IncomingRelationships)
	})

	t.Run("Unknown", func(t *testing.T) {
		explanation, ok, err := e.ExplainTable(ctx, "Nope")
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, explanation)
	})

	t.Run("ColumnIDIsNotATable", func(t *testing.T) {
		_, ok, err := e.ExplainTable(ctx, "dbo.Orders.UserId")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("JSON", func(t *testing.T) {
		explanation, _, err := e.ExplainTable(ctx, "Users")
		assert.NoError(t, err)

		data, err := json.Marshal(explanation)
		assert.NoError(t, err)

		var decoded map[string]any
		assert.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "dbo.Users", decoded["table_name"])

		columns := decoded["columns"].([]any)
		first := columns[0].(map[string]any)
		assert.Equal(t, "dbo.Users.Id", first["id"])
		assert.Equal(t, "int", first["sql_type"])
		assert.Equal(t, true, first["is_pk"])
	})
}

func TestListings(t *testing.T) {
	e := newEngine(t, testhelper.ShopSnapshot())
	ctx := t.Context()

	t.Run("Tables", func(t *testing.T) {
		tables, err := e.ListTables(ctx)
		assert.NoError(t, err)

		ids := make([]string, 0, len(tables))
		for _, table := range tables {
			ids = append(ids, table.Name)
		}
		assert.Equal(t, []string{"dbo.AuditLogs", "dbo.OrderItems", "dbo.Orders", "dbo.Products", "dbo.Users"}, ids)

		users := tables[4]
		assert.Equal(t, "dbo", users.Schema)
		assert.Equal(t, "Users", users.Table)
		assert.Equal(t, int64(1200), *users.RowCount)
		assert.Equal(t, []string{"Id"}, users.PK)
		assert.Equal(t, []string{"collection", "actor"}, users.Tags)
	})

	t.Run("Relationships", func(t *testing.T) {
		relationships, err := e.ListRelationships(ctx)
		assert.NoError(t, err)
		assert.Equal(t, []RelationshipSummary{
			{FromTable: "dbo.OrderItems", ToTable: "dbo.Orders", Constraint: "FK_OrderItems_Orders", FromColumns: []string{"OrderId"}, ToColumns: []string{"Id"}},
			{FromTable: "dbo.OrderItems", ToTable: "dbo.Products", Constraint: "FK_OrderItems_Products", FromColumns: []string{"ProductId"}, ToColumns: []string{"Id"}},
			{FromTable: "dbo.Orders", ToTable: "dbo.Users", Constraint: "FK_Orders_Users", FromColumns: []string{"UserId"}, ToColumns: []string{"Id"}},
		}, relationships)
	})

	t.Run("Columns", func(t *testing.T) {
		columns, err := e.ListColumns(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 13, len(columns))
		assert.Equal(t, "dbo.AuditLogs.Id", columns[0].ID)
		assert.Equal(t, "dbo.AuditLogs", columns[0].Table)
	})

	t.Run("Stats", func(t *testing.T) {
		stats, info, err := e.Stats(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 5, stats.Tables)
		assert.Equal(t, 3, stats.ForeignKeys)
		assert.Equal(t, "Shop", info.DatabaseName)
		assert.Equal(t, "1.0", info.Version)
	})
}
