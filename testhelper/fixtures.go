package testhelper

import "github.com/shibukawa/schemagraph"

func intPtr(v int) *int {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func column(table, name, sqlType string, ordinal int, nullable bool) schemagraph.ColumnInfo {
	return schemagraph.ColumnInfo{
		TableSchema:     "dbo",
		TableName:       table,
		Name:            name,
		SQLType:         sqlType,
		IsNullable:      nullable,
		OrdinalPosition: ordinal,
	}
}

// ShopSnapshot returns a small order-processing schema:
//
//	Orders.UserId        -> Users.Id
//	OrderItems.OrderId   -> Orders.Id
//	OrderItems.ProductId -> Products.Id
//
// AuditLogs has no relationships.
func ShopSnapshot() *schemagraph.Snapshot {
	email := column("Users", "Email", "nvarchar", 2, false)
	email.MaxLength = intPtr(255)

	total := column("Orders", "Total", "decimal", 3, false)
	total.Precision = intPtr(18)
	total.Scale = intPtr(2)

	return &schemagraph.Snapshot{
		DatabaseName: "Shop",
		ServerName:   "sql01",
		Source:       "test",
		Tables: []schemagraph.TableInfo{
			{Schema: "dbo", Name: "Users", RowCount: int64Ptr(1200), SizeMB: floatPtr(0.5)},
			{Schema: "dbo", Name: "Orders", RowCount: int64Ptr(5400), SizeMB: floatPtr(2.25)},
			{Schema: "dbo", Name: "Products", RowCount: int64Ptr(80), SizeMB: floatPtr(0.1)},
			{Schema: "dbo", Name: "OrderItems", RowCount: int64Ptr(16000), SizeMB: floatPtr(4)},
			{Schema: "dbo", Name: "AuditLogs"},
		},
		Columns: []schemagraph.ColumnInfo{
			column("Users", "Id", "int", 1, false),
			email,
			column("Orders", "Id", "int", 1, false),
			column("Orders", "UserId", "int", 2, false),
			total,
			column("Products", "Id", "int", 1, false),
			column("Products", "Name", "nvarchar", 2, false),
			column("OrderItems", "Id", "int", 1, false),
			column("OrderItems", "OrderId", "int", 2, false),
			column("OrderItems", "ProductId", "int", 3, false),
			column("OrderItems", "Quantity", "int", 4, true),
			column("AuditLogs", "Id", "bigint", 1, false),
			column("AuditLogs", "Message", "nvarchar", 2, true),
		},
		PrimaryKeys: []schemagraph.PrimaryKeyInfo{
			{TableSchema: "dbo", TableName: "Users", ConstraintName: "PK_Users", Columns: []string{"Id"}},
			{TableSchema: "dbo", TableName: "Orders", ConstraintName: "PK_Orders", Columns: []string{"Id"}},
			{TableSchema: "dbo", TableName: "Products", ConstraintName: "PK_Products", Columns: []string{"Id"}},
			{TableSchema: "dbo", TableName: "OrderItems", ConstraintName: "PK_OrderItems", Columns: []string{"Id"}},
			{TableSchema: "dbo", TableName: "AuditLogs", ConstraintName: "PK_AuditLogs", Columns: []string{"Id"}},
		},
		ForeignKeys: []schemagraph.ForeignKeyInfo{
			{
				ConstraintName: "FK_Orders_Users",
				FromSchema:     "dbo",
				FromTable:      "Orders",
				FromColumns:    []string{"UserId"},
				ToSchema:       "dbo",
				ToTable:        "Users",
				ToColumns:      []string{"Id"},
			},
			{
				ConstraintName: "FK_OrderItems_Orders",
				FromSchema:     "dbo",
				FromTable:      "OrderItems",
				FromColumns:    []string{"OrderId"},
				ToSchema:       "dbo",
				ToTable:        "Orders",
				ToColumns:      []string{"Id"},
			},
			{
				ConstraintName: "FK_OrderItems_Products",
				FromSchema:     "dbo",
				FromTable:      "OrderItems",
				FromColumns:    []string{"ProductId"},
				ToSchema:       "dbo",
				ToTable:        "Products",
				ToColumns:      []string{"Id"},
			},
		},
	}
}
