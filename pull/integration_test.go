package pull

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/schemagraph"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func snapshotIndex(snapshot *schemagraph.Snapshot) (tables []string, fks map[string]schemagraph.ForeignKeyInfo) {
	for _, table := range snapshot.Tables {
		tables = append(tables, table.FullName())
	}

	fks = make(map[string]schemagraph.ForeignKeyInfo)
	for _, fk := range snapshot.ForeignKeys {
		fks[fk.ConstraintName] = fk
	}

	return tables, fks
}

// TestPostgreSQLIntegration extracts a snapshot from a real PostgreSQL database
func TestPostgreSQLIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := t.Context()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("shop"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.BasicWaitStrategies(),
	)
	assert.NoError(t, err)

	defer func() {
		assert.NoError(t, postgresContainer.Terminate(ctx))
	}()

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	assert.NoError(t, err)

	db, err := sql.Open("pgx", connStr)
	assert.NoError(t, err)

	defer db.Close()

	_, err = db.ExecContext(ctx, `
		CREATE SCHEMA sales;
		CREATE TABLE sales.customers (id serial PRIMARY KEY, email varchar(200) NOT NULL);
		CREATE TABLE sales.orders (
			id serial PRIMARY KEY,
			customer_id int NOT NULL,
			total numeric(12, 2),
			CONSTRAINT fk_orders_customers FOREIGN KEY (customer_id) REFERENCES sales.customers(id)
		);
		CREATE TABLE sales.order_lines (
			order_id int NOT NULL,
			line_no int NOT NULL,
			PRIMARY KEY (order_id, line_no),
			CONSTRAINT fk_lines_orders FOREIGN KEY (order_id) REFERENCES sales.orders(id)
		);
		CREATE TABLE sales.shipments (
			id serial PRIMARY KEY,
			order_id int,
			line_no int,
			CONSTRAINT fk_shipments_lines FOREIGN KEY (line_no, order_id) REFERENCES sales.order_lines(line_no, order_id)
		);
		CREATE TABLE public.scratch (id int);
	`)
	assert.NoError(t, err)

	result, err := ExecutePull(ctx, PullConfig{
		DatabaseURL:    strings.Replace(connStr, "postgresql://", "postgres://", 1),
		DatabaseType:   "postgresql",
		IncludeSchemas: []string{"sales"},
	})
	assert.NoError(t, err)

	snapshot := result.Snapshot
	assert.Equal(t, "shop", snapshot.DatabaseName)

	tables, fks := snapshotIndex(snapshot)
	assert.Equal(t, []string{"sales.customers", "sales.order_lines", "sales.orders", "sales.shipments"}, tables)
	assert.Equal(t, 3, len(fks))

	assert.Equal(t, "sales.customers", fks["fk_orders_customers"].ToFullName())
	assert.Equal(t, []string{"line_no", "order_id"}, fks["fk_shipments_lines"].FromColumns)
	assert.Equal(t, []string{"line_no", "order_id"}, fks["fk_shipments_lines"].ToColumns)

	var lines schemagraph.PrimaryKeyInfo
	for _, pk := range snapshot.PrimaryKeys {
		if pk.TableName == "order_lines" {
			lines = pk
		}
	}
	assert.Equal(t, []string{"order_id", "line_no"}, lines.Columns)

	for _, col := range snapshot.Columns {
		if col.FullName() == "sales.orders.total" {
			assert.Equal(t, "numeric", col.SQLType)
			assert.Equal(t, 12, *col.Precision)
			assert.Equal(t, 2, *col.Scale)
		}
	}
}

// TestMySQLIntegration extracts a snapshot from a real MySQL database
func TestMySQLIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := t.Context()

	mysqlContainer, err := mysql.Run(ctx,
		"mysql:8.4",
		mysql.WithDatabase("shop"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	testcontainers.CleanupContainer(t, mysqlContainer)
	assert.NoError(t, err)

	dsn, err := mysqlContainer.ConnectionString(ctx, "multiStatements=true")
	assert.NoError(t, err)

	db, err := sql.Open("mysql", dsn)
	assert.NoError(t, err)

	defer db.Close()

	_, err = db.ExecContext(ctx, `
		CREATE TABLE customers (id INT AUTO_INCREMENT PRIMARY KEY, email VARCHAR(200) NOT NULL);
		CREATE TABLE orders (
			id INT AUTO_INCREMENT PRIMARY KEY,
			customer_id INT NOT NULL,
			CONSTRAINT fk_orders_customers FOREIGN KEY (customer_id) REFERENCES customers(id)
		);
	`)
	assert.NoError(t, err)

	host, err := mysqlContainer.Host(ctx)
	assert.NoError(t, err)
	port, err := mysqlContainer.MappedPort(ctx, "3306/tcp")
	assert.NoError(t, err)

	result, err := ExecutePull(ctx, PullConfig{
		DatabaseURL:  "mysql://root:testpass@" + host + ":" + port.Port() + "/shop",
		DatabaseType: "mysql",
	})
	assert.NoError(t, err)

	snapshot := result.Snapshot
	assert.Equal(t, "shop", snapshot.DatabaseName)

	tables, fks := snapshotIndex(snapshot)
	assert.Equal(t, []string{"shop.customers", "shop.orders"}, tables)
	assert.Equal(t, []string{"customer_id"}, fks["fk_orders_customers"].FromColumns)
	assert.Equal(t, "shop.customers", fks["fk_orders_customers"].ToFullName())

	for _, col := range snapshot.Columns {
		if col.FullName() == "shop.customers.email" {
			assert.Equal(t, 200, *col.MaxLength)
		}
	}
}
