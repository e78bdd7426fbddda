package schemaimport

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	tblsconfig "github.com/k1LoW/tbls/config"

	"github.com/shibukawa/schemagraph"
)

const shopSchemaJSON = `{
  "name": "shop",
  "driver": {"name": "postgres", "database_version": "16", "meta": {"current_schema": "public"}},
  "tables": [
    {
      "name": "users",
      "type": "BASE TABLE",
      "columns": [
        {"name": "id", "type": "integer", "nullable": false},
        {"name": "email", "type": "character varying(255)", "nullable": false}
      ],
      "constraints": [
        {"name": "users_pkey", "type": "PRIMARY KEY", "def": "PRIMARY KEY (id)", "table": "users", "columns": ["id"]}
      ]
    },
    {
      "name": "orders",
      "type": "BASE TABLE",
      "columns": [
        {"name": "id", "type": "integer", "nullable": false},
        {"name": "user_id", "type": "integer", "nullable": false},
        {"name": "total", "type": "numeric(12,2)", "nullable": true}
      ],
      "constraints": [
        {"name": "orders_pkey", "type": "PRIMARY KEY", "def": "PRIMARY KEY (id)", "table": "orders", "columns": ["id"]},
        {"name": "orders_user_id_fkey", "type": "FOREIGN KEY", "def": "FOREIGN KEY (user_id) REFERENCES users(id)", "table": "orders", "referenced_table": "users", "columns": ["user_id"], "referenced_columns": ["id"]}
      ]
    },
    {
      "name": "audit.events",
      "type": "BASE TABLE",
      "columns": [
        {"name": "id", "type": "bigint", "nullable": false},
        {"name": "order_ref", "type": "integer", "nullable": true}
      ]
    },
    {
      "name": "active_users",
      "type": "VIEW",
      "columns": [{"name": "id", "type": "integer", "nullable": true}]
    }
  ],
  "relations": [
    {"table": "audit.events", "columns": ["order_ref"], "parent_table": "orders", "parent_columns": ["id"], "def": "Virtual", "virtual": true}
  ]
}`

func loadShopSchema(t *testing.T, opts Options) *schemagraph.Snapshot {
	t.Helper()

	tmp := t.TempDir()
	opts.WorkingDir = tmp
	opts.SchemaJSONPath = writeFile(t, tmp, "schema.json", shopSchemaJSON)

	importer := NewImporter(NewConfig(opts))
	if err := importer.LoadSchemaJSON(context.Background()); err != nil {
		t.Fatalf("LoadSchemaJSON returned error: %v", err)
	}

	if !importer.hasLoadedSchema() {
		t.Fatalf("expected schema to be marked as loaded")
	}

	snapshot, err := importer.Convert(context.Background())
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}

	return snapshot
}

func TestConvertShopSchema(t *testing.T) {
	snapshot := loadShopSchema(t, Options{})

	t.Run("TablesSkipViews", func(t *testing.T) {
		var names []string
		for _, table := range snapshot.Tables {
			names = append(names, table.FullName())
		}

		expected := []string{"public.users", "public.orders", "audit.events"}
		if len(names) != len(expected) {
			t.Fatalf("expected %v, got %v", expected, names)
		}

		for i := range expected {
			if names[i] != expected[i] {
				t.Fatalf("expected %v, got %v", expected, names)
			}
		}
	})

	t.Run("Columns", func(t *testing.T) {
		byName := make(map[string]schemagraph.ColumnInfo)
		for _, col := range snapshot.Columns {
			byName[col.FullName()] = col
		}

		email := byName["public.users.email"]
		if email.MaxLength == nil || *email.MaxLength != 255 {
			t.Fatalf("expected max length 255, got %+v", email.MaxLength)
		}

		total := byName["public.orders.total"]
		if total.OrdinalPosition != 3 || !total.IsNullable {
			t.Fatalf("unexpected total column: %+v", total)
		}

		if total.Precision == nil || *total.Precision != 12 || total.Scale == nil || *total.Scale != 2 {
			t.Fatalf("expected numeric(12,2), got %+v / %+v", total.Precision, total.Scale)
		}
	})

	t.Run("ForeignKeys", func(t *testing.T) {
		if len(snapshot.ForeignKeys) != 2 {
			t.Fatalf("expected constraint and virtual relation, got %+v", snapshot.ForeignKeys)
		}

		fk := snapshot.ForeignKeys[0]
		if fk.ConstraintName != "orders_user_id_fkey" || fk.FromFullName() != "public.orders" || fk.ToFullName() != "public.users" {
			t.Fatalf("unexpected foreign key: %+v", fk)
		}

		virtual := snapshot.ForeignKeys[1]
		if virtual.FromFullName() != "audit.events" || virtual.ToFullName() != "public.orders" {
			t.Fatalf("unexpected virtual relation: %+v", virtual)
		}

		if virtual.ConstraintName != "virtual_events_orders_0" {
			t.Fatalf("unexpected virtual constraint name %q", virtual.ConstraintName)
		}
	})

	t.Run("DatabaseInfo", func(t *testing.T) {
		if snapshot.DatabaseName != "shop" || snapshot.ServerName != "localhost" || snapshot.Source != "tbls:postgres" {
			t.Fatalf("unexpected database info: %+v", snapshot)
		}
	})
}

func TestConvertAppliesFiltersAndOverrides(t *testing.T) {
	snapshot := loadShopSchema(t, Options{
		Exclude:      []string{"audit.*"},
		DatabaseName: "ShopProd",
		ServerName:   "pg01",
	})

	if len(snapshot.Tables) != 2 {
		t.Fatalf("expected audit schema to be excluded, got %+v", snapshot.Tables)
	}

	if len(snapshot.ForeignKeys) != 1 {
		t.Fatalf("expected virtual relation to be dropped with its table, got %+v", snapshot.ForeignKeys)
	}

	if snapshot.DatabaseName != "ShopProd" || snapshot.ServerName != "pg01" {
		t.Fatalf("overrides not applied: %s@%s", snapshot.DatabaseName, snapshot.ServerName)
	}
}

func TestConvertBeforeLoad(t *testing.T) {
	importer := NewImporter(NewConfig(Options{}))

	if _, err := importer.Convert(context.Background()); !errors.Is(err, ErrSchemaNotLoaded) {
		t.Fatalf("expected ErrSchemaNotLoaded, got %v", err)
	}

	if err := importer.LoadSchemaJSON(context.Background()); !errors.Is(err, ErrSchemaJSONPathMissing) {
		t.Fatalf("expected ErrSchemaJSONPathMissing, got %v", err)
	}
}

func TestLoadSchemaJSONValidation(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		err     error
	}{
		{"MissingDriver", `{"tables":[{"name":"users"}]}`, ErrDriverMetadataMissing},
		{"EmptyDriverName", `{"driver":{"name":""},"tables":[{"name":"users"}]}`, ErrDriverNameEmpty},
		{"NoTables", `{"driver":{"name":"mysql"},"tables":[]}`, ErrSchemaTablesEmpty},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tmp := t.TempDir()
			path := writeFile(t, tmp, "schema.json", tc.payload)

			err := NewImporter(NewConfig(Options{SchemaJSONPath: path})).LoadSchemaJSON(context.Background())
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
		})
	}
}

func TestDatabaseNameInference(t *testing.T) {
	testCases := []struct {
		dsn      string
		expected string
	}{
		{"postgres://localhost:5432/app", "app"},
		{"mysql://root@localhost/shop", "shop"},
		{"sqlite://" + filepath.Join("data", "shop.db"), "shop"},
		{"", ""},
	}

	for _, tc := range testCases {
		if got := extractDatabaseNameFromDSN(tc.dsn); got != tc.expected {
			t.Fatalf("%q: expected %q, got %q", tc.dsn, tc.expected, got)
		}
	}

	cfg := &Config{TblsConfig: &tblsconfig.Config{Name: "fallback"}}
	if got := inferDatabaseName(cfg, nil); got != "fallback" {
		t.Fatalf("expected tbls name fallback, got %q", got)
	}
}
