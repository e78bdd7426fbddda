package schemaimport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	tblsschema "github.com/k1LoW/tbls/schema"

	"github.com/shibukawa/schemagraph"
	"github.com/shibukawa/schemagraph/pull"
)

// Importer loads a tbls schema.json and converts it into a metadata snapshot.
type Importer struct {
	cfg          *Config
	schema       *tblsschema.Schema
	schemaLoaded bool
}

// NewImporter constructs an Importer from a Config.
func NewImporter(cfg Config) *Importer {
	copyCfg := cfg
	return &Importer{cfg: &copyCfg}
}

// Config returns the resolved configuration backing the importer.
func (i *Importer) Config() *Config {
	if i == nil {
		return nil
	}

	return i.cfg
}

// LoadSchemaJSON loads the tbls JSON artefact into memory ready for conversion.
func (i *Importer) LoadSchemaJSON(ctx context.Context) error {
	if i == nil || i.cfg == nil {
		return ErrImporterNil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	path := i.cfg.SchemaJSONPath
	if strings.TrimSpace(path) == "" {
		return ErrSchemaJSONPathMissing
	}

	if !filepath.IsAbs(path) {
		base := i.cfg.WorkingDir
		if base == "" {
			base = "."
		}

		path = filepath.Join(base, path)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("schemaimport: open schema JSON %q: %w", path, err)
	}
	defer file.Close()

	schema, err := decodeSchemaJSON(file)
	if err != nil {
		return fmt.Errorf("schemaimport: decode schema JSON %q: %w", path, err)
	}

	if err := validateSchema(schema); err != nil {
		return fmt.Errorf("schemaimport: invalid schema JSON %q: %w", path, err)
	}

	i.logf("Loaded schema JSON (%s) tables=%d", schema.Driver.Name, len(schema.Tables))

	i.schema = schema
	i.schemaLoaded = true

	return nil
}

// Convert transforms the loaded tbls schema into a snapshot. Views are
// skipped; virtual relations declared in the tbls config become foreign keys.
func (i *Importer) Convert(ctx context.Context) (*schemagraph.Snapshot, error) {
	if i == nil || i.cfg == nil {
		return nil, ErrImporterNil
	}

	if !i.schemaLoaded || i.schema == nil {
		return nil, ErrSchemaNotLoaded
	}

	driverName := normalizeDriverName(i.schema.Driver.Name)
	snapshot := &schemagraph.Snapshot{
		DatabaseName: inferDatabaseName(i.cfg, i.schema),
		ServerName:   inferServerName(i.cfg),
		Source:       "tbls:" + driverName,
	}

	i.logf("Converting schema for driver=%s tables=%d", driverName, len(i.schema.Tables))

	for _, tbl := range i.schema.Tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if tbl == nil || strings.Contains(strings.ToUpper(tbl.Type), "VIEW") {
			continue
		}

		schemaName, tableName := splitSchemaAndName(tbl.Name, i.schema.Driver)
		snapshot.Tables = append(snapshot.Tables, schemagraph.TableInfo{Schema: schemaName, Name: tableName})
		snapshot.Columns = append(snapshot.Columns, convertColumns(tbl, schemaName, tableName)...)

		if pk, ok := convertPrimaryKey(tbl, schemaName, tableName); ok {
			snapshot.PrimaryKeys = append(snapshot.PrimaryKeys, pk)
		}

		snapshot.ForeignKeys = append(snapshot.ForeignKeys, convertForeignKeys(tbl, schemaName, tableName, i.schema.Driver)...)
	}

	snapshot.ForeignKeys = append(snapshot.ForeignKeys, convertVirtualRelations(i.schema)...)

	pull.FilterSnapshot(snapshot, i.cfg.tableFilter())

	i.logf("Converted schema JSON -> tables=%d foreign_keys=%d", len(snapshot.Tables), len(snapshot.ForeignKeys))

	return snapshot, nil
}

// hasLoadedSchema reports whether a schema JSON payload has been loaded.
func (i *Importer) hasLoadedSchema() bool {
	if i == nil {
		return false
	}

	return i.schemaLoaded
}

func decodeSchemaJSON(r io.Reader) (*tblsschema.Schema, error) {
	dec := json.NewDecoder(r)

	var schema tblsschema.Schema
	if err := dec.Decode(&schema); err != nil {
		return nil, err
	}

	return &schema, nil
}

func validateSchema(s *tblsschema.Schema) error {
	if s == nil {
		return ErrSchemaPayloadNil
	}

	if s.Driver == nil {
		return ErrDriverMetadataMissing
	}

	if strings.TrimSpace(s.Driver.Name) == "" {
		return ErrDriverNameEmpty
	}

	if len(s.Tables) == 0 {
		return ErrSchemaTablesEmpty
	}

	return nil
}

func (i *Importer) logf(format string, args ...any) {
	if i == nil || i.cfg == nil {
		return
	}

	i.cfg.logf(format, args...)
}

func convertColumns(tbl *tblsschema.Table, schemaName, tableName string) []schemagraph.ColumnInfo {
	columns := make([]schemagraph.ColumnInfo, 0, len(tbl.Columns))

	for _, col := range tbl.Columns {
		if col == nil {
			continue
		}

		info := schemagraph.ColumnInfo{
			TableSchema:     schemaName,
			TableName:       tableName,
			Name:            col.Name,
			SQLType:         strings.TrimSpace(col.Type),
			IsNullable:      col.Nullable,
			OrdinalPosition: len(columns) + 1,
		}
		pull.ApplyDeclaredSize(&info)

		columns = append(columns, info)
	}

	return columns
}

// convertPrimaryKey prefers the PRIMARY KEY constraint and falls back to
// column pk flags.
func convertPrimaryKey(tbl *tblsschema.Table, schemaName, tableName string) (schemagraph.PrimaryKeyInfo, bool) {
	pk := schemagraph.PrimaryKeyInfo{TableSchema: schemaName, TableName: tableName}

	for _, c := range tbl.Constraints {
		if c == nil || !strings.EqualFold(c.Type, "PRIMARY KEY") {
			continue
		}

		pk.ConstraintName = c.Name
		pk.Columns = append([]string(nil), c.Columns...)

		return pk, len(pk.Columns) > 0
	}

	for _, col := range tbl.Columns {
		if col != nil && col.PK {
			pk.Columns = append(pk.Columns, col.Name)
		}
	}

	return pk, len(pk.Columns) > 0
}

func convertForeignKeys(tbl *tblsschema.Table, schemaName, tableName string, driver *tblsschema.Driver) []schemagraph.ForeignKeyInfo {
	var fks []schemagraph.ForeignKeyInfo

	for _, c := range tbl.Constraints {
		if c == nil || !strings.EqualFold(c.Type, "FOREIGN KEY") || c.ReferencedTable == nil {
			continue
		}

		toSchema, toTable := splitSchemaAndName(*c.ReferencedTable, driver)
		fks = append(fks, schemagraph.ForeignKeyInfo{
			ConstraintName: c.Name,
			FromSchema:     schemaName,
			FromTable:      tableName,
			FromColumns:    append([]string(nil), c.Columns...),
			ToSchema:       toSchema,
			ToTable:        toTable,
			ToColumns:      append([]string(nil), c.ReferencedColumns...),
		})
	}

	return fks
}

func convertVirtualRelations(schema *tblsschema.Schema) []schemagraph.ForeignKeyInfo {
	var fks []schemagraph.ForeignKeyInfo

	for n, rel := range schema.Relations {
		if rel == nil || !rel.Virtual || rel.Table == nil || rel.ParentTable == nil {
			continue
		}

		fromSchema, fromTable := splitSchemaAndName(rel.Table.Name, schema.Driver)
		toSchema, toTable := splitSchemaAndName(rel.ParentTable.Name, schema.Driver)

		fks = append(fks, schemagraph.ForeignKeyInfo{
			ConstraintName: fmt.Sprintf("virtual_%s_%s_%d", fromTable, toTable, n),
			FromSchema:     fromSchema,
			FromTable:      fromTable,
			FromColumns:    columnNames(rel.Columns),
			ToSchema:       toSchema,
			ToTable:        toTable,
			ToColumns:      columnNames(rel.ParentColumns),
		})
	}

	return fks
}

func columnNames(columns []*tblsschema.Column) []string {
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		if col != nil {
			names = append(names, col.Name)
		}
	}

	return names
}

func normalizeDriverName(driver string) string {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return "postgres"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return strings.ToLower(driver)
	}
}

func splitSchemaAndName(fullName string, driver *tblsschema.Driver) (string, string) {
	schemaName := ""
	tableName := fullName

	if idx := strings.Index(fullName, "."); idx >= 0 {
		schemaName = fullName[:idx]
		tableName = fullName[idx+1:]
	} else if driver != nil && driver.Meta != nil && driver.Meta.CurrentSchema != "" {
		schemaName = driver.Meta.CurrentSchema
	}

	return schemaName, tableName
}

func inferDatabaseName(cfg *Config, schema *tblsschema.Schema) string {
	if cfg.DatabaseName != "" {
		return cfg.DatabaseName
	}

	if cfg.TblsConfig != nil {
		if name := extractDatabaseNameFromDSN(strings.TrimSpace(cfg.TblsConfig.DSN.URL)); name != "" {
			return name
		}

		if cfg.TblsConfig.Name != "" {
			return cfg.TblsConfig.Name
		}
	}

	return schema.Name
}

func inferServerName(cfg *Config) string {
	if cfg.ServerName != "" {
		return cfg.ServerName
	}

	dsn := cfg.DSN()
	if strings.HasPrefix(dsn, "sqlite") {
		return "localhost"
	}

	if u, err := url.Parse(dsn); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}

	return "localhost"
}

func extractDatabaseNameFromDSN(dsn string) string {
	if dsn == "" {
		return ""
	}

	if strings.HasPrefix(dsn, "sqlite://") {
		trimmed := strings.TrimSuffix(strings.TrimPrefix(dsn, "sqlite://"), "/")

		base := filepath.Base(trimmed)
		if base != "." && base != "" {
			return strings.TrimSuffix(base, filepath.Ext(base))
		}

		return "sqlite"
	}

	if u, err := url.Parse(dsn); err == nil {
		if name := strings.TrimPrefix(u.Path, "/"); name != "" {
			return name
		}
	}

	return ""
}
