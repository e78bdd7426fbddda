package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shibukawa/schemagraph/engine"
	"github.com/shibukawa/schemagraph/tablefilter"
)

// TablesCmd represents the tables command
type TablesCmd struct {
	Where string `help:"CEL filter, e.g. 'row_count > 1000 && schema == \"dbo\"'"`
	JSON  bool   `help:"Output as JSON"`
}

func (cmd *TablesCmd) Run(ctx *Context) error {
	var filter *tablefilter.Filter
	if cmd.Where != "" {
		f, err := tablefilter.Compile(cmd.Where)
		if err != nil {
			return err
		}
		filter = f
	}

	return ctx.withEngine(func(c context.Context, e *engine.Engine) error {
		tables, err := e.ListTables(c)
		if err != nil {
			return err
		}

		if filter != nil {
			tables, err = filter.Apply(tables)
			if err != nil {
				return err
			}
		}

		if cmd.JSON {
			if tables == nil {
				tables = []engine.TableSummary{}
			}
			return printJSON(ctx.out(), tables)
		}

		tw := tabwriter.NewWriter(ctx.out(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TABLE\tROWS\tSIZE_MB\tPRIMARY KEY")
		for _, t := range tables {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name, formatRowCount(t.RowCount), formatSizeMB(t.SizeMB), strings.Join(t.PK, ", "))
		}

		return tw.Flush()
	})
}

// RelationshipsCmd represents the relationships command
type RelationshipsCmd struct {
	JSON bool `help:"Output as JSON"`
}

func (cmd *RelationshipsCmd) Run(ctx *Context) error {
	return ctx.withEngine(func(c context.Context, e *engine.Engine) error {
		relationships, err := e.ListRelationships(c)
		if err != nil {
			return err
		}

		if cmd.JSON {
			return printJSON(ctx.out(), relationships)
		}

		for _, rel := range relationships {
			fmt.Fprintf(ctx.out(), "%s(%s) → %s(%s) [%s]\n",
				rel.FromTable, strings.Join(rel.FromColumns, ", "),
				rel.ToTable, strings.Join(rel.ToColumns, ", "),
				rel.Constraint)
		}

		return nil
	})
}

// ColumnsCmd represents the columns command
type ColumnsCmd struct {
	Table string `help:"Only list columns of this table"`
	JSON  bool   `help:"Output as JSON"`
}

func (cmd *ColumnsCmd) Run(ctx *Context) error {
	return ctx.withEngine(func(c context.Context, e *engine.Engine) error {
		columns, err := e.ListColumns(c)
		if err != nil {
			return err
		}

		if cmd.Table != "" {
			tableID, found, err := e.ResolveTable(c, cmd.Table)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: %s", ErrTableNotFound, cmd.Table)
			}

			filtered := make([]engine.ColumnSummary, 0)
			for _, col := range columns {
				if col.Table == tableID {
					filtered = append(filtered, col)
				}
			}
			columns = filtered
		}

		if cmd.JSON {
			return printJSON(ctx.out(), columns)
		}

		tw := tabwriter.NewWriter(ctx.out(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COLUMN\tTYPE\tNULLABLE\tPK\tFK")
		for _, col := range columns {
			fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%t\n", col.ID, col.SQLType, col.IsNullable, col.IsPK, col.IsFK)
		}

		return tw.Flush()
	})
}

// StatsCmd represents the stats command
type StatsCmd struct {
	JSON bool `help:"Output as JSON"`
}

func (cmd *StatsCmd) Run(ctx *Context) error {
	return ctx.withEngine(func(c context.Context, e *engine.Engine) error {
		stats, info, err := e.Stats(c)
		if err != nil {
			return err
		}

		if cmd.JSON {
			return printJSON(ctx.out(), map[string]any{"stats": stats, "scan": info})
		}

		w := ctx.out()
		fmt.Fprintf(w, "Database: %s\n", info.DatabaseName)
		fmt.Fprintf(w, "Server: %s\n", info.ServerName)
		fmt.Fprintf(w, "Scanned at: %s\n", info.ScanTimestamp)
		if info.Source != "" {
			fmt.Fprintf(w, "Source: %s\n", info.Source)
		}
		fmt.Fprintf(w, "Tables: %d\n", stats.Tables)
		fmt.Fprintf(w, "Columns: %d\n", stats.Columns)
		fmt.Fprintf(w, "Foreign keys: %d\n", stats.ForeignKeys)
		fmt.Fprintf(w, "Column relationships: %d\n", stats.ColumnRelationships)

		return nil
	})
}
