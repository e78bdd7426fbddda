package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/shibukawa/schemagraph/engine"
)

// ExplainCmd represents the explain command
type ExplainCmd struct {
	Table string `arg:"" help:"Table name (schema.table or bare name)"`
	JSON  bool   `help:"Output as JSON"`
}

func (cmd *ExplainCmd) Run(ctx *Context) error {
	return ctx.withEngine(func(c context.Context, e *engine.Engine) error {
		explanation, found, err := e.ExplainTable(c, cmd.Table)
		if err != nil {
			return err
		}

		if !found {
			return fmt.Errorf("%w: %s", ErrTableNotFound, cmd.Table)
		}

		if cmd.JSON {
			return printJSON(ctx.out(), explanation)
		}

		writeExplanation(ctx.out(), explanation)

		return nil
	})
}

func writeExplanation(w io.Writer, t *engine.TableExplanation) {
	fmt.Fprintf(w, "Table: %s\n", t.TableName)
	fmt.Fprintf(w, "  Rows: %s\n", formatRowCount(t.RowCount))
	fmt.Fprintf(w, "  Size (MB): %s\n", formatSizeMB(t.SizeMB))
	fmt.Fprintf(w, "  Primary key: %s\n", strings.Join(t.PrimaryKey, ", "))
	if len(t.Tags) > 0 {
		fmt.Fprintf(w, "  Tags: %s\n", strings.Join(t.Tags, ", "))
	}

	fmt.Fprintf(w, "\nColumns (%d):\n", len(t.Columns))
	for _, col := range t.Columns {
		var flags []string
		if col.IsPK {
			flags = append(flags, "PK")
		}
		if col.IsFK {
			flags = append(flags, "FK")
		}
		if !col.IsNullable {
			flags = append(flags, "NOT NULL")
		}
		fmt.Fprintf(w, "  %-24s %-16s %s\n", col.Name, col.SQLType, strings.Join(flags, " "))
	}

	if len(t.OutgoingRelationships) > 0 {
		fmt.Fprintf(w, "\nReferences:\n")
		for _, rel := range t.OutgoingRelationships {
			fmt.Fprintf(w, "  → %s (%s) via %s [%s]\n",
				rel.Peer, strings.Join(rel.ToColumns, ", "), strings.Join(rel.FromColumns, ", "), rel.Constraint)
		}
	}

	if len(t.IncomingRelationships) > 0 {
		fmt.Fprintf(w, "\nReferenced by:\n")
		for _, rel := range t.IncomingRelationships {
			fmt.Fprintf(w, "  ← %s (%s) [%s]\n",
				rel.Peer, strings.Join(rel.FromColumns, ", "), rel.Constraint)
		}
	}
}

// PathCmd finds a path through two or more tables, in the given order
type PathCmd struct {
	Tables []string `arg:"" help:"Tables to connect, in order"`
	JSON   bool     `help:"Output as JSON"`
}

func (cmd *PathCmd) Run(ctx *Context) error {
	if len(cmd.Tables) < 2 {
		return ErrInvalidTableCount
	}

	return ctx.withEngine(func(c context.Context, e *engine.Engine) error {
		var (
			result *engine.PathResult
			err    error
		)
		if len(cmd.Tables) == 2 {
			result, err = e.FindPath(c, cmd.Tables[0], cmd.Tables[1])
		} else {
			result, err = e.FindMultiPath(c, cmd.Tables)
		}
		if err != nil {
			return err
		}

		if cmd.JSON {
			return printJSON(ctx.out(), result)
		}

		if !result.Found {
			color.Yellow(result.Explanation)
			return nil
		}

		fmt.Fprintln(ctx.out(), result.Explanation)
		fmt.Fprintf(ctx.out(), "Total weight: %d\n", result.TotalWeight)

		return nil
	})
}

// JoinCmd represents the join command
type JoinCmd struct {
	Tables    []string `arg:"" help:"Tables to join, in order"`
	SelectAll bool     `help:"List alias.* for every table instead of a bare *" default:"true" negatable:""`
	JSON      bool     `help:"Output as JSON"`
}

func (cmd *JoinCmd) Run(ctx *Context) error {
	if len(cmd.Tables) < 2 {
		return ErrInvalidTableCount
	}

	return ctx.withEngine(func(c context.Context, e *engine.Engine) error {
		result, err := e.GenerateJoin(c, cmd.Tables, cmd.SelectAll)
		if err != nil {
			return err
		}

		if cmd.JSON {
			return printJSON(ctx.out(), result)
		}

		if !result.Success {
			color.Yellow(result.Explanation)
			return nil
		}

		fmt.Fprintln(ctx.out(), result.SQL)
		if !ctx.Quiet {
			fmt.Fprintf(ctx.out(), "\n-- %s\n", result.Explanation)
		}

		return nil
	})
}
