package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/shibukawa/schemagraph/graphexport"
)

// ExportCmd represents the export command
type ExportCmd struct {
	Output string `short:"o" help:"Output file (stdout when omitted)" type:"path"`
	Format string `short:"f" help:"Output format (graphml, yaml, json); inferred from the output extension when omitted"`
}

func (cmd *ExportCmd) Run(ctx *Context) error {
	format, err := cmd.resolveFormat()
	if err != nil {
		return err
	}

	c, stop := ctx.signalContext()
	defer stop()

	store, err := ctx.openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	doc, err := graphexport.Load(c, store)
	if err != nil {
		return err
	}

	if cmd.Output == "" {
		return graphexport.Write(ctx.out(), doc, format)
	}

	f, err := os.Create(cmd.Output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", cmd.Output, err)
	}

	if err := graphexport.Write(f, doc, format); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", cmd.Output, err)
	}

	if !ctx.Quiet {
		color.Green("✓ Exported %d nodes and %d edges to %s", len(doc.Nodes), len(doc.Edges), cmd.Output)
	}

	return nil
}

func (cmd *ExportCmd) resolveFormat() (graphexport.Format, error) {
	switch {
	case cmd.Format != "":
		return graphexport.ParseFormat(cmd.Format)
	case cmd.Output != "":
		return graphexport.ParseFormat(filepath.Ext(cmd.Output))
	default:
		return "", ErrExportTargetMissing
	}
}
