package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/shibukawa/schemagraph"
	"github.com/shibukawa/schemagraph/engine"
	"github.com/shibukawa/schemagraph/graphbuild"
	"github.com/shibukawa/schemagraph/graphstore"
)

func (ctx *Context) out() io.Writer {
	if ctx.Stdout == nil {
		return os.Stdout
	}

	return ctx.Stdout
}

func (ctx *Context) loadConfig() (*schemagraph.Config, error) {
	config, err := schemagraph.LoadConfig(ctx.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if ctx.Verbose {
		color.Blue("Configuration loaded from: %s", ctx.Config)
	}

	return config, nil
}

// graphPath prefers --graph over graph.path.
func (ctx *Context) graphPath(config *schemagraph.Config) string {
	if ctx.Graph != "" {
		return ctx.Graph
	}

	return config.Graph.Path
}

// openStore opens an existing graph for reading.
func (ctx *Context) openStore(c context.Context) (*graphstore.Store, error) {
	config, err := ctx.loadConfig()
	if err != nil {
		return nil, err
	}

	path := ctx.graphPath(config)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, schemagraph.ErrGraphNotFound
	}

	store, err := graphstore.Open(c, path)
	if err != nil {
		return nil, err
	}

	if ctx.Verbose {
		color.Blue("Graph opened: %s", path)
	}

	return store, nil
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func (ctx *Context) signalContext() (context.Context, context.CancelFunc) {
	parent := ctx.base
	if parent == nil {
		parent = context.Background()
	}

	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// withEngine opens the graph and runs fn against a fresh engine.
func (ctx *Context) withEngine(fn func(c context.Context, e *engine.Engine) error) error {
	c, stop := ctx.signalContext()
	defer stop()

	store, err := ctx.openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := engine.New(c, store)
	if err != nil {
		return err
	}

	return fn(c, e)
}

// buildGraph writes snapshot into the configured graph file.
func (ctx *Context) buildGraph(c context.Context, config *schemagraph.Config, snapshot *schemagraph.Snapshot, keep bool) (*graphbuild.Stats, error) {
	if len(snapshot.Tables) == 0 {
		return nil, schemagraph.ErrEmptySnapshot
	}

	path := ctx.graphPath(config)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create graph directory: %w", err)
		}
	}

	store, err := graphstore.Open(c, path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	stats, err := graphbuild.NewBuilder(store).Build(c, snapshot, !keep)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	if !ctx.Quiet {
		color.Green("✓ Graph built: %s", path)
		fmt.Fprintf(ctx.out(), "  Database: %s (%s)\n", stats.Database, stats.Server)
		fmt.Fprintf(ctx.out(), "  Tables: %d, Columns: %d, Foreign keys: %d, Column relationships: %d\n",
			stats.Tables, stats.Columns, stats.ForeignKeys, stats.ColumnRelationships)
		if ctx.Verbose {
			fmt.Fprintf(ctx.out(), "  Scan ID: %s\n", stats.ScanID)
		}
	}

	return stats, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func formatRowCount(v *int64) string {
	if v == nil {
		return "-"
	}

	return fmt.Sprintf("%d", *v)
}

func formatSizeMB(v *float64) string {
	if v == nil {
		return "-"
	}

	return fmt.Sprintf("%.2f", *v)
}
