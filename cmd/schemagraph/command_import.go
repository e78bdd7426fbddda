package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/shibukawa/schemagraph/schemaimport"
)

// ImportCmd builds the graph from tbls output instead of a live connection
type ImportCmd struct {
	TblsConfig string   `help:"Path to .tbls.yml (defaults to tbls lookup in the working directory)" type:"path"`
	SchemaJSON string   `help:"Path to tbls schema.json (defaults to <docPath>/schema.json)" type:"path"`
	Include    []string `help:"Table patterns to include (can be specified multiple times)"`
	Exclude    []string `help:"Table patterns to exclude (can be specified multiple times)"`
	Name       string   `help:"Database name recorded in the graph"`
	Server     string   `help:"Server name recorded in the graph"`
	Keep       bool     `help:"Merge into the existing graph instead of replacing it"`
}

func (i *ImportCmd) Run(ctx *Context) error {
	config, err := ctx.loadConfig()
	if err != nil {
		return err
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	opts := schemaimport.Options{
		WorkingDir:     workingDir,
		TblsConfigPath: i.TblsConfig,
		SchemaJSONPath: i.SchemaJSON,
		Include:        i.Include,
		Exclude:        i.Exclude,
		DatabaseName:   i.Name,
		ServerName:     i.Server,
		Verbose:        ctx.Verbose,
	}
	if ctx.Verbose {
		opts.Logger = func(format string, args ...any) {
			color.Blue(format, args...)
		}
	}

	c, stop := ctx.signalContext()
	defer stop()

	runtime, err := schemaimport.LoadRuntime(c, opts)
	if err != nil {
		return fmt.Errorf("failed to import tbls schema: %w", err)
	}

	_, err = ctx.buildGraph(c, config, runtime.Snapshot, i.Keep)

	return err
}
