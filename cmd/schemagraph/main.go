package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

// Context represents the global context for commands
type Context struct {
	Config  string
	Graph   string
	Verbose bool
	Quiet   bool

	Stdout io.Writer

	// base is the parent of every command context; nil means Background
	base context.Context
}

var CLI struct {
	Config        string           `help:"Configuration file path" default:"schemagraph.yaml"`
	Graph         string           `help:"Graph file path (overrides graph.path)" type:"path"`
	Verbose       bool             `help:"Enable verbose output" short:"v"`
	Quiet         bool             `help:"Suppress output" short:"q"`
	Scan          ScanCmd          `cmd:"" help:"Scan a database and rebuild the schema graph"`
	Import        ImportCmd        `cmd:"" help:"Build the schema graph from a tbls schema.json"`
	Explain       ExplainCmd       `cmd:"" help:"Describe a table and its relationships"`
	Path          PathCmd          `cmd:"" help:"Find the shortest foreign-key path between tables"`
	Join          JoinCmd          `cmd:"" help:"Generate a SELECT joining the given tables"`
	Tables        TablesCmd        `cmd:"" help:"List tables"`
	Relationships RelationshipsCmd `cmd:"" help:"List foreign-key relationships"`
	Columns       ColumnsCmd       `cmd:"" help:"List columns"`
	Stats         StatsCmd         `cmd:"" help:"Show graph statistics and scan information"`
	Export        ExportCmd        `cmd:"" help:"Export the graph as GraphML, YAML or JSON"`
	Serve         ServeCmd         `cmd:"" help:"Serve the query API over HTTP"`
	Version       VersionCmd       `cmd:"" help:"Show version information"`
}

// VersionCmd represents the version command
type VersionCmd struct{}

// Run executes the version command
func (cmd *VersionCmd) Run(ctx *Context) error {
	fmt.Fprintf(ctx.out(), "schemagraph v%s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("schemagraph"),
		kong.Description("Explore database schemas as a foreign-key graph."),
		kong.UsageOnError(),
	)

	appCtx := &Context{
		Config:  CLI.Config,
		Graph:   CLI.Graph,
		Verbose: CLI.Verbose,
		Quiet:   CLI.Quiet,
		Stdout:  os.Stdout,
	}

	err := ctx.Run(appCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
