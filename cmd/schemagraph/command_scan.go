package main

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/shibukawa/schemagraph"
	"github.com/shibukawa/schemagraph/pull"
)

// ScanCmd represents the scan command
type ScanCmd struct {
	// Database connection options
	DB   string `help:"Database connection string"`
	Env  string `help:"Environment name from configuration"`
	Type string `help:"Database type (postgresql, mysql, sqlite)"`

	// Metadata overrides
	Name   string `help:"Database name recorded in the graph"`
	Server string `help:"Server name recorded in the graph"`

	// Filtering options, appended to the scan section of the configuration
	IncludeSchemas []string `help:"Schemas to include (can be specified multiple times)"`
	ExcludeSchemas []string `help:"Schemas to exclude (can be specified multiple times)"`
	IncludeTables  []string `help:"Table patterns to include (can be specified multiple times)"`
	ExcludeTables  []string `help:"Table patterns to exclude (can be specified multiple times)"`

	Keep bool `help:"Merge into the existing graph instead of replacing it"`
}

func (s *ScanCmd) Run(ctx *Context) error {
	config, err := ctx.loadConfig()
	if err != nil {
		return err
	}

	db, err := s.resolveDatabase(config)
	if err != nil {
		return fmt.Errorf("failed to resolve database connection: %w", err)
	}

	pullConfig := pull.NewPullConfig(db, s.scanConfig(config.Scan))
	if pullConfig.DatabaseType == "" {
		return ErrEmptyDatabaseType
	}

	if ctx.Verbose {
		color.Blue("Database type: %s", pullConfig.DatabaseType)
		color.Blue("Graph file: %s", ctx.graphPath(config))
	}

	c, stop := ctx.signalContext()
	defer stop()

	result, err := pull.ExecutePull(c, pullConfig)
	if err != nil {
		return fmt.Errorf("failed to scan database: %w", err)
	}

	if ctx.Verbose {
		color.Blue("Extracted %d tables in %s", len(result.Snapshot.Tables), result.Duration)
	}

	_, err = ctx.buildGraph(c, config, result.Snapshot, s.Keep)

	return err
}

// resolveDatabase picks --db over --env.
func (s *ScanCmd) resolveDatabase(config *schemagraph.Config) (schemagraph.Database, error) {
	var db schemagraph.Database

	switch {
	case s.DB != "":
		db = schemagraph.Database{Driver: s.Type, Connection: s.DB}
	case s.Env != "":
		configured, err := config.Database(s.Env)
		if err != nil {
			return schemagraph.Database{}, err
		}
		db = configured
		if s.Type != "" {
			db.Driver = s.Type
		}
	default:
		return schemagraph.Database{}, ErrMissingDBOrEnv
	}

	if s.Name != "" {
		db.Name = s.Name
	}
	if s.Server != "" {
		db.Server = s.Server
	}

	return db, nil
}

func (s *ScanCmd) scanConfig(base schemagraph.ScanConfig) schemagraph.ScanConfig {
	scan := schemagraph.ScanConfig{
		IncludeSchemas: append(append([]string(nil), base.IncludeSchemas...), s.IncludeSchemas...),
		ExcludeSchemas: append(append([]string(nil), base.ExcludeSchemas...), s.ExcludeSchemas...),
		TablePatterns: schemagraph.TablePatterns{
			Include: append([]string(nil), base.TablePatterns.Include...),
			Exclude: append(append([]string(nil), base.TablePatterns.Exclude...), s.ExcludeTables...),
		},
	}

	// Explicit includes replace the catch-all default
	if len(s.IncludeTables) > 0 {
		scan.TablePatterns.Include = append([]string(nil), s.IncludeTables...)
	}

	return scan
}
