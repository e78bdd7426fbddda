package pull

import (
	"context"
	"time"

	"github.com/shibukawa/schemagraph"
)

// PullConfig contains configuration for the pull operation
type PullConfig struct {
	DatabaseURL    string
	DatabaseType   string
	DatabaseName   string // Overrides the name reported by the catalog
	ServerName     string // Overrides the server reported by the catalog
	IncludeSchemas []string
	ExcludeSchemas []string
	IncludeTables  []string
	ExcludeTables  []string
}

// PullResult contains the result of a pull operation
type PullResult struct {
	Snapshot    *schemagraph.Snapshot
	ExtractedAt time.Time
	Duration    time.Duration
}

// PullOperation represents a complete pull operation
type PullOperation struct {
	Config    PullConfig
	connector *DatabaseConnector
	now       func() time.Time
}

// NewPullConfig derives a pull configuration from a configured database
// and the scan filters.
func NewPullConfig(db schemagraph.Database, scan schemagraph.ScanConfig) PullConfig {
	config := PullConfig{
		DatabaseURL:    db.Connection,
		DatabaseType:   normalizeDatabaseType(db.Driver),
		DatabaseName:   db.Name,
		ServerName:     db.Server,
		IncludeSchemas: scan.IncludeSchemas,
		ExcludeSchemas: scan.ExcludeSchemas,
		IncludeTables:  scan.TablePatterns.Include,
		ExcludeTables:  scan.TablePatterns.Exclude,
	}

	if config.DatabaseType == "" {
		config.DatabaseType, _ = NewDatabaseConnector().ParseDatabaseURL(db.Connection)
	}

	return config
}

// NewPullOperation creates a new pull operation
func NewPullOperation(config PullConfig) *PullOperation {
	return &PullOperation{
		Config:    config,
		connector: NewDatabaseConnector(),
		now:       time.Now,
	}
}

// ValidateConfig validates the pull configuration
func (p *PullOperation) ValidateConfig() error {
	if p.Config.DatabaseURL == "" {
		return ErrEmptyDatabaseURL
	}
	if p.Config.DatabaseType == "" {
		return ErrEmptyDatabaseType
	}

	if err := ValidateExtractConfig(p.extractConfig()); err != nil {
		return err
	}

	return p.connector.ValidateConnectionString(p.Config.DatabaseURL)
}

// Execute connects to the database and extracts its snapshot.
func (p *PullOperation) Execute(ctx context.Context) (*PullResult, error) {
	if err := p.ValidateConfig(); err != nil {
		return nil, err
	}

	extractor, err := NewExtractor(p.Config.DatabaseType)
	if err != nil {
		return nil, err
	}

	started := p.now()

	db, err := p.connector.Connect(ctx, p.Config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	snapshot, err := extractor.Extract(ctx, db, p.extractConfig())
	if err != nil {
		return nil, err
	}

	if p.Config.DatabaseName != "" {
		snapshot.DatabaseName = p.Config.DatabaseName
	}
	if p.Config.ServerName != "" {
		snapshot.ServerName = p.Config.ServerName
	}

	return &PullResult{
		Snapshot:    snapshot,
		ExtractedAt: started,
		Duration:    p.now().Sub(started),
	}, nil
}

func (p *PullOperation) extractConfig() ExtractConfig {
	return ExtractConfig{
		IncludeSchemas: p.Config.IncludeSchemas,
		ExcludeSchemas: p.Config.ExcludeSchemas,
		IncludeTables:  p.Config.IncludeTables,
		ExcludeTables:  p.Config.ExcludeTables,
	}
}

// ExecutePull is a convenience function that performs a complete pull operation
func ExecutePull(ctx context.Context, config PullConfig) (*PullResult, error) {
	return NewPullOperation(config).Execute(ctx)
}
