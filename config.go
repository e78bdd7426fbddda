package schemagraph

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// ErrConfigValidation is returned when configuration validation fails
var ErrConfigValidation = errors.New("configuration validation failed")

// DefaultGraphPath is the SQLite file used when graph.path is not configured.
const DefaultGraphPath = "schemagraph.sqlite"

// Config represents the schemagraph configuration
type Config struct {
	Graph     GraphConfig         `yaml:"graph"`
	Databases map[string]Database `yaml:"databases"`
	Scan      ScanConfig          `yaml:"scan"`
	Server    ServerConfig        `yaml:"server"`
}

// GraphConfig locates the persisted graph
type GraphConfig struct {
	Path string `yaml:"path"`
}

// Database represents database connection configuration
type Database struct {
	Driver     string `yaml:"driver"`
	Connection string `yaml:"connection"`
	Name       string `yaml:"name"`   // Overrides the database name recorded in graph metadata
	Server     string `yaml:"server"` // Overrides the server name recorded in graph metadata
}

// ScanConfig represents schema/table filters applied during scans
type ScanConfig struct {
	IncludeSchemas []string      `yaml:"include_schemas"`
	ExcludeSchemas []string      `yaml:"exclude_schemas"`
	TablePatterns  TablePatterns `yaml:"table_patterns"`
}

// TablePatterns represents table inclusion/exclusion patterns
type TablePatterns struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// ServerConfig represents HTTP API settings
type ServerConfig struct {
	Addr  string `yaml:"addr"`
	CORS  *bool  `yaml:"cors"` // Pointer to distinguish between unset and false
	Watch *bool  `yaml:"watch"`
}

// CORSEnabled reports whether permissive CORS headers are sent. Enabled unless cors: false.
func (s ServerConfig) CORSEnabled() bool {
	return s.CORS == nil || *s.CORS
}

// WatchEnabled reports whether the graph file is watched for rebuilds. Enabled unless watch: false.
func (s ServerConfig) WatchEnabled() bool {
	return s.Watch == nil || *s.Watch
}

// LoadConfig loads configuration from the specified file
func LoadConfig(configPath string) (*Config, error) {
	err := loadEnvFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to load environment files: %w", err)
	}

	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		config := getDefaultConfig()
		expandConfigEnvVars(config)

		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Strict mode rejects unknown fields
	var config Config

	err = yaml.UnmarshalWithOptions(data, &config, yaml.Strict())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	applyDefaults(&config)
	expandConfigEnvVars(&config)

	return &config, nil
}

// validateConfig validates the configuration for common errors and inconsistencies
func validateConfig(config *Config) error {
	validDrivers := map[string]bool{
		"postgres":   true,
		"postgresql": true,
		"pgx":        true,
		"mysql":      true,
		"sqlite":     true,
		"sqlite3":    true,
	}

	for name, db := range config.Databases {
		if db.Connection == "" {
			return fmt.Errorf("%w: databases.%s: connection is required", ErrConfigValidation, name)
		}

		if db.Driver != "" && !validDrivers[db.Driver] {
			return fmt.Errorf("%w: databases.%s: invalid driver '%s': must be one of postgres, mysql, sqlite", ErrConfigValidation, name, db.Driver)
		}
	}

	for _, include := range config.Scan.IncludeSchemas {
		for _, exclude := range config.Scan.ExcludeSchemas {
			if include == exclude {
				return fmt.Errorf("%w: scan: schema '%s' is both included and excluded", ErrConfigValidation, include)
			}
		}
	}

	if config.Server.Addr != "" && !strings.Contains(config.Server.Addr, ":") {
		return fmt.Errorf("%w: server.addr '%s' must be host:port or :port", ErrConfigValidation, config.Server.Addr)
	}

	return nil
}

// getDefaultConfig returns the default configuration
func getDefaultConfig() *Config {
	return &Config{
		Graph: GraphConfig{
			Path: DefaultGraphPath,
		},
		Databases: make(map[string]Database),
		Scan: ScanConfig{
			TablePatterns: TablePatterns{
				Include: []string{"*"},
			},
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// applyDefaults applies default values to missing configuration fields
func applyDefaults(config *Config) {
	if config.Graph.Path == "" {
		config.Graph.Path = DefaultGraphPath
	}

	if config.Databases == nil {
		config.Databases = make(map[string]Database)
	}

	if len(config.Scan.TablePatterns.Include) == 0 {
		config.Scan.TablePatterns.Include = []string{"*"}
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

// loadEnvFiles loads .env files if they exist
func loadEnvFiles() error {
	if fileExists(".env") {
		err := godotenv.Load(".env")
		if err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	return nil
}

var (
	bracedEnvPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
	bareEnvPattern   = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars expands environment variables in the format ${VAR} or $VAR
func expandEnvVars(s string) string {
	s = bracedEnvPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})

	return bareEnvPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[1:])
	})
}

// expandConfigEnvVars expands environment variables in connection settings and paths
func expandConfigEnvVars(config *Config) {
	for name, db := range config.Databases {
		db.Connection = expandEnvVars(db.Connection)
		db.Driver = expandEnvVars(db.Driver)
		db.Name = expandEnvVars(db.Name)
		db.Server = expandEnvVars(db.Server)
		config.Databases[name] = db
	}

	config.Graph.Path = expandEnvVars(config.Graph.Path)
	config.Server.Addr = expandEnvVars(config.Server.Addr)
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// Database returns the named database environment.
func (c *Config) Database(environment string) (Database, error) {
	db, ok := c.Databases[environment]
	if !ok {
		return Database{}, fmt.Errorf("%w: %s", ErrDatabaseNotConfigured, environment)
	}

	return db, nil
}
