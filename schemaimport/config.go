package schemaimport

import (
	"slices"
	"strings"

	tblsconfig "github.com/k1LoW/tbls/config"

	"github.com/shibukawa/schemagraph/pull"
)

// Config is Options after path resolution. TblsConfig is nil when a bare
// schema.json is imported.
type Config struct {
	Options

	DocPath    string
	TblsConfig *tblsconfig.Config
}

// NewConfig copies opts without resolving anything.
func NewConfig(opts Options) Config {
	opts.Include = slices.Clone(opts.Include)
	opts.Exclude = slices.Clone(opts.Exclude)

	return Config{Options: opts}
}

// DSN returns the tbls dsn, or "" without a tbls config.
func (c Config) DSN() string {
	if c.TblsConfig == nil {
		return ""
	}

	return strings.TrimSpace(c.TblsConfig.DSN.URL)
}

func (c Config) tableFilter() pull.ExtractConfig {
	return pull.ExtractConfig{IncludeTables: c.Include, ExcludeTables: c.Exclude}
}

func (c Config) logf(format string, args ...any) {
	if c.Verbose && c.Logger != nil {
		c.Logger(format, args...)
	}
}
