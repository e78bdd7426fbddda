package schemaimport

// Options selects the tbls artefacts to import. Relative paths are resolved
// against WorkingDir.
type Options struct {
	WorkingDir     string
	TblsConfigPath string // .tbls.yml; looked up in WorkingDir when empty
	SchemaJSONPath string // schema.json; derived from the tbls docPath when empty

	// Table patterns, matched like scan filters
	Include []string
	Exclude []string

	// Snapshot overrides
	DatabaseName string
	ServerName   string

	Verbose bool
	Logger  func(format string, args ...any)
}
