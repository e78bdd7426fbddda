package schemaimport

import (
	"context"

	"github.com/shibukawa/schemagraph"
)

// Runtime is the outcome of a full import: where everything was found and
// what it converted to.
type Runtime struct {
	Config   Config
	Snapshot *schemagraph.Snapshot
}

// LoadRuntime resolves opts, reads schema.json and converts it.
func LoadRuntime(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, err := ResolveConfig(opts)
	if err != nil {
		return nil, err
	}

	importer := NewImporter(cfg)

	err = importer.LoadSchemaJSON(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := importer.Convert(ctx)
	if err != nil {
		return nil, err
	}

	return &Runtime{Config: *importer.Config(), Snapshot: snapshot}, nil
}
