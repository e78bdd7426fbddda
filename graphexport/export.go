// Package graphexport dumps a stored schema graph as GraphML, YAML or JSON.
package graphexport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/shibukawa/schemagraph"
	"github.com/shibukawa/schemagraph/graphstore"
)

// Format names an export encoding
type Format string

const (
	FormatGraphML Format = "graphml"
	FormatYAML    Format = "yaml"
	FormatJSON    Format = "json"
)

// Formats lists the supported encodings
var Formats = []Format{FormatGraphML, FormatYAML, FormatJSON}

// Document is the whole graph: metadata, nodes and edges, each sorted by id.
type Document struct {
	Metadata map[string]any    `json:"metadata" yaml:"metadata"`
	Stats    graphstore.Stats  `json:"stats" yaml:"stats"`
	Nodes    []graphstore.Node `json:"nodes" yaml:"nodes"`
	Edges    []graphstore.Edge `json:"edges" yaml:"edges"`
}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "graphml", "xml":
		return FormatGraphML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", schemagraph.ErrUnknownExportFormat, name)
	}
}

// Load reads the complete graph from the store.
func Load(ctx context.Context, store *graphstore.Store) (*Document, error) {
	metadata, err := store.AllMetadata(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	nodes, err := store.GetAllNodes(ctx)
	if err != nil {
		return nil, err
	}

	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return nil, err
	}

	return &Document{
		Metadata: metadata,
		Stats:    stats,
		Nodes:    nodes,
		Edges:    edges,
	}, nil
}

// Write encodes doc in the given format.
func Write(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatGraphML:
		return WriteGraphML(w, doc)
	case FormatYAML:
		return WriteYAML(w, doc)
	case FormatJSON:
		return WriteJSON(w, doc)
	default:
		return fmt.Errorf("%w: %q", schemagraph.ErrUnknownExportFormat, format)
	}
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode graph as JSON: %w", err)
	}

	return nil
}

// WriteYAML writes doc as YAML.
func WriteYAML(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w, yaml.IndentSequence(true))
	defer enc.Close()

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode graph as YAML: %w", err)
	}

	return nil
}
