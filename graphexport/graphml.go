package graphexport

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/shibukawa/schemagraph/graphstore"
)

const graphMLNamespace = "http://graphml.graphdrawing.org/xmlns"

type graphMLKey struct {
	id, target, attrType string
}

// Attribute keys, in declaration order
var graphMLKeys = []graphMLKey{
	{"type", "all", "string"},
	{"schema", "node", "string"},
	{"name", "node", "string"},
	{"row_count", "node", "long"},
	{"size_mb", "node", "double"},
	{"primary_key", "node", "string"},
	{"tags", "node", "string"},
	{"table", "node", "string"},
	{"sql_type", "node", "string"},
	{"is_nullable", "node", "boolean"},
	{"is_pk", "node", "boolean"},
	{"is_fk", "node", "boolean"},
	{"ordinal_position", "node", "int"},
	{"weight", "edge", "int"},
	{"constraint_name", "edge", "string"},
	{"from_columns", "edge", "string"},
	{"to_columns", "edge", "string"},
}

// WriteGraphML writes doc as a directed GraphML graph. List values are
// comma separated; metadata becomes graph-level data.
func WriteGraphML(w io.Writer, doc *Document) error {
	xml := etree.NewDocument()
	xml.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := xml.CreateElement("graphml")
	root.CreateAttr("xmlns", graphMLNamespace)

	metaKeys := slices.Sorted(maps.Keys(doc.Metadata))
	for _, key := range metaKeys {
		declareKey(root, "meta_"+key, "graph", "string", key)
	}
	for _, key := range graphMLKeys {
		declareKey(root, key.id, key.target, key.attrType, key.id)
	}

	graph := root.CreateElement("graph")
	graph.CreateAttr("id", "schema")
	graph.CreateAttr("edgedefault", "directed")

	for _, key := range metaKeys {
		addData(graph, "meta_"+key, fmt.Sprint(doc.Metadata[key]))
	}

	for _, node := range doc.Nodes {
		writeNode(graph, node)
	}
	for _, edge := range doc.Edges {
		writeEdge(graph, edge)
	}

	xml.Indent(2)

	if _, err := xml.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write GraphML: %w", err)
	}

	return nil
}

func declareKey(root *etree.Element, id, target, attrType, name string) {
	key := root.CreateElement("key")
	key.CreateAttr("id", id)
	key.CreateAttr("for", target)
	key.CreateAttr("attr.name", name)
	key.CreateAttr("attr.type", attrType)
}

func addData(parent *etree.Element, key, value string) {
	data := parent.CreateElement("data")
	data.CreateAttr("key", key)
	data.SetText(value)
}

func writeNode(graph *etree.Element, node graphstore.Node) {
	el := graph.CreateElement("node")
	el.CreateAttr("id", node.ID)
	addData(el, "type", string(node.Type))

	switch {
	case node.Table != nil:
		t := node.Table
		addData(el, "schema", t.Schema)
		addData(el, "name", t.Name)
		if t.RowCount != nil {
			addData(el, "row_count", strconv.FormatInt(*t.RowCount, 10))
		}
		if t.SizeMB != nil {
			addData(el, "size_mb", strconv.FormatFloat(*t.SizeMB, 'f', -1, 64))
		}
		addData(el, "primary_key", strings.Join(t.PrimaryKey, ","))
		addData(el, "tags", strings.Join(t.Tags, ","))

	case node.Column != nil:
		c := node.Column
		addData(el, "table", c.Table)
		addData(el, "name", c.Name)
		addData(el, "sql_type", c.SQLType)
		addData(el, "is_nullable", strconv.FormatBool(c.IsNullable))
		addData(el, "is_pk", strconv.FormatBool(c.IsPK))
		addData(el, "is_fk", strconv.FormatBool(c.IsFK))
		addData(el, "ordinal_position", strconv.Itoa(c.OrdinalPosition))
	}
}

func writeEdge(graph *etree.Element, edge graphstore.Edge) {
	el := graph.CreateElement("edge")
	el.CreateAttr("id", edge.ID)
	el.CreateAttr("source", edge.FromID)
	el.CreateAttr("target", edge.ToID)

	addData(el, "type", string(edge.Type))
	addData(el, "weight", strconv.Itoa(edge.Weight))
	addData(el, "constraint_name", edge.Attrs.ConstraintName)
	if len(edge.Attrs.FromColumns) > 0 {
		addData(el, "from_columns", strings.Join(edge.Attrs.FromColumns, ","))
		addData(el, "to_columns", strings.Join(edge.Attrs.ToColumns, ","))
	}
}
