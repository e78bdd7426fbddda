// Package tablefilter selects tables with CEL predicates such as
// `row_count > 1000 && "actor" in tags`.
//
// Variables: id, schema, name (string); row_count (int, -1 when unknown);
// size_mb (double, -1 when unknown); primary_key, tags (list of string).
package tablefilter

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/shibukawa/schemagraph/engine"
)

var (
	ErrInvalidExpression = errors.New("invalid filter expression")
	ErrNotBoolean        = errors.New("filter expression must evaluate to bool")
	ErrEvaluation        = errors.New("filter evaluation failed")
)

// Filter is a compiled table predicate. It is safe for concurrent use.
type Filter struct {
	expr    string
	program cel.Program
}

var env = mustEnv()

func mustEnv() *cel.Env {
	e, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("schema", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("row_count", cel.IntType),
		cel.Variable("size_mb", cel.DoubleType),
		cel.Variable("primary_key", cel.ListType(cel.StringType)),
		cel.Variable("tags", cel.ListType(cel.StringType)),
	)
	if err != nil {
		panic(fmt.Sprintf("tablefilter: failed to create CEL environment: %v", err))
	}
	return e
}

// Compile parses and type-checks expr.
func Compile(expr string) (*Filter, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExpression, issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q has type %s", ErrNotBoolean, expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}

	return &Filter{expr: expr, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.expr
}

// Match evaluates the filter against one table.
func (f *Filter) Match(table engine.TableSummary) (bool, error) {
	result, _, err := f.program.Eval(activation(table))
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrEvaluation, table.Name, err)
	}

	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotBoolean, table.Name)
	}

	return matched, nil
}

// Apply keeps the tables that match, preserving order.
func (f *Filter) Apply(tables []engine.TableSummary) ([]engine.TableSummary, error) {
	matched := make([]engine.TableSummary, 0, len(tables))
	for _, table := range tables {
		ok, err := f.Match(table)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, table)
		}
	}

	return matched, nil
}

func activation(table engine.TableSummary) map[string]any {
	rowCount := int64(-1)
	if table.RowCount != nil {
		rowCount = *table.RowCount
	}

	sizeMB := -1.0
	if table.SizeMB != nil {
		sizeMB = *table.SizeMB
	}

	return map[string]any{
		"id":          table.Name,
		"schema":      table.Schema,
		"name":        table.Table,
		"row_count":   rowCount,
		"size_mb":     sizeMB,
		"primary_key": nonNil(table.PK),
		"tags":        nonNil(table.Tags),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
