package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/shibukawa/schemagraph/graphstore"
)

// GenerateJoin builds a SELECT joining the given tables along the path
// found by FindMultiPath. When selectAll is false the select list is a bare *.
func (e *Engine) GenerateJoin(ctx context.Context, tables []string, selectAll bool) (*JoinResult, error) {
	failed := func(explanation string) *JoinResult {
		return &JoinResult{
			Tables:      append([]string{}, tables...),
			Joins:       []JoinStep{},
			Explanation: explanation,
		}
	}

	if len(tables) < 2 {
		return failed("Need at least two tables to generate a join."), nil
	}

	path, err := e.FindMultiPath(ctx, tables)
	if err != nil {
		return nil, err
	}
	if !path.Found {
		return failed(path.Explanation), nil
	}

	aliases := assignAliases(path.Path)

	var sb strings.Builder
	sb.WriteString("SELECT\n")
	if selectAll {
		parts := make([]string, len(aliases))
		for i, alias := range aliases {
			parts[i] = "    " + alias + ".*"
		}
		sb.WriteString(strings.Join(parts, ",\n"))
	} else {
		sb.WriteString("    *")
	}
	fmt.Fprintf(&sb, "\nFROM %s %s", path.Path[0], aliases[0])

	joins := make([]JoinStep, 0, len(path.Edges))
	for i, edge := range path.Edges {
		step := JoinStep{
			FromTable:    path.Path[i],
			FromAlias:    aliases[i],
			ToTable:      path.Path[i+1],
			ToAlias:      aliases[i+1],
			OnConditions: onConditions(edge, aliases[i], aliases[i+1]),
			Constraint:   edge.Attrs.ConstraintName,
		}

		on := "1=1"
		if len(step.OnConditions) > 0 {
			on = strings.Join(step.OnConditions, " AND ")
		}
		fmt.Fprintf(&sb, "\nJOIN %s %s\n    ON %s", step.ToTable, step.ToAlias, on)

		joins = append(joins, step)
	}
	sb.WriteString(";")

	return &JoinResult{
		Success:     true,
		SQL:         sb.String(),
		Tables:      path.Path,
		Joins:       joins,
		Explanation: fmt.Sprintf("Generated join connecting %d tables via %d JOIN(s).", len(path.Path), len(joins)),
	}, nil
}

// onConditions equates the paired fk columns of edge. FromColumns always
// belong to the referencing table and ToColumns to the referenced one, so a
// forward hop (referencing -> referenced) compares to.ToColumns with
// from.FromColumns and a reverse hop compares to.FromColumns with
// from.ToColumns.
func onConditions(edge graphstore.Edge, fromAlias, toAlias string) []string {
	fromCols, toCols := edge.Attrs.FromColumns, edge.Attrs.ToColumns
	n := min(len(fromCols), len(toCols))

	conditions := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if edge.Attrs.Reverse {
			conditions = append(conditions, fmt.Sprintf("%s.%s = %s.%s", toAlias, fromCols[i], fromAlias, toCols[i]))
		} else {
			conditions = append(conditions, fmt.Sprintf("%s.%s = %s.%s", toAlias, toCols[i], fromAlias, fromCols[i]))
		}
	}

	return conditions
}

// sqlKeywords are skipped as aliases; `JOIN dbo.OrderItems or` does not parse.
var sqlKeywords = map[string]bool{
	"add": true, "all": true, "and": true, "any": true, "as": true, "asc": true,
	"at": true, "by": true, "case": true, "cast": true, "check": true, "cross": true,
	"desc": true, "do": true, "drop": true, "else": true, "end": true, "exists": true,
	"for": true, "from": true, "full": true, "group": true, "if": true, "in": true,
	"inner": true, "into": true, "is": true, "join": true, "key": true, "left": true,
	"like": true, "limit": true, "not": true, "null": true, "of": true, "on": true,
	"or": true, "order": true, "outer": true, "over": true, "right": true, "row": true,
	"select": true, "set": true, "table": true, "then": true, "to": true, "top": true,
	"union": true, "use": true, "user": true, "using": true, "view": true, "when": true,
	"where": true, "with": true,
}

// assignAliases gives every path position a distinct alias: the lowercased
// first letter of the short table name, then longer prefixes on collision
// or when the prefix is a SQL keyword, then the first letter plus a counter
// once the name is exhausted.
func assignAliases(path []string) []string {
	aliases := make([]string, len(path))
	used := make(map[string]bool, len(path))

	for i, table := range path {
		name := shortName(table)
		if name == "" {
			name = "t"
		}
		lower := strings.ToLower(name)
		runes := []rune(lower)

		base := string(runes[0])
		alias := base
		for counter := 1; used[alias] || sqlKeywords[alias]; {
			counter++
			if counter <= len(runes) {
				alias = string(runes[:counter])
			} else {
				alias = fmt.Sprintf("%s%d", base, counter-len(runes))
			}
		}

		aliases[i] = alias
		used[alias] = true
	}

	return aliases
}

func shortName(tableID string) string {
	if i := strings.LastIndex(tableID, "."); i >= 0 {
		return tableID[i+1:]
	}
	return tableID
}
