// Package testhelper holds fixtures and helpers shared by package tests.
package testhelper

import (
	"strings"
	"testing"
)

// TrimIndent dedents a raw string literal. The leading newline is dropped,
// the indentation of the first content line is removed from every line and
// any tabs left at the start of a line become four spaces each, which is
// how generated SQL is indented.
func TrimIndent(t *testing.T, src string) string {
	t.Helper()

	lines := strings.Split(strings.TrimPrefix(src, "\n"), "\n")
	if len(lines) == 0 {
		return ""
	}

	first := lines[0]
	indent := first[:len(first)-len(strings.TrimLeft(first, " \t"))]

	for i, line := range lines {
		line = strings.TrimPrefix(line, indent)
		body := strings.TrimLeft(line, "\t")
		lines[i] = strings.Repeat("    ", len(line)-len(body)) + body
	}

	return strings.Join(lines, "\n")
}
