// Package debug formats nested data as indented text for debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

const indentUnit = "  "

// TreeWriter accumulates indented lines, depth is number of indent units.
type TreeWriter struct {
	b strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{}
}

func (tw *TreeWriter) String() string {
	return tw.b.String()
}

func (tw *TreeWriter) indent(depth int) {
	tw.b.WriteString(strings.Repeat(indentUnit, max(depth, 0)))
}

// Line writes formatted line.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(&tw.b, format, args...)
	tw.b.WriteByte('\n')
}

// TextBlock writes "label: value" with value quoted so whitespace and
// control characters stay visible. Empty value is written as is.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.b.WriteString(label)
	tw.b.WriteString(": ")
	if value != "" {
		value = strconv.Quote(value)
	}
	tw.b.WriteString(value)
	tw.b.WriteByte('\n')
}

// Change writes "label: from -> to", or just "label: from" when values
// print the same.
func (tw *TreeWriter) Change(depth int, label string, from, to any) {
	a, b := fmt.Sprint(from), fmt.Sprint(to)
	if a == b {
		tw.Line(depth, "%s: %s", label, a)
		return
	}
	tw.Line(depth, "%s: %s -> %s", label, a, b)
}
