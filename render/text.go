package render

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"docflow/layout/flow"
)

// Text produces plain text rendering. Text items of a page sharing a baseline
// become one line, wide horizontal gaps (page numbers of TOC lines) are
// filled with dots.
func Text(doc *Document) []byte {
	var b strings.Builder
	if doc.Title != "" {
		b.WriteString(doc.Title)
		b.WriteString("\n\n")
	}
	for i := range doc.Pages {
		p := &doc.Pages[i]
		fmt.Fprintf(&b, "=== page %d ===\n", p.Number)
		for _, line := range textLines(p) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func textLines(p *flow.Page) []string {
	var items []flow.Item
	for _, it := range p.Items {
		if it.Kind == flow.ItemText {
			items = append(items, it)
		}
	}
	slices.SortStableFunc(items, func(a, b flow.Item) int {
		if c := cmp.Compare(baseline(a), baseline(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.X, b.X)
	})

	var (
		lines []string
		cur   strings.Builder
		last  flow.Item
	)
	for i, it := range items {
		switch {
		case i == 0:
		case baseline(it) != baseline(last):
			lines = append(lines, cur.String())
			cur.Reset()
		case it.X-last.X > float64(utf8.RuneCountInString(last.Text)+4)*it.Size:
			cur.WriteString(" ........ ")
		default:
			cur.WriteByte(' ')
		}
		cur.WriteString(it.Text)
		last = it
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

func baseline(it flow.Item) float64 {
	return math.Round(it.Y * 10)
}
