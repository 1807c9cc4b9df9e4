// Package toc collects heading notifications produced during a layout pass
// and turns them into table of contents lines.
package toc

import (
	"fmt"

	"go.uber.org/zap"

	"docflow/layout/notify"
	"docflow/layout/style"
	"docflow/utils/debug"
)

// Entry is a single heading observation: heading of Level with Text was
// placed starting on Page.
type Entry struct {
	Level int
	Text  string
	Page  int
}

// Line is rendered TOC line.
type Line struct {
	Level int
	Text  string
	Page  int
	Style style.TocLine
}

// Rendering is an ordered list of TOC lines.
type Rendering []Line

// Equal reports whether both renderings list the same texts on the same
// pages in the same order. Styles are not compared.
func (r Rendering) Equal(o Rendering) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if r[i].Text != o[i].Text || r[i].Page != o[i].Page {
			return false
		}
	}
	return true
}

// Dump returns human readable rendering, used for debug reports.
func (r Rendering) Dump() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "TOC: %d lines", len(r))
	for _, l := range r {
		tw.Line(l.Level+1, "[%d] page %d", l.Level, l.Page)
		tw.TextBlock(l.Level+2, "text", l.Text)
	}
	return tw.String()
}

// Model accumulates entries of the current pass. It does not check that
// pages are non-decreasing, entries are kept in arrival order.
type Model struct {
	styles     []style.TocLine
	entries    []Entry
	subscribed map[*notify.Bus]bool
	log        *zap.Logger
}

// NewModel creates model rendering entries with styles, styles[i] serves
// level i and deeper levels use the last one.
func NewModel(styles []style.TocLine, log *zap.Logger) *Model {
	return &Model{
		styles: styles,
		log:    log,
	}
}

// Subscribe attaches model to bus heading notifications. Repeated calls for
// the same bus do nothing, so every heading is recorded once.
func (m *Model) Subscribe(bus *notify.Bus) {
	if m.subscribed[bus] {
		return
	}
	if m.subscribed == nil {
		m.subscribed = make(map[*notify.Bus]bool)
	}
	m.subscribed[bus] = true
	bus.Subscribe(notify.EventTOCEntry, m.Handle)
}

// Validate checks that TOC line styles are usable.
func (m *Model) Validate() error {
	return style.ValidateTocLines(m.styles)
}

// BeginPass drops entries collected during previous pass.
func (m *Model) BeginPass() {
	m.entries = m.entries[:0]
}

// OnEntry records heading placed on page. Page order is not validated.
func (m *Model) OnEntry(level int, text string, page int) {
	m.entries = append(m.entries, Entry{Level: level, Text: text, Page: page})
}

// Handle is notification handler for TOC entries.
func (m *Model) Handle(payload any) error {
	switch e := payload.(type) {
	case Entry:
		m.OnEntry(e.Level, e.Text, e.Page)
	case *Entry:
		if e == nil {
			return fmt.Errorf("nil TOC entry")
		}
		m.OnEntry(e.Level, e.Text, e.Page)
	default:
		return fmt.Errorf("unexpected TOC entry payload %T", payload)
	}
	return nil
}

// Entries returns copy of entries collected so far in this pass.
func (m *Model) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Render converts collected entries into lines. Levels deeper than the
// deepest configured style use that style.
func (m *Model) Render() (Rendering, error) {
	out := make(Rendering, 0, len(m.entries))
	for _, e := range m.entries {
		st, err := style.TocLineFor(m.styles, e.Level)
		if err != nil {
			return nil, err
		}
		out = append(out, Line{Level: e.Level, Text: e.Text, Page: e.Page, Style: st})
	}
	m.log.Debug("TOC rendered", zap.Int("lines", len(out)))
	return out, nil
}
