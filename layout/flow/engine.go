package flow

import (
	"go.uber.org/zap"
)

// tolerance for accumulated floating point error when checking fit
const eps = 1e-6

// Placement records where flowable was placed.
type Placement struct {
	Index    int
	Flowable Flowable
	Page     int
}

// Engine is the flow layout algorithm. It keeps no state between Layout
// calls, every call starts from page 1.
type Engine struct {
	m   Measurer
	log *zap.Logger
}

// NewEngine creates engine measuring text with m.
func NewEngine(m Measurer, log *zap.Logger) *Engine {
	return &Engine{m: m, log: log}
}

type cursor struct {
	tmpl  Template
	frame Rect
	pages []*Page
	page  *Page
	y     float64 // offset from the frame top
	empty bool    // nothing placed on the current page yet
}

func (c *cursor) newPage() {
	w, h := c.tmpl.PageSize()
	c.page = &Page{Number: len(c.pages) + 1, Width: w, Height: h}
	c.tmpl.Decorate(c.page)
	c.pages = append(c.pages, c.page)
	c.y, c.empty = 0, true
}

func (c *cursor) fits(h float64) bool {
	return c.y+h <= c.frame.H+eps
}

func (c *cursor) place(l Line) {
	for _, r := range l.Runs {
		c.page.Add(Item{
			Kind: ItemText,
			X:    c.frame.X + r.X,
			Y:    c.frame.Y + c.y + r.Style.FontSize,
			Text: r.Text,
			Font: r.Style.FontName,
			Size: r.Style.FontSize,
		})
	}
	c.y += l.Height
	c.empty = false
}

// Layout places every flowable of story in order and calls
// tmpl.AfterFlowable once for each of them.
func (e *Engine) Layout(story []Flowable, tmpl Template) ([]Page, []Placement, error) {
	c := &cursor{tmpl: tmpl, frame: tmpl.Frame()}
	c.newPage()

	placements := make([]Placement, 0, len(story))
	for i, f := range story {
		start, err := e.flow(c, i, f)
		if err != nil {
			return nil, nil, err
		}
		placements = append(placements, Placement{Index: i, Flowable: f, Page: start})
		if err := tmpl.AfterFlowable(f, start); err != nil {
			return nil, nil, err
		}
	}

	pages := make([]Page, 0, len(c.pages))
	for _, p := range c.pages {
		pages = append(pages, *p)
	}
	e.log.Debug("Layout done", zap.Int("flowables", len(story)), zap.Int("pages", len(pages)))
	return pages, placements, nil
}

// flow places single flowable and returns the page it starts on.
func (e *Engine) flow(c *cursor, i int, f Flowable) (int, error) {
	switch f.(type) {
	case PageBreak, *PageBreak:
		if !c.empty {
			c.newPage()
		}
		return c.page.Number, nil
	}

	lines, err := f.Wrap(c.frame.W, e.m)
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return c.page.Number, nil
	}

	before, after := f.Spacing()

	if !f.Splittable() {
		var height float64
		for _, l := range lines {
			height += l.Height
		}
		if height > c.frame.H+eps {
			return 0, &LayoutError{Index: i, Height: height, Available: c.frame.H}
		}
		if !c.empty && !c.fits(before+height) {
			c.newPage()
		}
	}

	// space before is dropped at the top of the frame
	if !c.empty {
		c.y += before
	}

	start := 0
	for _, l := range lines {
		if !c.fits(l.Height) {
			if c.empty {
				return 0, &LayoutError{Index: i, Height: l.Height, Available: c.frame.H}
			}
			c.newPage()
		}
		if start == 0 {
			start = c.page.Number
		}
		c.place(l)
	}
	c.y += after
	return start, nil
}
