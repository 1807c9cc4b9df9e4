// Package flow places flowables onto a sequence of fixed size pages. All
// coordinates are points, origin is the top-left corner of the page.
package flow

import (
	"fmt"

	"docflow/layout/style"
)

type Rect struct {
	X, Y, W, H float64
}

// ItemKind is what renderer has to draw.
type ItemKind int

const (
	ItemText ItemKind = iota
	ItemRect
	ItemOrnament
)

// Item is single positioned drawing instruction. For text X/Y is the left end
// of the baseline, for rectangles and ornaments it is the top-left corner.
type Item struct {
	Kind ItemKind
	X, Y float64
	W, H float64
	Text string
	Font string
	Size float64
	Data []byte // ornament SVG
}

type Page struct {
	Number        int
	Width, Height float64
	Items         []Item
}

// Add appends item to the page.
func (p *Page) Add(it Item) {
	p.Items = append(p.Items, it)
}

// Run is piece of text on a line, X is offset from the frame left edge.
type Run struct {
	X     float64
	Text  string
	Style style.Text
}

// Line is one row of a wrapped flowable.
type Line struct {
	Height float64
	Runs   []Run
}

// Flowable is unit of content the engine places into frames.
type Flowable interface {
	// Wrap breaks content into lines for the frame width. Called exactly once
	// per layout pass.
	Wrap(width float64, m Measurer) ([]Line, error)
	Spacing() (before, after float64)
	// Splittable flowables may continue on the next page between lines.
	Splittable() bool
}

// HeadingMarker tags flowable as a heading of the given level.
type HeadingMarker struct {
	Level int
}

// Marked is implemented by flowables which may carry heading marker.
type Marked interface {
	Marker() *HeadingMarker
	PlainText() string
}

// Template supplies page geometry and decoration and is told about every
// placed flowable.
type Template interface {
	PageSize() (w, h float64)
	Frame() Rect
	// Decorate is called once for every new page before content is placed.
	Decorate(p *Page)
	// AfterFlowable is called exactly once for every flowable right after it
	// has been placed, page is where flowable starts. Error aborts layout.
	AfterFlowable(f Flowable, page int) error
}

// Measurer reports advance width of a string set in font of size.
type Measurer interface {
	Width(fontName string, size float64, s string) float64
}

// LayoutError means flowable cannot be placed even into an empty frame.
type LayoutError struct {
	Index     int
	Height    float64
	Available float64
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("flowable %d is too large (%.2f) for the frame (%.2f)", e.Index, e.Height, e.Available)
}
