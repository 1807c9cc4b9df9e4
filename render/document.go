// Package render turns laid out pages into output files: zipped SVG or PNG
// pages, PDF assembled from rasterized pages, or plain text.
package render

import (
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"docflow/layout"
	"docflow/layout/flow"
	"docflow/layout/toc"
)

// Document is everything renderers need to know about a finished build.
type Document struct {
	ID      uuid.UUID // story id
	BuildID uuid.UUID
	Title   string
	Lang    string
	Source  string

	State  layout.State
	Passes int

	PageW, PageH float64
	Pages        []flow.Page
	TOC          toc.Rendering
}

// NewDocument collects build result for rendering.
func NewDocument(id uuid.UUID, title, lang, source string, res *layout.Result, pageW, pageH float64) *Document {
	return &Document{
		ID:      id,
		BuildID: res.BuildID,
		Title:   title,
		Lang:    lang,
		Source:  source,
		State:   res.State,
		Passes:  res.Passes,
		PageW:   pageW,
		PageH:   pageH,
		Pages:   res.Pages,
		TOC:     res.TOC,
	}
}

// PageName is name of the page file inside of the output archive.
func PageName(number int, ext string) string {
	return fmt.Sprintf("pages/%04d.%s", number, ext)
}

// num formats coordinate for XML output, two decimals is more than enough
// for points.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
