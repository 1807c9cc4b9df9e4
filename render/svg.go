package render

import (
	"encoding/base64"
	"strings"

	"github.com/beevik/etree"

	"docflow/layout/flow"
)

const (
	svgNS       = "http://www.w3.org/2000/svg"
	frameStroke = 0.5
)

// SVG produces one SVG document per page. Page size is in points and user
// units match points one to one.
func SVG(doc *Document) []*etree.Document {
	res := make([]*etree.Document, 0, len(doc.Pages))
	for i := range doc.Pages {
		res = append(res, pageSVG(doc, &doc.Pages[i]))
	}
	return res
}

func pageSVG(doc *Document, p *flow.Page) *etree.Document {
	out := etree.NewDocument()
	out.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	w, h := pageSize(doc, p)

	svg := out.CreateElement("svg")
	svg.CreateAttr("xmlns", svgNS)
	svg.CreateAttr("version", "1.1")
	svg.CreateAttr("width", num(w)+"pt")
	svg.CreateAttr("height", num(h)+"pt")
	svg.CreateAttr("viewBox", "0 0 "+num(w)+" "+num(h))
	if doc.Lang != "" {
		svg.CreateAttr("xml:lang", doc.Lang)
	}
	if doc.Title != "" {
		svg.CreateElement("title").SetText(doc.Title)
	}

	bg := svg.CreateElement("rect")
	bg.CreateAttr("width", "100%")
	bg.CreateAttr("height", "100%")
	bg.CreateAttr("fill", "white")

	for _, it := range p.Items {
		switch it.Kind {
		case flow.ItemRect:
			r := svg.CreateElement("rect")
			r.CreateAttr("x", num(it.X))
			r.CreateAttr("y", num(it.Y))
			r.CreateAttr("width", num(it.W))
			r.CreateAttr("height", num(it.H))
			r.CreateAttr("fill", "none")
			r.CreateAttr("stroke", "black")
			r.CreateAttr("stroke-width", num(frameStroke))
		case flow.ItemOrnament:
			img := svg.CreateElement("image")
			img.CreateAttr("x", num(it.X))
			img.CreateAttr("y", num(it.Y))
			img.CreateAttr("width", num(it.W))
			img.CreateAttr("height", num(it.H))
			img.CreateAttr("preserveAspectRatio", "xMidYMid meet")
			img.CreateAttr("href", "data:image/svg+xml;base64,"+base64.StdEncoding.EncodeToString(it.Data))
		case flow.ItemText:
			t := svg.CreateElement("text")
			t.CreateAttr("x", num(it.X))
			t.CreateAttr("y", num(it.Y))
			fontAttrs(t, it.Font)
			t.CreateAttr("font-size", num(it.Size))
			t.CreateAttr("xml:space", "preserve")
			t.SetText(it.Text)
		}
	}
	return out
}

func pageSize(doc *Document, p *flow.Page) (float64, float64) {
	w, h := p.Width, p.Height
	if w <= 0 || h <= 0 {
		w, h = doc.PageW, doc.PageH
	}
	return w, h
}

// fontAttrs maps embedded Go font names to CSS font properties.
func fontAttrs(e *etree.Element, name string) {
	if strings.HasSuffix(name, "-Mono") {
		e.CreateAttr("font-family", "Go Mono, monospace")
		return
	}
	e.CreateAttr("font-family", "Go, sans-serif")
	switch {
	case strings.HasSuffix(name, "-Bold"):
		e.CreateAttr("font-weight", "bold")
	case strings.HasSuffix(name, "-Italic"):
		e.CreateAttr("font-style", "italic")
	}
}
