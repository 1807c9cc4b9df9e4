package layout

import (
	"bytes"
	"fmt"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"go.uber.org/zap"

	"docflow/config"
	"docflow/layout/flow"
	"docflow/layout/notify"
	"docflow/layout/style"
	"docflow/layout/toc"
)

// PageSetup describes every page of the document.
type PageSetup struct {
	Width, Height float64
	Frame         flow.Rect
	// Footer is text/template (with sprig functions) expanded for every page,
	// empty means no footer.
	Footer      string
	FooterStyle style.Text
	// Ornament is SVG drawn in the top margin of every page.
	Ornament []byte
	Title    string
	Lang     string
}

// PageSetupFromConfig converts page configuration.
func PageSetupFromConfig(cfg *config.PageConfig, footer style.Text, ornament []byte) PageSetup {
	return PageSetup{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Frame:       flow.Rect{X: cfg.Frame.X, Y: cfg.Frame.Y, W: cfg.Frame.Width, H: cfg.Frame.Height},
		Footer:      cfg.FooterTemplate,
		FooterStyle: footer,
		Ornament:    ornament,
	}
}

// FooterValues are available to the footer template.
type FooterValues struct {
	Context string
	Page    int
	Title   string
	Lang    string
}

// Template is the document template: it decorates pages and reports placed
// headings to the bus.
type Template struct {
	setup  PageSetup
	footer *template.Template
	bus    *notify.Bus
	m      flow.Measurer
	log    *zap.Logger
}

func NewTemplate(setup PageSetup, bus *notify.Bus, m flow.Measurer, log *zap.Logger) (*Template, error) {
	t := &Template{
		setup: setup,
		bus:   bus,
		m:     m,
		log:   log,
	}
	if setup.Footer != "" {
		tmpl, err := template.New(string(config.FooterTemplateFieldName)).Funcs(sprig.FuncMap()).Parse(setup.Footer)
		if err != nil {
			return nil, fmt.Errorf("unable to parse template field %s: %w", config.FooterTemplateFieldName, err)
		}
		t.footer = tmpl
	}
	return t, nil
}

func (t *Template) PageSize() (float64, float64) {
	return t.setup.Width, t.setup.Height
}

func (t *Template) Frame() flow.Rect {
	return t.setup.Frame
}

// Decorate draws frame boundary, ornament and page number footer.
func (t *Template) Decorate(p *flow.Page) {
	f := t.setup.Frame
	p.Add(flow.Item{Kind: flow.ItemRect, X: f.X, Y: f.Y, W: f.W, H: f.H})

	if len(t.setup.Ornament) > 0 && f.Y > 0 {
		p.Add(flow.Item{Kind: flow.ItemOrnament, X: f.X, Y: f.Y / 4, W: f.W, H: f.Y / 2, Data: t.setup.Ornament})
	}

	if t.footer == nil {
		return
	}
	text, err := t.expandFooter(p.Number)
	if err != nil {
		t.log.Warn("Unable to expand footer, skipping", zap.Int("page", p.Number), zap.Error(err))
		return
	}
	if text == "" {
		return
	}
	st := t.setup.FooterStyle
	w := t.m.Width(st.FontName, st.FontSize, text)
	p.Add(flow.Item{
		Kind: flow.ItemText,
		X:    (t.setup.Width - w) / 2,
		Y:    t.setup.Height - style.Cm,
		Text: text,
		Font: st.FontName,
		Size: st.FontSize,
	})
}

func (t *Template) expandFooter(page int) (string, error) {
	buf := new(bytes.Buffer)
	err := t.footer.Execute(buf, FooterValues{
		Context: string(config.FooterTemplateFieldName),
		Page:    page,
		Title:   t.setup.Title,
		Lang:    t.setup.Lang,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// AfterFlowable publishes TOC entry for every placed heading. Returned error
// is bus failure, if any, so layout stops at the flowable which caused it.
func (t *Template) AfterFlowable(f flow.Flowable, page int) error {
	if m, ok := f.(flow.Marked); ok {
		if hm := m.Marker(); hm != nil {
			t.bus.Publish(notify.EventTOCEntry, toc.Entry{Level: hm.Level, Text: m.PlainText(), Page: page})
		}
	}
	return t.bus.Err()
}
