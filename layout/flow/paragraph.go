package flow

import (
	"strings"

	"docflow/layout/style"
)

// Paragraph is a block of text set in a single style. Paragraphs carrying a
// heading marker are reported to the table of contents.
type Paragraph struct {
	Text            string
	Style           style.Text
	LeftIndent      float64
	FirstLineIndent float64
	Heading         *HeadingMarker
}

// NewHeading makes paragraph set in heading style and marked with its level.
func NewHeading(text string, st style.Heading) *Paragraph {
	return &Paragraph{
		Text:    text,
		Style:   st.Text,
		Heading: &HeadingMarker{Level: st.Level},
	}
}

func (p *Paragraph) Wrap(width float64, m Measurer) ([]Line, error) {
	return BreakWords(p.Text, p.Style, m, p.LeftIndent+p.FirstLineIndent, p.LeftIndent, width), nil
}

func (p *Paragraph) Spacing() (float64, float64) {
	return p.Style.SpaceBefore, p.Style.SpaceAfter
}

// Headings are kept in one piece so the page they report is the page they
// are on.
func (p *Paragraph) Splittable() bool {
	return p.Heading == nil
}

func (p *Paragraph) Marker() *HeadingMarker {
	return p.Heading
}

// PlainText returns paragraph text with whitespace collapsed.
func (p *Paragraph) PlainText() string {
	return strings.Join(strings.Fields(p.Text), " ")
}

// Spacer takes vertical space.
type Spacer struct {
	Height float64
}

func (s *Spacer) Wrap(float64, Measurer) ([]Line, error) {
	if s.Height <= 0 {
		return nil, nil
	}
	return []Line{{Height: s.Height}}, nil
}

func (s *Spacer) Spacing() (float64, float64) { return 0, 0 }
func (s *Spacer) Splittable() bool            { return false }

// PageBreak makes following content start on a new page.
type PageBreak struct{}

func (PageBreak) Wrap(float64, Measurer) ([]Line, error) { return nil, nil }
func (PageBreak) Spacing() (float64, float64)            { return 0, 0 }
func (PageBreak) Splittable() bool                       { return false }

// BreakWords greedily fills lines with words of text. First line starts at
// firstX, following ones at restX, no line extends past right unless single
// word does not fit.
func BreakWords(text string, st style.Text, m Measurer, firstX, restX, right float64) []Line {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	space := m.Width(st.FontName, st.FontSize, " ")
	lines := make([]Line, 0, 1)

	x := max(firstX, 0)
	var (
		cur   []string
		width float64
	)
	flush := func() {
		lines = append(lines, Line{
			Height: st.Leading,
			Runs:   []Run{{X: x, Text: strings.Join(cur, " "), Style: st}},
		})
		cur, width, x = cur[:0], 0, max(restX, 0)
	}

	for _, w := range words {
		ww := m.Width(st.FontName, st.FontSize, w)
		if len(cur) > 0 && x+width+space+ww > right {
			flush()
		}
		if len(cur) > 0 {
			width += space
		}
		cur = append(cur, w)
		width += ww
	}
	flush()
	return lines
}
