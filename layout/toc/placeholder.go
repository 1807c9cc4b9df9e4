package toc

import (
	"strconv"

	"docflow/layout/flow"
	"docflow/layout/style"
)

// Placeholder is the flowable standing for the table of contents in a story.
// It draws whatever rendering it was given, during layout it always shows
// results of the previous pass.
type Placeholder struct {
	Title      string
	TitleStyle style.Text
	Rendering  Rendering
}

// NewPlaceholder makes empty placeholder. Title is optional.
func NewPlaceholder(title string, titleStyle style.Text) *Placeholder {
	return &Placeholder{Title: title, TitleStyle: titleStyle}
}

// WithRendering returns copy of placeholder showing r.
func (p *Placeholder) WithRendering(r Rendering) *Placeholder {
	return &Placeholder{Title: p.Title, TitleStyle: p.TitleStyle, Rendering: r}
}

// Wrap lays out title followed by one block per TOC line. Entry text hangs
// off its first line and the page number is right aligned on the last line
// of the block.
func (p *Placeholder) Wrap(width float64, m flow.Measurer) ([]flow.Line, error) {
	var lines []flow.Line
	if p.Title != "" {
		lines = append(lines, flow.BreakWords(p.Title, p.TitleStyle, m, 0, 0, width)...)
		if len(lines) > 0 && len(p.Rendering) > 0 {
			lines = append(lines, flow.Line{Height: p.TitleStyle.SpaceAfter})
		}
	}

	for i, l := range p.Rendering {
		st := l.Style.Text
		if i > 0 && st.SpaceBefore > 0 {
			lines = append(lines, flow.Line{Height: st.SpaceBefore})
		}

		num := strconv.Itoa(l.Page)
		nw := m.Width(st.FontName, st.FontSize, num)
		gap := m.Width(st.FontName, st.FontSize, " ")

		block := flow.BreakWords(l.Text, st, m,
			l.Style.LeftIndent+l.Style.FirstLineIndent, l.Style.LeftIndent, width-nw-gap)
		if len(block) == 0 {
			block = []flow.Line{{Height: st.Leading}}
		}
		last := &block[len(block)-1]
		last.Runs = append(last.Runs, flow.Run{X: width - nw, Text: num, Style: st})
		lines = append(lines, block...)
	}
	return lines, nil
}

func (p *Placeholder) Spacing() (float64, float64) {
	return p.TitleStyle.SpaceBefore, p.TitleStyle.SpaceAfter
}

func (p *Placeholder) Splittable() bool {
	return true
}
