package story

import (
	"fmt"

	"docflow/layout"
	"docflow/layout/flow"
	"docflow/layout/style"
	"docflow/layout/toc"
)

// Styles used to turn blocks into flowables.
type Styles struct {
	Registry *style.Registry
	Body     style.Text
	// TOCTitle is style of the table of contents title, DefaultTOCTitle is
	// used when <toc> element does not have one.
	TOCTitle        style.Text
	DefaultTOCTitle string
}

// Flowables converts story blocks into a layout story. Headings deeper than
// configured levels are set in the deepest configured style but keep their
// level.
func (d *Doc) Flowables(st Styles) (layout.Story, error) {
	if st.Registry == nil {
		return nil, fmt.Errorf("no styles")
	}

	out := make(layout.Story, 0, len(d.Blocks))
	for i, b := range d.Blocks {
		switch b.Kind {
		case KindTOC:
			title := b.Text
			if title == "" {
				title = st.DefaultTOCTitle
			}
			out = append(out, toc.NewPlaceholder(title, st.TOCTitle))
		case KindHeading:
			h, err := st.Registry.Heading(b.Level)
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", i, err)
			}
			h.Level = b.Level
			out = append(out, flow.NewHeading(b.Text, h))
		case KindPara:
			out = append(out, &flow.Paragraph{Text: b.Text, Style: st.Body})
		case KindSpacer:
			out = append(out, &flow.Spacer{Height: b.Height})
		case KindPageBreak:
			out = append(out, flow.PageBreak{})
		default:
			return nil, fmt.Errorf("block %d: unexpected kind %s", i, b.Kind)
		}
	}
	return out, nil
}
