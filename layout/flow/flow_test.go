package flow

import (
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"docflow/layout/style"
)

var testStyle = style.Text{FontName: "Go-Regular", FontSize: 10, Leading: 12, SpaceBefore: 4, SpaceAfter: 2}

type recordingTemplate struct {
	decorated int
	calls     []Placement
	fail      error
}

func (r *recordingTemplate) PageSize() (float64, float64) { return 200, 200 }
func (r *recordingTemplate) Frame() Rect                  { return Rect{X: 10, Y: 10, W: 180, H: 100} }
func (r *recordingTemplate) Decorate(p *Page) {
	r.decorated++
	p.Add(Item{Kind: ItemRect, X: 10, Y: 10, W: 180, H: 100})
}

func (r *recordingTemplate) AfterFlowable(f Flowable, page int) error {
	r.calls = append(r.calls, Placement{Index: len(r.calls), Flowable: f, Page: page})
	return r.fail
}

func newTestEngine(t *testing.T) *Engine {
	return NewEngine(FixedMeasurer{Ratio: 0.5}, zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1))))
}

func textItems(p Page) []Item {
	var out []Item
	for _, it := range p.Items {
		if it.Kind == ItemText {
			out = append(out, it)
		}
	}
	return out
}

func TestBreakWords(t *testing.T) {
	m := FixedMeasurer{Ratio: 0.5}

	t.Run("fills lines greedily", func(t *testing.T) {
		lines := BreakWords("aaaa bbbb  cccc", testStyle, m, 0, 0, 50)
		if len(lines) != 2 {
			t.Fatalf("got %d lines, want 2", len(lines))
		}
		if lines[0].Runs[0].Text != "aaaa bbbb" || lines[1].Runs[0].Text != "cccc" {
			t.Errorf("lines = %q / %q", lines[0].Runs[0].Text, lines[1].Runs[0].Text)
		}
		for _, l := range lines {
			if l.Height != testStyle.Leading {
				t.Errorf("line height = %v, want %v", l.Height, testStyle.Leading)
			}
		}
	})

	t.Run("hanging indent", func(t *testing.T) {
		lines := BreakWords("aaaa bbbb cccc", testStyle, m, 10, 20, 50)
		if len(lines) != 3 {
			t.Fatalf("got %d lines, want 3", len(lines))
		}
		want := []float64{10, 20, 20}
		for i, l := range lines {
			if l.Runs[0].X != want[i] {
				t.Errorf("line %d X = %v, want %v", i, l.Runs[0].X, want[i])
			}
		}
	})

	t.Run("long word is not broken", func(t *testing.T) {
		lines := BreakWords("a verylongwordindeed b", testStyle, m, 0, 0, 30)
		if len(lines) != 3 || lines[1].Runs[0].Text != "verylongwordindeed" {
			t.Errorf("unexpected lines %+v", lines)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		if lines := BreakWords("  \n\t", testStyle, m, 0, 0, 30); lines != nil {
			t.Errorf("expected no lines, got %+v", lines)
		}
	})
}

func TestParagraph(t *testing.T) {
	h := NewHeading("  Chapter\n one ", style.NewHeading(2, "Go-Regular", 24))
	if h.Marker() == nil || h.Marker().Level != 2 {
		t.Fatalf("heading marker = %+v", h.Marker())
	}
	if h.PlainText() != "Chapter one" {
		t.Errorf("PlainText() = %q", h.PlainText())
	}
	if h.Splittable() {
		t.Error("headings must not split")
	}

	p := &Paragraph{Text: "body", Style: testStyle}
	if p.Marker() != nil {
		t.Error("plain paragraph has marker")
	}
	if !p.Splittable() {
		t.Error("plain paragraph should split")
	}
	if b, a := p.Spacing(); b != 4 || a != 2 {
		t.Errorf("Spacing() = %v, %v", b, a)
	}
}

func TestEngine_SpaceBeforeDroppedAtTop(t *testing.T) {
	tmpl := &recordingTemplate{}
	pages, _, err := newTestEngine(t).Layout([]Flowable{
		&Paragraph{Text: "first", Style: testStyle},
		&Paragraph{Text: "second", Style: testStyle},
	}, tmpl)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(pages))
	}
	items := textItems(pages[0])
	if len(items) != 2 {
		t.Fatalf("text items = %d, want 2", len(items))
	}
	// frame top + font size
	if items[0].Y != 20 {
		t.Errorf("first baseline = %v, want 20", items[0].Y)
	}
	// 12 leading + 2 after + 4 before
	if items[1].Y != 38 {
		t.Errorf("second baseline = %v, want 38", items[1].Y)
	}
	if items[0].X != 10 {
		t.Errorf("X = %v, want frame left 10", items[0].X)
	}
}

func TestEngine_KeepsHeadingTogether(t *testing.T) {
	tmpl := &recordingTemplate{}
	heading := &Paragraph{Text: "Heading", Style: testStyle, Heading: &HeadingMarker{Level: 0}}
	pages, placements, err := newTestEngine(t).Layout([]Flowable{&Spacer{Height: 90}, heading}, tmpl)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if placements[1].Page != 2 {
		t.Errorf("heading page = %d, want 2", placements[1].Page)
	}
	items := textItems(pages[1])
	if len(items) != 1 || items[0].Y != 20 {
		t.Errorf("heading on new page should start at frame top, got %+v", items)
	}
}

func TestEngine_SplitsParagraph(t *testing.T) {
	tmpl := &recordingTemplate{}
	long := &Paragraph{Text: "one two three", Style: testStyle}
	// only 20pt left on each line, one word per line
	long.LeftIndent = 160

	pages, placements, err := newTestEngine(t).Layout([]Flowable{&Spacer{Height: 80}, long}, tmpl)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if placements[1].Page != 1 {
		t.Errorf("split paragraph starts on page %d, want 1", placements[1].Page)
	}
	if n := len(textItems(pages[0])); n != 1 {
		t.Errorf("page 1 has %d lines, want 1", n)
	}
	if n := len(textItems(pages[1])); n != 2 {
		t.Errorf("page 2 has %d lines, want 2", n)
	}
}

func TestEngine_HookOncePerFlowable(t *testing.T) {
	tmpl := &recordingTemplate{}
	story := []Flowable{
		&Paragraph{Text: "a", Style: testStyle},
		&Spacer{},
		PageBreak{},
		&Paragraph{Text: "b", Style: testStyle},
		&Paragraph{Text: "", Style: testStyle},
	}
	_, placements, err := newTestEngine(t).Layout(story, tmpl)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if len(tmpl.calls) != len(story) || len(placements) != len(story) {
		t.Fatalf("hook calls = %d, placements = %d, want %d", len(tmpl.calls), len(placements), len(story))
	}
	wantPages := []int{1, 1, 2, 2, 2}
	for i, c := range tmpl.calls {
		if c.Flowable != story[i] {
			t.Errorf("call %d got wrong flowable", i)
		}
		if c.Page != wantPages[i] {
			t.Errorf("call %d page = %d, want %d", i, c.Page, wantPages[i])
		}
	}
}

func TestEngine_PageBreakOnEmptyPage(t *testing.T) {
	tmpl := &recordingTemplate{}
	pages, _, err := newTestEngine(t).Layout([]Flowable{&PageBreak{}, &Paragraph{Text: "a", Style: testStyle}}, tmpl)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if len(pages) != 1 {
		t.Errorf("pages = %d, want 1", len(pages))
	}
}

func TestEngine_FreshPagesEveryCall(t *testing.T) {
	tmpl := &recordingTemplate{}
	e := newTestEngine(t)
	story := []Flowable{&Spacer{Height: 90}, &Spacer{Height: 90}, &Spacer{Height: 90}}

	first, _, err := e.Layout(story, tmpl)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	second, _, err := e.Layout(story, tmpl)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("pages = %d/%d, want 3/3", len(first), len(second))
	}
	for i := range second {
		if second[i].Number != i+1 {
			t.Errorf("page %d numbered %d", i, second[i].Number)
		}
		if len(second[i].Items) != 1 {
			t.Errorf("page %d carries %d items, want only decoration", i, len(second[i].Items))
		}
	}
	if tmpl.decorated != 6 {
		t.Errorf("decorated = %d, want 6", tmpl.decorated)
	}
}

func TestEngine_TooLarge(t *testing.T) {
	_, _, err := newTestEngine(t).Layout([]Flowable{&Paragraph{Text: "a", Style: testStyle}, &Spacer{Height: 150}}, &recordingTemplate{})
	var le *LayoutError
	if !errors.As(err, &le) {
		t.Fatalf("Layout() error = %v, want LayoutError", err)
	}
	if le.Index != 1 || le.Available != 100 {
		t.Errorf("LayoutError = %+v", le)
	}
}

func TestEngine_HookErrorStopsLayout(t *testing.T) {
	boom := errors.New("boom")
	tmpl := &recordingTemplate{fail: boom}
	_, _, err := newTestEngine(t).Layout([]Flowable{
		&Paragraph{Text: "a", Style: testStyle},
		&Paragraph{Text: "b", Style: testStyle},
	}, tmpl)
	if !errors.Is(err, boom) {
		t.Fatalf("Layout() error = %v, want boom", err)
	}
	if len(tmpl.calls) != 1 {
		t.Errorf("hook calls = %d, want 1", len(tmpl.calls))
	}
}

func TestFonts(t *testing.T) {
	fonts := NewFonts()

	one := fonts.Width("Go-Regular", 12, "Hello")
	two := fonts.Width("Go-Regular", 12, "HelloHello")
	if one <= 0 {
		t.Fatalf("Width() = %v, want > 0", one)
	}
	if math.Abs(two-2*one) > 0.5 {
		t.Errorf("Width doubled text = %v, want about %v", two, 2*one)
	}
	if big := fonts.Width("Go-Regular", 24, "Hello"); big <= one {
		t.Errorf("larger size is not wider: %v <= %v", big, one)
	}
	if fallback := fonts.Width("Times-Roman", 12, "Hello"); fallback != one {
		t.Errorf("unknown font width = %v, want default font %v", fallback, one)
	}

	a, err := fonts.Face("Go-Bold", 10, 72)
	if err != nil {
		t.Fatalf("Face() error = %v", err)
	}
	b, _ := fonts.Face("Go-Bold", 10, 72)
	if a != b {
		t.Error("faces are not cached")
	}
	for _, name := range FontNames() {
		if _, err := fonts.Face(name, 10, 96); err != nil {
			t.Errorf("Face(%s) error = %v", name, err)
		}
	}
}
