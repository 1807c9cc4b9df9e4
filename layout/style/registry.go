package style

// Params controls construction of both style ladders.
type Params struct {
	HeadingFont     string
	HeadingBaseSize float64
	TOCFont         string
	TOCSize         float64
	Delta           float64
	Epsilon         float64
}

// DefaultParams returns A4 cascading heading layout values.
func DefaultParams() Params {
	return Params{
		HeadingFont:     "Go-Regular",
		HeadingBaseSize: 24,
		TOCFont:         "Go-Regular",
		TOCSize:         12,
		Delta:           Delta,
		Epsilon:         Epsilon,
	}
}

// Registry holds heading and TOC line styles indexed by level. Lookups past
// the deepest configured level clamp to it.
type Registry struct {
	Headings []Heading
	TocLines []TocLine
}

// NewRegistry builds styles for levels 0..levels-1.
func NewRegistry(levels int, p Params) *Registry {
	r := &Registry{
		Headings: make([]Heading, 0, max(levels, 0)),
		TocLines: make([]TocLine, 0, max(levels, 0)),
	}
	for i := range levels {
		r.Headings = append(r.Headings, NewHeading(i, p.HeadingFont, p.HeadingBaseSize))
		r.TocLines = append(r.TocLines, NewTocLine(i, p.Delta, p.Epsilon, p.TOCFont, p.TOCSize))
	}
	return r
}

// Validate checks minimum configuration: level 0 styles must exist.
func (r *Registry) Validate() error {
	if len(r.Headings) == 0 {
		return &LevelRangeError{Level: 0, Configured: 0}
	}
	return ValidateTocLines(r.TocLines)
}

// ValidateTocLines checks TOC line ladder has level 0 style.
func ValidateTocLines(lines []TocLine) error {
	if len(lines) == 0 {
		return &LevelRangeError{Level: 0, Configured: 0}
	}
	return nil
}

// Heading returns heading style for level, clamped to configured range.
func (r *Registry) Heading(level int) (Heading, error) {
	if len(r.Headings) == 0 {
		return Heading{}, &LevelRangeError{Level: level, Configured: 0}
	}
	return r.Headings[clamp(level, len(r.Headings))], nil
}

// TocLine returns TOC line style for level, clamped to configured range.
func (r *Registry) TocLine(level int) (TocLine, error) {
	return TocLineFor(r.TocLines, level)
}

// TocLineFor looks up level in ladder clamping to the deepest entry.
func TocLineFor(lines []TocLine, level int) (TocLine, error) {
	if len(lines) == 0 {
		return TocLine{}, &LevelRangeError{Level: level, Configured: 0}
	}
	return lines[clamp(level, len(lines))], nil
}

func clamp(level, n int) int {
	return min(max(level, 0), n-1)
}
