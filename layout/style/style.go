// Package style maps heading levels to presentation styles for body headings
// and their table of contents lines.
package style

import (
	"fmt"
	"math"
)

// Units are points.
const (
	Inch = 72.0
	Cm   = Inch / 2.54
)

// Process-wide TOC indentation defaults: left indent of a TOC line is
// level*Delta+Epsilon with first line hanging by Epsilon.
var (
	Delta   = 1 * Cm
	Epsilon = 0.5 * Cm
)

// Text describes how a run of text is set. Immutable once constructed.
type Text struct {
	FontName    string
	FontSize    float64
	Leading     float64
	SpaceBefore float64
	SpaceAfter  float64
}

// Heading is the body style of a heading on a particular level.
type Heading struct {
	Text
	Level int
}

// TocLine is the style of a TOC line listing heading of a particular level.
type TocLine struct {
	Text
	Level           int
	LeftIndent      float64
	FirstLineIndent float64
}

func spaced(fontName string, size float64) Text {
	return Text{
		FontName:    fontName,
		FontSize:    size,
		Leading:     size * 1.2,
		SpaceBefore: size / 4,
		SpaceAfter:  size / 8,
	}
}

// NewHeading makes heading style for level, size shrinks as level grows:
// baseSize/sqrt(1+level).
func NewHeading(level int, fontName string, baseSize float64) Heading {
	if level < 0 {
		panic(fmt.Sprintf("heading level must be >= 0, got %d", level))
	}
	return Heading{
		Text:  spaced(fontName, baseSize/math.Sqrt(float64(1+level))),
		Level: level,
	}
}

// NewTocLine makes TOC line style for level with hanging indent.
func NewTocLine(level int, delta, epsilon float64, fontName string, size float64) TocLine {
	if level < 0 {
		panic(fmt.Sprintf("toc level must be >= 0, got %d", level))
	}
	return TocLine{
		Text:            spaced(fontName, size),
		Level:           level,
		LeftIndent:      float64(level)*delta + epsilon,
		FirstLineIndent: -epsilon,
	}
}

// LevelRangeError is returned when there is no style for the minimum
// required level.
type LevelRangeError struct {
	Level      int
	Configured int
}

func (e *LevelRangeError) Error() string {
	return fmt.Sprintf("no style configured for level %d (%d levels configured)", e.Level, e.Configured)
}
