package flow

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFont is used for unknown font names.
const DefaultFont = "Go-Regular"

var builtinFonts = map[string][]byte{
	"Go-Regular": goregular.TTF,
	"Go-Bold":    gobold.TTF,
	"Go-Italic":  goitalic.TTF,
	"Go-Mono":    gomono.TTF,
}

// FontNames lists fonts known to Fonts.
func FontNames() []string {
	return []string{"Go-Regular", "Go-Bold", "Go-Italic", "Go-Mono"}
}

type faceKey struct {
	name string
	size float64
	dpi  float64
}

// Fonts parses embedded Go fonts on demand and caches faces. It serves both
// as layout Measurer (72 DPI, so pixels are points) and as face source for
// raster rendering. Safe for concurrent use.
type Fonts struct {
	mu     sync.Mutex
	parsed map[string]*opentype.Font
	faces  map[faceKey]font.Face
}

func NewFonts() *Fonts {
	return &Fonts{
		parsed: make(map[string]*opentype.Font),
		faces:  make(map[faceKey]font.Face),
	}
}

// Face returns face for font name at size points rendered at dpi.
func (f *Fonts) Face(name string, size, dpi float64) (font.Face, error) {
	if _, ok := builtinFonts[name]; !ok {
		name = DefaultFont
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := faceKey{name: name, size: size, dpi: dpi}
	if face, ok := f.faces[key]; ok {
		return face, nil
	}

	otf, ok := f.parsed[name]
	if !ok {
		var err error
		if otf, err = opentype.Parse(builtinFonts[name]); err != nil {
			return nil, fmt.Errorf("unable to parse font %s: %w", name, err)
		}
		f.parsed[name] = otf
	}

	face, err := opentype.NewFace(otf, &opentype.FaceOptions{Size: size, DPI: dpi, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("unable to create face %s@%.2f: %w", name, size, err)
	}
	f.faces[key] = face
	return face, nil
}

// Width implements Measurer.
func (f *Fonts) Width(fontName string, size float64, s string) float64 {
	face, err := f.Face(fontName, size, 72)
	if err != nil {
		// embedded fonts always parse, this is a programming error
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	adv := font.MeasureString(face, s)
	return float64(adv) / 64
}

// FixedMeasurer treats every rune as Ratio*size wide.
type FixedMeasurer struct {
	Ratio float64
}

func (m FixedMeasurer) Width(_ string, size float64, s string) float64 {
	return float64(utf8.RuneCountInString(s)) * size * m.Ratio
}
