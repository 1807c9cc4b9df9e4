// Package story reads story documents: ordered sequences of headings,
// paragraphs and layout directives, and turns them into flowables.
package story

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/language"
)

// Kind of story block.
type Kind int

const (
	KindTOC Kind = iota
	KindHeading
	KindPara
	KindSpacer
	KindPageBreak
)

// element names, in Kind order
var kindNames = [...]string{"toc", "heading", "para", "spacer", "pagebreak"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Block is single story element.
type Block struct {
	Kind   Kind
	Level  int     // heading
	Text   string  // heading, para; title for toc
	Height float64 // spacer
}

// Doc is parsed story.
type Doc struct {
	ID     uuid.UUID
	Title  string
	Lang   language.Tag
	Blocks []Block

	src *etree.Document
}

var ErrNotStory = errors.New("document root is not <story>")

// Parse reads story XML from r, srcName is used for diagnostics only.
func Parse(ctx context.Context, r io.Reader, srcName string, log *zap.Logger) (*Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charsetReader,
		Permissive:    true,
	}
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to read story %s: %w", srcName, err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "story" {
		return nil, ErrNotStory
	}

	d := &Doc{
		Title: strings.TrimSpace(root.SelectAttrValue("title", "")),
		Lang:  language.Und,
		src:   doc,
	}

	id := root.SelectAttrValue("id", "")
	if parsed, err := uuid.Parse(id); err == nil {
		d.ID = parsed
	} else {
		if d.ID, err = uuid.NewV7(); err != nil {
			return nil, fmt.Errorf("unable to generate story UUID: %w", err)
		}
		log.Warn("Story has invalid ID, correcting", zap.String("old_id", id), zap.Stringer("new_id", d.ID))
	}

	if lang := root.SelectAttrValue("lang", ""); lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			log.Warn("Unable to parse story language, ignoring", zap.String("lang", lang), zap.Error(err))
		} else {
			d.Lang = tag
		}
	}

	for i, el := range root.ChildElements() {
		b, err := parseBlock(el)
		if err != nil {
			return nil, fmt.Errorf("story %s, element %d <%s>: %w", srcName, i, el.Tag, err)
		}
		if b == nil {
			log.Debug("Skipping unknown story element", zap.String("story", srcName), zap.String("tag", el.Tag))
			continue
		}
		d.Blocks = append(d.Blocks, *b)
	}
	return d, nil
}

func parseBlock(el *etree.Element) (*Block, error) {
	switch el.Tag {
	case "toc":
		return &Block{Kind: KindTOC, Text: strings.TrimSpace(el.SelectAttrValue("title", ""))}, nil
	case "heading":
		level, err := strconv.Atoi(el.SelectAttrValue("level", "0"))
		if err != nil {
			return nil, fmt.Errorf("bad heading level: %w", err)
		}
		if level < 0 {
			return nil, fmt.Errorf("heading level must be >= 0, got %d", level)
		}
		return &Block{Kind: KindHeading, Level: level, Text: plainText(el)}, nil
	case "para":
		return &Block{Kind: KindPara, Text: plainText(el)}, nil
	case "spacer":
		h, err := strconv.ParseFloat(el.SelectAttrValue("height", "0"), 64)
		if err != nil {
			return nil, fmt.Errorf("bad spacer height: %w", err)
		}
		if h < 0 {
			return nil, fmt.Errorf("spacer height must be >= 0, got %g", h)
		}
		return &Block{Kind: KindSpacer, Height: h}, nil
	case "pagebreak":
		return &Block{Kind: KindPageBreak}, nil
	}
	return nil, nil
}

// plainText returns all character data under el with whitespace collapsed.
func plainText(el *etree.Element) string {
	var sb strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, t := range e.Child {
			switch n := t.(type) {
			case *etree.CharData:
				sb.WriteString(n.Data)
				sb.WriteByte(' ')
			case *etree.Element:
				walk(n)
			}
		}
	}
	walk(el)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// charsetReader handles encoding declarations. Documents in UTF-16 and UTF-32
// are already converted to UTF-8 by SelectReader by the time declaration is
// seen.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	if strings.HasPrefix(l, "utf-16") || strings.HasPrefix(l, "utf-32") || strings.HasPrefix(l, "utf16") || strings.HasPrefix(l, "utf32") {
		return input, nil
	}
	return charset.NewReaderLabel(label, input)
}

// Headings counts heading blocks.
func (d *Doc) Headings() int {
	n := 0
	for _, b := range d.Blocks {
		if b.Kind == KindHeading {
			n++
		}
	}
	return n
}

// Encode serializes story back to XML. Parsed documents are written as they
// were read.
func (d *Doc) Encode() ([]byte, error) {
	doc := d.src
	if doc == nil {
		doc = d.build()
	}
	doc.Indent(2)
	return doc.WriteToBytes()
}

func (d *Doc) build() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("story")
	root.CreateAttr("id", d.ID.String())
	if d.Title != "" {
		root.CreateAttr("title", d.Title)
	}
	if d.Lang != language.Und {
		root.CreateAttr("lang", d.Lang.String())
	}
	for _, b := range d.Blocks {
		el := root.CreateElement(b.Kind.String())
		switch b.Kind {
		case KindTOC:
			if b.Text != "" {
				el.CreateAttr("title", b.Text)
			}
		case KindHeading:
			el.CreateAttr("level", strconv.Itoa(b.Level))
			el.SetText(b.Text)
		case KindPara:
			el.SetText(b.Text)
		case KindSpacer:
			el.CreateAttr("height", strconv.FormatFloat(b.Height, 'f', -1, 64))
		}
	}
	return doc
}
