package render

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"docflow/common"
	"docflow/layout"
	"docflow/layout/flow"
	"docflow/layout/toc"
)

var ornament = []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 10"><rect width="20" height="10" fill="black"/></svg>`)

func newTestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
}

func testDocument() *Document {
	page := func(n int, items ...flow.Item) flow.Page {
		return flow.Page{Number: n, Width: 200, Height: 100, Items: append([]flow.Item{
			{Kind: flow.ItemRect, X: 10, Y: 10, W: 180, H: 80},
		}, items...)}
	}
	return &Document{
		ID:      uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"),
		BuildID: uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7"),
		Title:   "Test & Title",
		Lang:    "en",
		Source:  "/some/where/test.story",
		State:   layout.StateConverged,
		Passes:  2,
		PageW:   200,
		PageH:   100,
		Pages: []flow.Page{
			page(1,
				flow.Item{Kind: flow.ItemOrnament, X: 10, Y: 2, W: 180, H: 5, Data: ornament},
				flow.Item{Kind: flow.ItemText, X: 10, Y: 22, Text: "Intro", Font: "Go-Regular", Size: 10},
				flow.Item{Kind: flow.ItemText, X: 180, Y: 22, Text: "1", Font: "Go-Regular", Size: 10},
				flow.Item{Kind: flow.ItemText, X: 10, Y: 40, Text: "Intro", Font: "Go-Bold", Size: 12},
			),
			page(2,
				flow.Item{Kind: flow.ItemText, X: 10, Y: 22, Text: "Intro", Font: "Go-Italic", Size: 10},
				flow.Item{Kind: flow.ItemText, X: 42, Y: 22, Text: "again", Font: "Go-Mono", Size: 10},
			),
		},
		TOC: toc.Rendering{
			{Level: 0, Text: "Intro", Page: 1},
			{Level: 1, Text: "Intro", Page: 2},
			{Level: 1, Text: "???", Page: 2},
		},
	}
}

func TestSVG(t *testing.T) {
	doc := testDocument()
	pages := SVG(doc)
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}

	root := pages[0].Root()
	if root.Tag != "svg" || root.SelectAttrValue("viewBox", "") != "0 0 200 100" || root.SelectAttrValue("width", "") != "200pt" {
		t.Errorf("unexpected root %s %v", root.Tag, root.Attr)
	}
	if root.SelectAttrValue("xml:lang", "") != "en" {
		t.Errorf("xml:lang = %q", root.SelectAttrValue("xml:lang", ""))
	}
	if title := root.SelectElement("title"); title == nil || title.Text() != "Test & Title" {
		t.Error("title is missing")
	}
	if rects := root.SelectElements("rect"); len(rects) != 2 || rects[1].SelectAttrValue("fill", "") != "none" {
		t.Errorf("rects = %d, want background and frame", len(rects))
	}
	img := root.SelectElement("image")
	if img == nil || !strings.HasPrefix(img.SelectAttrValue("href", ""), "data:image/svg+xml;base64,") {
		t.Error("ornament image is missing")
	}
	texts := root.SelectElements("text")
	if len(texts) != 3 {
		t.Fatalf("texts = %d, want 3", len(texts))
	}
	if texts[2].SelectAttrValue("font-weight", "") != "bold" || texts[2].SelectAttrValue("y", "") != "40" {
		t.Errorf("heading text attrs = %v", texts[2].Attr)
	}

	texts = pages[1].Root().SelectElements("text")
	if texts[0].SelectAttrValue("font-style", "") != "italic" || !strings.Contains(texts[1].SelectAttrValue("font-family", ""), "monospace") {
		t.Error("font mapping is wrong")
	}

	data, err := pages[0].WriteToBytes()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("Test &amp; Title")) {
		t.Error("title must be escaped")
	}
}

func TestTOCXML(t *testing.T) {
	out := TOCXML(testDocument(), "svg")
	root := out.Root()
	if root.SelectAttrValue("stable", "") != "true" {
		t.Error("stable attribute is wrong")
	}
	var ids, hrefs []string
	for _, e := range root.SelectElements("entry") {
		ids = append(ids, e.SelectAttrValue("id", ""))
		hrefs = append(hrefs, e.SelectAttrValue("href", ""))
	}
	if !slices.Equal(ids, []string{"intro", "intro-2", "entry"}) {
		t.Errorf("ids = %v", ids)
	}
	if !slices.Equal(hrefs, []string{"pages/0001.svg", "pages/0002.svg", "pages/0002.svg"}) {
		t.Errorf("hrefs = %v", hrefs)
	}
}

func TestManifest(t *testing.T) {
	doc := testDocument()
	doc.State = layout.StateExhausted
	root := Manifest(doc, "png").Root()
	if root.SelectAttrValue("state", "") != "exhausted" || root.SelectAttrValue("passes", "") != "2" {
		t.Errorf("attrs = %v", root.Attr)
	}
	if root.SelectAttrValue("story", "") != doc.ID.String() {
		t.Error("story id is missing")
	}
	if src := root.SelectElement("source"); src == nil || src.Text() != "test.story" {
		t.Error("source must be base name")
	}
	pages := root.FindElements("pages/page")
	if len(pages) != 2 || pages[1].SelectAttrValue("href", "") != "pages/0002.png" {
		t.Errorf("pages = %d", len(pages))
	}
}

func TestText(t *testing.T) {
	out := string(Text(testDocument()))
	for _, want := range []string{
		"Test & Title\n",
		"=== page 1 ===\nIntro ........ 1\nIntro\n",
		"=== page 2 ===\nIntro again\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Text() missing %q in:\n%s", want, out)
		}
	}
}

func TestRasterize(t *testing.T) {
	doc := testDocument()
	fonts := flow.NewFonts()

	imgs, err := Rasterize(context.Background(), doc, fonts, RasterOptions{DPI: 72})
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if len(imgs) != 2 {
		t.Fatalf("images = %d", len(imgs))
	}
	if b := imgs[0].Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("bounds = %v, want 200x100", b)
	}
	if _, ok := imgs[0].(*image.Gray); !ok {
		t.Errorf("black and white page must be compacted to gray, got %T", imgs[0])
	}
	// one point wide stroke centered at y=10 shades rows 9 and 10
	y9, _, _, _ := imgs[0].At(100, 9).RGBA()
	y10, _, _, _ := imgs[0].At(100, 10).RGBA()
	if y9 == 0xffff && y10 == 0xffff {
		t.Error("frame line is not drawn")
	}
	if y, _, _, _ := imgs[0].At(100, 70).RGBA(); y != 0xffff {
		t.Error("page background must be white")
	}
	if y, _, _, _ := imgs[0].At(100, 4).RGBA(); y > 0x8000 {
		t.Error("ornament is not drawn")
	}

	imgs, err = Rasterize(context.Background(), doc, fonts, RasterOptions{DPI: 144, Width: 100})
	if err != nil {
		t.Fatal(err)
	}
	if b := imgs[1].Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("scaled bounds = %v, want 100x50", b)
	}

	data, err := EncodePNG(imgs[1])
	if err != nil || !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("EncodePNG() = %d bytes, %v", len(data), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Rasterize(ctx, doc, fonts, RasterOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Rasterize() error = %v, want context.Canceled", err)
	}
}

func readZip(t *testing.T, path string) map[string][]byte {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("unable to open archive: %v", err)
	}
	defer r.Close()

	files := make(map[string][]byte)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		files[f.Name] = data
	}
	return files
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Raster: RasterOptions{DPI: 72}, Fonts: flow.NewFonts(), WorkDir: dir}

	tests := []struct {
		name   string
		format common.OutputFmt
		fixZip bool
		want   []string
	}{
		{"svg", common.OutputFmtSvg, false, []string{"pages/0001.svg", "pages/0002.svg", "toc.xml", "manifest.xml"}},
		{"svg fixed", common.OutputFmtSvg, true, []string{"pages/0001.svg", "pages/0002.svg", "toc.xml", "manifest.xml"}},
		{"png", common.OutputFmtPng, false, []string{"pages/0001.png", "pages/0002.png", "toc.xml", "manifest.xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+tt.format.Ext())
			o := opts
			o.FixZip = tt.fixZip
			if err := Write(context.Background(), testDocument(), tt.format, dst, o, newTestLogger(t)); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			files := readZip(t, dst)
			if len(files) != len(tt.want) {
				t.Errorf("archive has %d files, want %d", len(files), len(tt.want))
			}
			for _, name := range tt.want {
				if len(files[name]) == 0 {
					t.Errorf("%s is missing or empty", name)
				}
			}
			doc := etree.NewDocument()
			if err := doc.ReadFromBytes(files["toc.xml"]); err != nil {
				t.Errorf("toc.xml is not valid XML: %v", err)
			}
		})
	}

	t.Run("txt", func(t *testing.T) {
		dst := filepath.Join(dir, "out.txt")
		if err := Write(context.Background(), testDocument(), common.OutputFmtTxt, dst, opts, newTestLogger(t)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		data, err := os.ReadFile(dst)
		if err != nil || !bytes.Equal(data, Text(testDocument())) {
			t.Errorf("text output mismatch: %v", err)
		}
	})

	t.Run("pdf", func(t *testing.T) {
		dst := filepath.Join(dir, "out.pdf")
		if err := Write(context.Background(), testDocument(), common.OutputFmtPdf, dst, opts, newTestLogger(t)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		f, err := os.Open(dst)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		n, err := api.PageCount(f, PDFConfiguration())
		if err != nil {
			t.Fatalf("PageCount() error = %v", err)
		}
		if n != 2 {
			t.Errorf("pdf pages = %d, want 2", n)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Write(ctx, testDocument(), common.OutputFmtSvg, filepath.Join(dir, "never.zip"), opts, newTestLogger(t))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Write() error = %v, want context.Canceled", err)
		}
	})

	t.Run("temporary files removed", func(t *testing.T) {
		matches, _ := filepath.Glob(filepath.Join(dir, "docflow-*.zip"))
		if len(matches) != 0 {
			t.Errorf("leftover temporary files: %v", matches)
		}
	})
}
