package render

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/gosimple/slug"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"docflow/common"
	"docflow/layout"
	"docflow/layout/flow"
	"docflow/misc"
)

// Options control output production.
type Options struct {
	Raster RasterOptions
	// FixZip recopies archive without data descriptors, some readers cannot
	// handle them.
	FixZip bool
	// Fonts used for rasterization, fresh set is created when nil.
	Fonts *flow.Fonts
	// WorkDir keeps intermediate files, system temporary directory when empty.
	WorkDir string
}

// Write renders document in requested format into dst.
func Write(ctx context.Context, doc *Document, format common.OutputFmt, dst string, opts Options, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if opts.Fonts == nil {
		opts.Fonts = flow.NewFonts()
	}

	start := time.Now()
	log.Debug("Rendering started", zap.Stringer("format", format), zap.String("to", dst), zap.Int("pages", len(doc.Pages)))
	defer func(start time.Time) {
		log.Debug("Rendering completed", zap.Duration("elapsed", time.Since(start)))
	}(start)

	switch format {
	case common.OutputFmtSvg, common.OutputFmtPng:
		return writeArchive(ctx, doc, format, dst, opts, log)
	case common.OutputFmtPdf:
		return writePDF(ctx, doc, dst, opts)
	case common.OutputFmtTxt:
		if err := os.WriteFile(dst, Text(doc), 0644); err != nil {
			return fmt.Errorf("unable to write text file (%s): %w", dst, err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %s", format)
	}
}

func writeArchive(ctx context.Context, doc *Document, format common.OutputFmt, dst string, opts Options, log *zap.Logger) error {
	tmp, err := os.CreateTemp(opts.WorkDir, "docflow-*.zip")
	if err != nil {
		return fmt.Errorf("unable to create temporary archive: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writePages(ctx, tmp, doc, format, opts); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close temporary archive: %w", err)
	}

	if opts.FixZip {
		log.Debug("Copying archive without data descriptors", zap.String("to", dst))
		return copyZipWithoutDataDescriptors(tmpName, dst)
	}
	return copyFile(tmpName, dst)
}

func writePages(ctx context.Context, out io.Writer, doc *Document, format common.OutputFmt, opts Options) error {
	zw := zip.NewWriter(out)

	ext := "svg"
	switch format {
	case common.OutputFmtSvg:
		for i, page := range SVG(doc) {
			if err := ctx.Err(); err != nil {
				return err
			}
			page.Indent(2)
			if err := writeXMLToZip(zw, PageName(doc.Pages[i].Number, ext), page); err != nil {
				return fmt.Errorf("unable to write page %d: %w", doc.Pages[i].Number, err)
			}
		}
	case common.OutputFmtPng:
		ext = "png"
		imgs, err := Rasterize(ctx, doc, opts.Fonts, opts.Raster)
		if err != nil {
			return err
		}
		for i, img := range imgs {
			data, err := EncodePNG(img)
			if err != nil {
				return err
			}
			if err := writeDataToZip(zw, PageName(doc.Pages[i].Number, ext), data); err != nil {
				return fmt.Errorf("unable to write page %d: %w", doc.Pages[i].Number, err)
			}
		}
	}

	if err := writeXMLToZip(zw, "toc.xml", TOCXML(doc, ext)); err != nil {
		return fmt.Errorf("unable to write table of contents: %w", err)
	}
	if err := writeXMLToZip(zw, "manifest.xml", Manifest(doc, ext)); err != nil {
		return fmt.Errorf("unable to write manifest: %w", err)
	}
	return zw.Close()
}

// TOCXML describes table of contents as displayed on the pages with links to
// page files. Anchors are unique slugs of entry text.
func TOCXML(doc *Document, ext string) *etree.Document {
	out := etree.NewDocument()
	out.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := out.CreateElement("toc")
	root.CreateAttr("build", doc.BuildID.String())
	root.CreateAttr("stable", strconv.FormatBool(doc.State == layout.StateConverged))

	seen := make(map[string]int)
	for _, l := range doc.TOC {
		anchor := slug.Make(l.Text)
		if anchor == "" {
			anchor = "entry"
		}
		if n := seen[anchor]; n > 0 {
			seen[anchor] = n + 1
			anchor = fmt.Sprintf("%s-%d", anchor, n+1)
		} else {
			seen[anchor] = 1
		}

		e := root.CreateElement("entry")
		e.CreateAttr("id", anchor)
		e.CreateAttr("level", strconv.Itoa(l.Level))
		e.CreateAttr("page", strconv.Itoa(l.Page))
		e.CreateAttr("href", PageName(l.Page, ext))
		e.SetText(l.Text)
	}
	out.Indent(2)
	return out
}

// Manifest lists pages of the archive together with build information.
func Manifest(doc *Document, ext string) *etree.Document {
	out := etree.NewDocument()
	out.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := out.CreateElement("manifest")
	root.CreateAttr("generator", misc.GetAppName()+" "+misc.GetVersion())
	root.CreateAttr("story", doc.ID.String())
	root.CreateAttr("build", doc.BuildID.String())
	root.CreateAttr("state", doc.State.String())
	root.CreateAttr("passes", strconv.Itoa(doc.Passes))
	if doc.Title != "" {
		root.CreateElement("title").SetText(doc.Title)
	}
	if doc.Lang != "" {
		root.CreateElement("language").SetText(doc.Lang)
	}
	if doc.Source != "" {
		root.CreateElement("source").SetText(filepath.Base(doc.Source))
	}

	pages := root.CreateElement("pages")
	for i := range doc.Pages {
		p := &doc.Pages[i]
		w, h := pageSize(doc, p)
		e := pages.CreateElement("page")
		e.CreateAttr("number", strconv.Itoa(p.Number))
		e.CreateAttr("href", PageName(p.Number, ext))
		e.CreateAttr("width", num(w))
		e.CreateAttr("height", num(h))
	}
	out.Indent(2)
	return out
}

func copyZipWithoutDataDescriptors(from, to string) error {

	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	for _, file := range r.File {
		file.Flags &= ^fixzip.FlagDataDescriptor
		if err := w.CopyFile(file); err != nil {
			return multierr.Append(fmt.Errorf("unable to write target file (%s): %w", to, err), w.Close())
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("unable to finish target file (%s): %w", to, err)
	}
	return out.Close()
}

func copyFile(src, dst string) error {

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	if _, err = io.Copy(out, in); err != nil {
		return multierr.Append(fmt.Errorf("failed to copy file contents: %w", err), out.Close())
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return nil
}

func writeXMLToZip(zw *zip.Writer, name string, doc *etree.Document) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return err
	}
	return writeDataToZip(zw, name, buf.Bytes())
}

func writeDataToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
