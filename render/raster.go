package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"docflow/layout/flow"
	"docflow/utils/images"
)

// DefaultDPI is used when RasterOptions.DPI is not set.
const DefaultDPI = 96

type RasterOptions struct {
	DPI float64
	// Width, when not 0, is resulting image width in pixels, height keeps
	// page aspect ratio.
	Width int
}

func (o RasterOptions) scale() float64 {
	if o.DPI <= 0 {
		return DefaultDPI / 72.0
	}
	return o.DPI / 72
}

func (o RasterOptions) dpi() float64 {
	return o.scale() * 72
}

// Rasterize draws every page of the document.
func Rasterize(ctx context.Context, doc *Document, fonts *flow.Fonts, opts RasterOptions) ([]image.Image, error) {
	if fonts == nil {
		fonts = flow.NewFonts()
	}
	res := make([]image.Image, 0, len(doc.Pages))
	for i := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := rasterPage(doc, &doc.Pages[i], fonts, opts)
		if err != nil {
			return nil, fmt.Errorf("unable to rasterize page %d: %w", doc.Pages[i].Number, err)
		}
		res = append(res, img)
	}
	return res, nil
}

func rasterPage(doc *Document, p *flow.Page, fonts *flow.Fonts, opts RasterOptions) (image.Image, error) {
	s := opts.scale()
	pw, ph := pageSize(doc, p)
	w, h := max(int(math.Ceil(pw*s)), 1), max(int(math.Ceil(ph*s)), 1)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	for _, it := range p.Items {
		switch it.Kind {
		case flow.ItemRect:
			strokeRect(dst, it.X*s, it.Y*s, (it.X+it.W)*s, (it.Y+it.H)*s, max(frameStroke*s, 1))
		case flow.ItemOrnament:
			box := image.Rect(int(it.X*s), int(it.Y*s), int((it.X+it.W)*s), int((it.Y+it.H)*s))
			if err := images.DrawSVG(dst, box, it.Data); err != nil {
				return nil, fmt.Errorf("unable to draw ornament: %w", err)
			}
		case flow.ItemText:
			face, err := fonts.Face(it.Font, it.Size, opts.dpi())
			if err != nil {
				return nil, err
			}
			d := font.Drawer{
				Dst:  dst,
				Src:  image.Black,
				Face: face,
				Dot:  fixed.Point26_6{X: toFixed(it.X * s), Y: toFixed(it.Y * s)},
			}
			d.DrawString(it.Text)
		}
	}

	var img image.Image = dst
	if opts.Width > 0 && opts.Width != w {
		img = imaging.Resize(dst, opts.Width, 0, imaging.Lanczos)
	}
	return images.Compact(img), nil
}

func strokeRect(dst draw.Image, minX, minY, maxX, maxY, width float64) {
	b := dst.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), dst, b)
	stroker := rasterx.NewStroker(b.Dx(), b.Dy(), scanner)
	stroker.SetStroke(toFixed(width), toFixed(4), rasterx.ButtCap, rasterx.ButtCap, rasterx.FlatGap, rasterx.MiterClip)
	rasterx.AddRect(minX, minY, maxX, maxY, 0, stroker)
	stroker.SetColor(color.Black)
	stroker.Draw()
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

// EncodePNG encodes page image.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("unable to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
