package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// used when SVG has no usable viewBox
const defaultSVGSize = 256

// maxRasterDim limits pixel dimension of standalone rasterized SVG so
// enormous viewBox values cannot exhaust memory.
var maxRasterDim = 8192

// FitRect returns largest rectangle with aspect ratio w:h centered inside box.
func FitRect(box image.Rectangle, w, h float64) image.Rectangle {
	if w <= 0 || h <= 0 || box.Empty() {
		return box
	}
	scale := math.Min(float64(box.Dx())/w, float64(box.Dy())/h)
	fw := int(math.Round(w * scale))
	fh := int(math.Round(h * scale))
	x := box.Min.X + (box.Dx()-fw)/2
	y := box.Min.Y + (box.Dy()-fh)/2
	return image.Rect(x, y, x+fw, y+fh)
}

func readIcon(svgData []byte) (*oksvg.SvgIcon, float64, float64, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("unable to parse SVG: %w", err)
	}
	w, h := icon.ViewBox.W, icon.ViewBox.H
	if w <= 0 {
		w = defaultSVGSize
	}
	if h <= 0 {
		h = defaultSVGSize
	}
	return icon, w, h, nil
}

// DrawSVG renders SVG over dst inside box keeping aspect ratio. Pixels of
// dst outside of the SVG shapes are left untouched.
func DrawSVG(dst draw.Image, box image.Rectangle, svgData []byte) error {
	icon, w, h, err := readIcon(svgData)
	if err != nil {
		return err
	}
	target := FitRect(box.Intersect(dst.Bounds()), w, h)
	if target.Empty() {
		return nil
	}
	icon.SetTarget(float64(target.Min.X), float64(target.Min.Y), float64(target.Dx()), float64(target.Dy()))

	b := dst.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), dst, b)
	icon.Draw(rasterx.NewDasher(b.Dx(), b.Dy(), scanner), 1.0)
	return nil
}

// RasterizeSVGToImage rasterizes SVG to an RGBA image on white background.
//
// Rules:
//   - if targetW == 0 && targetH == 0: use SVG viewBox dimensions
//   - if only one of targetW/targetH is > 0: scale by that dimension keeping aspect ratio
//   - if both targetW and targetH are > 0: fit into that box keeping aspect ratio
func RasterizeSVGToImage(svgData []byte, targetW, targetH int) (*image.RGBA, error) {
	_, intrW, intrH, err := readIcon(svgData)
	if err != nil {
		return nil, err
	}

	w, h := int(math.Ceil(intrW)), int(math.Ceil(intrH))
	switch {
	case targetW <= 0 && targetH <= 0:
	case targetH <= 0:
		w = targetW
		h = int(math.Round(float64(w) * intrH / intrW))
	case targetW <= 0:
		h = targetH
		w = int(math.Round(float64(h) * intrW / intrH))
	default:
		fit := FitRect(image.Rect(0, 0, targetW, targetH), intrW, intrH)
		w, h = fit.Dx(), fit.Dy()
	}
	w, h = max(w, 1), max(h, 1)

	if w > maxRasterDim || h > maxRasterDim {
		s := min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w = max(int(math.Round(float64(w)*s)), 1)
		h = max(int(math.Round(float64(h)*s)), 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if err := DrawSVG(dst, dst.Bounds(), svgData); err != nil {
		return nil, err
	}
	return dst, nil
}
