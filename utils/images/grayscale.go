package images

import (
	"image"
	"image/color"
	"image/draw"
)

// IsGrayscale reports whether every pixel of img has R==G==B.
func IsGrayscale(img image.Image) bool {
	switch m := img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	case *image.RGBA:
		// rendered pages, read pixels directly
		b := m.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := m.Pix[m.PixOffset(b.Min.X, y):m.PixOffset(b.Max.X, y)]
			for i := 0; i < len(row); i += 4 {
				if row[i] != row[i+1] || row[i+1] != row[i+2] {
					return false
				}
			}
		}
		return true
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R != c.G || c.G != c.B {
				return false
			}
		}
	}
	return true
}

// Compact converts grayscale image to 8 bit gray so it encodes smaller,
// other images are returned unchanged.
func Compact(img image.Image) image.Image {
	if _, ok := img.(*image.Gray); ok || !IsGrayscale(img) {
		return img
	}
	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	return gray
}
