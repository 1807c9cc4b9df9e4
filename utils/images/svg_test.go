package images

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

var ornament = []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50"><rect width="100" height="50" fill="black"/></svg>`)

func TestFitRect(t *testing.T) {
	tests := []struct {
		name string
		box  image.Rectangle
		w, h float64
		want image.Rectangle
	}{
		{"wide into square", image.Rect(0, 0, 100, 100), 100, 50, image.Rect(0, 25, 100, 75)},
		{"tall into wide", image.Rect(10, 10, 210, 110), 1, 2, image.Rect(85, 10, 135, 110)},
		{"exact", image.Rect(0, 0, 40, 20), 2, 1, image.Rect(0, 0, 40, 20)},
		{"bad ratio", image.Rect(0, 0, 40, 20), 0, 1, image.Rect(0, 0, 40, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FitRect(tt.box, tt.w, tt.h); got != tt.want {
				t.Errorf("FitRect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRasterizeSVGToImage(t *testing.T) {
	tests := []struct {
		name   string
		tw, th int
		w, h   int
	}{
		{"intrinsic", 0, 0, 100, 50},
		{"scale_by_width", 200, 0, 200, 100},
		{"scale_by_height", 0, 200, 400, 200},
		{"fit_box", 150, 150, 150, 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := RasterizeSVGToImage(ornament, tt.tw, tt.th)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if img.Bounds().Dx() != tt.w || img.Bounds().Dy() != tt.h {
				t.Fatalf("unexpected bounds: %v", img.Bounds())
			}
		})
	}

	if _, err := RasterizeSVGToImage([]byte("<svg"), 10, 10); err == nil {
		t.Error("expected error for broken SVG")
	}
}

func TestDrawSVG(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	// ornament is 2:1, fitted into the top half it covers rows 0..25
	if err := DrawSVG(dst, image.Rect(0, 0, 100, 50), ornament); err != nil {
		t.Fatalf("DrawSVG() error = %v", err)
	}
	if r, _, _, _ := dst.At(50, 24).RGBA(); r != 0 {
		t.Errorf("inside pixel = %v, want black", dst.At(50, 24))
	}
	if c := color.RGBAModel.Convert(dst.At(50, 60)).(color.RGBA); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("outside pixel = %v, want untouched white", c)
	}

	if err := DrawSVG(dst, image.Rect(200, 200, 300, 300), ornament); err != nil {
		t.Errorf("DrawSVG() outside of image error = %v", err)
	}
}

func TestCompact(t *testing.T) {
	gray := image.NewRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(gray, gray.Bounds(), &image.Uniform{C: color.Gray{Y: 128}}, image.Point{}, draw.Src)
	if !IsGrayscale(gray) {
		t.Fatal("IsGrayscale() = false for gray RGBA")
	}
	if _, ok := Compact(gray).(*image.Gray); !ok {
		t.Error("Compact() must convert grayscale RGBA to Gray")
	}

	colored := image.NewRGBA(image.Rect(0, 0, 4, 4))
	colored.Set(1, 1, color.RGBA{R: 255, A: 255})
	if IsGrayscale(colored) {
		t.Fatal("IsGrayscale() = true for colored image")
	}
	if Compact(colored) != image.Image(colored) {
		t.Error("Compact() must keep colored image")
	}
}
