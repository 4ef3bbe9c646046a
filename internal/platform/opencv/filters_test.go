//go:build gocv

package opencv

import (
	"image"
	"image/color"
	"testing"

	"github.com/mj1618/onboard-cli/internal/vision"
)

func stepImage(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			g.SetGray(x, y, color.Gray{Y: 220})
		}
	}
	return g
}

func TestInit_RegistersFilters(t *testing.T) {
	if _, ok := vision.ActiveFilters().(Filters); !ok {
		t.Fatalf("active filters = %T, want opencv.Filters", vision.ActiveFilters())
	}
}

func TestFilters_Canny(t *testing.T) {
	out := Filters{}.Canny(stepImage(20, 10), 50, 150)
	if out.Rect.Dx() != 20 || out.Rect.Dy() != 10 {
		t.Fatalf("size = %v", out.Rect)
	}
	edges := 0
	for _, v := range out.Pix {
		if v == 255 {
			edges++
		}
	}
	if edges == 0 {
		t.Error("no edge found on a step")
	}
}

func TestFilters_DilateGrowsDot(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 7, 7))
	g.SetGray(3, 3, color.Gray{Y: 255})
	out := Filters{}.Morph(g, vision.MorphDilate, vision.RectKernel(3, 3))
	for _, p := range []image.Point{{2, 2}, {3, 3}, {4, 4}} {
		if out.GrayAt(p.X, p.Y).Y != 255 {
			t.Errorf("pixel %v not set", p)
		}
	}
	if out.GrayAt(0, 0).Y != 0 {
		t.Error("corner set")
	}
}

func TestFilters_InRangeWhite(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{250, 250, 250, 255})
	img.Set(1, 0, color.RGBA{200, 20, 20, 255})
	m := Filters{}.InRange(img, vision.HSV{H: 0, S: 0, V: 180}, vision.HSV{H: 255, S: 30, V: 255})
	if m.GrayAt(0, 0).Y != 255 || m.GrayAt(1, 0).Y != 0 {
		t.Errorf("mask = %v", m.Pix)
	}
}

func TestFilters_AdaptiveKeepsSize(t *testing.T) {
	out := Filters{}.Adaptive(stepImage(30, 30), vision.AdaptiveGaussian, 11, 2, true)
	if out.Rect != image.Rect(0, 0, 30, 30) {
		t.Errorf("rect = %v", out.Rect)
	}
}
