package vision

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/vcaesar/imgo"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Annotation is a labelled box drawn on a diagnostic dump.
type Annotation struct {
	Box   image.Rectangle
	Label string
	Color color.Color // nil = red
}

// Annotate draws boxes and labels on a copy of img.
func Annotate(img image.Image, notes []Annotation) *image.RGBA {
	rgba := ToRGBA(img)
	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor := color.RGBA{R: 0, G: 0, B: 0, A: 200}
	for _, n := range notes {
		c := n.Color
		if c == nil {
			c = color.RGBA{R: 255, A: 255}
		}
		drawRectangle(rgba, n.Box.Min.X, n.Box.Min.Y, n.Box.Max.X, n.Box.Max.Y, c)
		if n.Label != "" {
			// Label sits just above the box, or inside it at the top edge.
			y := n.Box.Min.Y - 2
			if y < 13 {
				y = n.Box.Min.Y + 13
			}
			drawTextWithOutline(rgba, n.Label, n.Box.Min.X+2, y, textColor, outlineColor)
		}
	}
	return rgba
}

// SaveImage writes img to path; the format follows the extension.
func SaveImage(path string, img image.Image) error {
	return imgo.Save(path, img)
}

// ToRGBA converts any image to RGBA.
func ToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	r := image.Rect(x1, y1, x2, y2).Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

// drawTextWithOutline draws text with its baseline at (x, y) and a one
// pixel outline.
func drawTextWithOutline(img *image.RGBA, text string, x, y int, textColor, outlineColor color.Color) {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			d := &font.Drawer{
				Dst:  img,
				Src:  image.NewUniform(outlineColor),
				Face: basicfont.Face7x13,
				Dot:  fixed.P(x+dx, y+dy),
			}
			d.DrawString(text)
		}
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
