package vision

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"
)

// ToGray converts img to an 8-bit grayscale image with origin (0,0).
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < b.Dy(); y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < b.Dx(); x++ {
				p := row[x*4 : x*4+3]
				out.Pix[y*out.Stride+x] = luma(p[0], p[1], p[2])
			}
		}
	case *image.NRGBA:
		for y := 0; y < b.Dy(); y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < b.Dx(); x++ {
				p := row[x*4 : x*4+3]
				out.Pix[y*out.Stride+x] = luma(p[0], p[1], p[2])
			}
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				out.Pix[y*out.Stride+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
			}
		}
	}
	return out
}

func luma(r, g, b uint8) uint8 {
	return uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
}

// Crop copies the part of img inside r into a new image with origin (0,0).
// r is clipped to the image bounds.
func Crop(img image.Image, r image.Rectangle) *image.RGBA {
	r = r.Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}

// Invert returns 255-v for every pixel.
func Invert(g *image.Gray) *image.Gray {
	out := image.NewGray(g.Rect)
	for i, v := range g.Pix {
		out.Pix[i] = 255 - v
	}
	return out
}

// Scale resizes img by factor with bicubic interpolation. A factor of 1
// returns img unchanged.
func Scale(img image.Image, factor float64) image.Image {
	if factor == 1 || factor <= 0 {
		return img
	}
	b := img.Bounds()
	w := uint(float64(b.Dx())*factor + 0.5)
	h := uint(float64(b.Dy())*factor + 0.5)
	if w == 0 || h == 0 {
		return img
	}
	return resize.Resize(w, h, img, resize.Bicubic)
}

// Shrink downsamples g by an integer factor with bilinear filtering.
func Shrink(g *image.Gray, factor int) *image.Gray {
	if factor <= 1 {
		return g
	}
	w := uint(g.Rect.Dx() / factor)
	h := uint(g.Rect.Dy() / factor)
	if w == 0 || h == 0 {
		return g
	}
	return ToGray(resize.Resize(w, h, g, resize.Bilinear))
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
