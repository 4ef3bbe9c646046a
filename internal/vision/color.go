package vision

import (
	"image"
	"image/color"
)

// HSV is a colour in OpenCV's 8-bit convention: H in 0..179, S and V in
// 0..255.
type HSV struct {
	H, S, V uint8
}

// ToHSV converts an RGB colour.
func ToHSV(c color.Color) HSV {
	r16, g16, b16, _ := c.RGBA()
	r, g, b := float64(r16>>8), float64(g16>>8), float64(b16>>8)
	maxc := max(r, g, b)
	minc := min(r, g, b)
	v := maxc
	var s, h float64
	if maxc > 0 {
		s = (maxc - minc) / maxc * 255
	}
	if d := maxc - minc; d > 0 {
		switch maxc {
		case r:
			h = 60 * (g - b) / d
		case g:
			h = 120 + 60*(b-r)/d
		default:
			h = 240 + 60*(r-g)/d
		}
		if h < 0 {
			h += 360
		}
	}
	return HSV{H: clamp8(h / 2), S: clamp8(s), V: clamp8(v)}
}

// inRange is a mask of pixels whose HSV components all lie within
// [lo, hi].
func inRange(img image.Image, lo, hi HSV) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			p := ToHSV(img.At(b.Min.X+x, b.Min.Y+y))
			if p.H >= lo.H && p.H <= hi.H && p.S >= lo.S && p.S <= hi.S && p.V >= lo.V && p.V <= hi.V {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}
