package vision

import (
	"image"
	"math"
)

// Kernel is a structuring element anchored at its centre.
type Kernel struct {
	W, H int
	on   []bool
}

// RectKernel returns a full w x h structuring element.
func RectKernel(w, h int) Kernel {
	k := Kernel{W: w, H: h, on: make([]bool, w*h)}
	for i := range k.on {
		k.on[i] = true
	}
	return k
}

// EllipseKernel returns the ellipse inscribed in a w x h box, rasterised
// row by row the way OpenCV builds MORPH_ELLIPSE.
func EllipseKernel(w, h int) Kernel {
	k := Kernel{W: w, H: h, on: make([]bool, w*h)}
	r, c := w/2, h/2
	for y := 0; y < h; y++ {
		dy := y - c
		if dy < -c || dy > c {
			continue
		}
		dx := 0
		if r > 0 {
			dx = int(math.Round(float64(c) * math.Sqrt(float64(r*r-dy*dy)/float64(r*r))))
		}
		for x := max(c-dx, 0); x < min(c+dx+1, w); x++ {
			k.on[y*w+x] = true
		}
	}
	return k
}

// On reports whether the kernel covers (x, y).
func (k Kernel) On(x, y int) bool {
	return k.on[y*k.W+x]
}

// MorphOp selects a morphological operation.
type MorphOp int

const (
	MorphErode MorphOp = iota
	MorphDilate
	MorphOpen
	MorphClose
)

func nativeMorph(g *image.Gray, op MorphOp, k Kernel) *image.Gray {
	switch op {
	case MorphErode:
		return morph(g, k, true)
	case MorphDilate:
		return morph(g, k, false)
	case MorphOpen:
		return morph(morph(g, k, true), k, false)
	default:
		return morph(morph(g, k, false), k, true)
	}
}

func morph(g *image.Gray, k Kernel, erode bool) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	ax, ay := k.W/2, k.H/2
	out := image.NewGray(g.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var best uint8
			if erode {
				best = 255
			}
			for ky := 0; ky < k.H; ky++ {
				yy := y + ky - ay
				if yy < 0 || yy >= h {
					continue
				}
				for kx := 0; kx < k.W; kx++ {
					if !k.on[ky*k.W+kx] {
						continue
					}
					xx := x + kx - ax
					if xx < 0 || xx >= w {
						continue
					}
					v := g.Pix[yy*g.Stride+xx]
					if erode && v < best || !erode && v > best {
						best = v
					}
				}
			}
			out.Pix[y*out.Stride+x] = best
		}
	}
	return out
}
