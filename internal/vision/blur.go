package vision

import (
	"image"
	"math"
)

// gaussianBlur smooths g with a ksize x ksize gaussian kernel. sigma <= 0
// derives sigma from the kernel size.
func gaussianBlur(g *image.Gray, ksize int, sigma float64) *image.Gray {
	vals := gaussianFloat(g, ksize, sigma)
	out := image.NewGray(g.Rect)
	w := g.Rect.Dx()
	for y := 0; y < g.Rect.Dy(); y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = clamp8(vals[y*w+x])
		}
	}
	return out
}

func gaussianKernel(ksize int, sigma float64) []float64 {
	if sigma <= 0 {
		sigma = 0.3*(float64(ksize-1)*0.5-1) + 0.8
	}
	k := make([]float64, ksize)
	r := ksize / 2
	var sum float64
	for i := range k {
		d := float64(i - r)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianFloat runs a separable gaussian with replicated borders and keeps
// full precision.
func gaussianFloat(g *image.Gray, ksize int, sigma float64) []float64 {
	if ksize%2 == 0 {
		ksize++
	}
	k := gaussianKernel(ksize, sigma)
	r := ksize / 2
	w, h := g.Rect.Dx(), g.Rect.Dy()

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				xx := min(max(x+i-r, 0), w-1)
				acc += kv * float64(g.Pix[y*g.Stride+xx])
			}
			tmp[y*w+x] = acc
		}
	}
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				yy := min(max(y+i-r, 0), h-1)
				acc += kv * tmp[yy*w+x]
			}
			out[y*w+x] = acc
		}
	}
	return out
}
