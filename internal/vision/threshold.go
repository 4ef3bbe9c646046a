package vision

import "image"

// Binary maps pixels strictly above t to 255 and the rest to 0.
func Binary(g *image.Gray, t uint8) *image.Gray {
	out := image.NewGray(g.Rect)
	for i, v := range g.Pix {
		if v > t {
			out.Pix[i] = 255
		}
	}
	return out
}

// BinaryInv maps pixels strictly above t to 0 and the rest to 255.
func BinaryInv(g *image.Gray, t uint8) *image.Gray {
	out := image.NewGray(g.Rect)
	for i, v := range g.Pix {
		if v <= t {
			out.Pix[i] = 255
		}
	}
	return out
}

// AdaptiveMethod selects how the local threshold is computed.
type AdaptiveMethod int

const (
	AdaptiveMean AdaptiveMethod = iota
	AdaptiveGaussian
)

func (m AdaptiveMethod) String() string {
	if m == AdaptiveGaussian {
		return "gaussian"
	}
	return "mean"
}

// adaptive thresholds each pixel against the (mean or gaussian weighted)
// average of its block x block neighbourhood minus c. block must be odd.
func adaptive(g *image.Gray, method AdaptiveMethod, block int, c float64, inverse bool) *image.Gray {
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	var local []float64
	if method == AdaptiveGaussian {
		local = gaussianFloat(g, block, 0)
	} else {
		local = boxMean(g, block)
	}

	out := image.NewGray(g.Rect)
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(g.Pix[y*g.Stride+x])
			above := v > local[y*w+x]-c
			if above != inverse {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// boxMean returns the mean over a block x block window per pixel using an
// integral image with replicated borders.
func boxMean(g *image.Gray, block int) []float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	r := block / 2
	integral := make([]float64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum float64
		for x := 0; x < w; x++ {
			rowSum += float64(g.Pix[y*g.Stride+x])
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-r), min(h-1, y+r)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-r), min(w-1, x+r)
			sum := integral[(y1+1)*(w+1)+x1+1] - integral[y0*(w+1)+x1+1] - integral[(y1+1)*(w+1)+x0] + integral[y0*(w+1)+x0]
			out[y*w+x] = sum / float64((x1-x0+1)*(y1-y0+1))
		}
	}
	return out
}

// Or combines masks pixel-wise. All inputs must share bounds.
func Or(masks ...*image.Gray) *image.Gray {
	if len(masks) == 0 {
		return nil
	}
	out := image.NewGray(masks[0].Rect)
	for _, m := range masks {
		for i, v := range m.Pix {
			if v != 0 {
				out.Pix[i] = 255
			}
		}
	}
	return out
}

// Above is a mask of pixels strictly brighter than t.
func Above(g *image.Gray, t uint8) *image.Gray {
	return Binary(g, t)
}
