package vision

import "image"

// Filters is the preprocessing backend behind the recognition variants.
// The pure-Go NativeFilters is active unless an accelerated backend
// registers itself with SetFilters from its init.
type Filters interface {
	GaussianBlur(g *image.Gray, ksize int, sigma float64) *image.Gray
	Adaptive(g *image.Gray, method AdaptiveMethod, block int, c float64, inverse bool) *image.Gray
	Equalize(g *image.Gray, clip float64, tiles int) *image.Gray
	Morph(g *image.Gray, op MorphOp, k Kernel) *image.Gray
	InRange(img image.Image, lo, hi HSV) *image.Gray
	Canny(g *image.Gray, low, high float64) *image.Gray
}

var active Filters = NativeFilters{}

// SetFilters replaces the active backend. nil restores NativeFilters.
func SetFilters(f Filters) {
	if f == nil {
		f = NativeFilters{}
	}
	active = f
}

// ActiveFilters returns the backend in use.
func ActiveFilters() Filters { return active }

// NativeFilters implements Filters without cgo.
type NativeFilters struct{}

func (NativeFilters) GaussianBlur(g *image.Gray, ksize int, sigma float64) *image.Gray {
	return gaussianBlur(g, ksize, sigma)
}

func (NativeFilters) Adaptive(g *image.Gray, method AdaptiveMethod, block int, c float64, inverse bool) *image.Gray {
	return adaptive(g, method, block, c, inverse)
}

func (NativeFilters) Equalize(g *image.Gray, clip float64, tiles int) *image.Gray {
	return equalize(g, clip, tiles)
}

func (NativeFilters) Morph(g *image.Gray, op MorphOp, k Kernel) *image.Gray {
	return nativeMorph(g, op, k)
}

func (NativeFilters) InRange(img image.Image, lo, hi HSV) *image.Gray {
	return inRange(img, lo, hi)
}

func (NativeFilters) Canny(g *image.Gray, low, high float64) *image.Gray {
	return canny(g, low, high)
}

// GaussianBlur smooths g with a ksize x ksize gaussian kernel. sigma <= 0
// derives sigma from the kernel size.
func GaussianBlur(g *image.Gray, ksize int, sigma float64) *image.Gray {
	return active.GaussianBlur(g, ksize, sigma)
}

// Adaptive thresholds each pixel against the mean or gaussian weighted
// average of its block x block neighbourhood minus c.
func Adaptive(g *image.Gray, method AdaptiveMethod, block int, c float64, inverse bool) *image.Gray {
	return active.Adaptive(g, method, block, c, inverse)
}

// Equalize applies contrast-limited adaptive histogram equalisation over
// tiles x tiles regions.
func Equalize(g *image.Gray, clip float64, tiles int) *image.Gray {
	return active.Equalize(g, clip, tiles)
}

// Erode replaces each pixel with the minimum under the kernel.
func Erode(g *image.Gray, k Kernel) *image.Gray { return active.Morph(g, MorphErode, k) }

// Dilate replaces each pixel with the maximum under the kernel.
func Dilate(g *image.Gray, k Kernel) *image.Gray { return active.Morph(g, MorphDilate, k) }

// Open is erosion followed by dilation.
func Open(g *image.Gray, k Kernel) *image.Gray { return active.Morph(g, MorphOpen, k) }

// Close is dilation followed by erosion.
func Close(g *image.Gray, k Kernel) *image.Gray { return active.Morph(g, MorphClose, k) }

// InRange is a mask of pixels whose HSV components all lie within
// [lo, hi].
func InRange(img image.Image, lo, hi HSV) *image.Gray {
	return active.InRange(img, lo, hi)
}

// Canny detects edges with hysteresis between low and high.
func Canny(g *image.Gray, low, high float64) *image.Gray {
	return active.Canny(g, low, high)
}
