//go:build gocv

package opencv

import (
	"image"

	"github.com/mj1618/onboard-cli/internal/vision"
	"gocv.io/x/gocv"
)

// Filters runs the recognition preprocessing through OpenCV. A frame that
// cannot be converted falls back to the pure-Go filters.
type Filters struct{}

var native = vision.NativeFilters{}

func (Filters) GaussianBlur(g *image.Gray, ksize int, sigma float64) *image.Gray {
	out, ok := apply(g, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.GaussianBlur(src, dst, image.Pt(ksize, ksize), sigma, sigma, gocv.BorderReplicate)
	})
	if !ok {
		return native.GaussianBlur(g, ksize, sigma)
	}
	return out
}

func (Filters) Adaptive(g *image.Gray, method vision.AdaptiveMethod, block int, c float64, inverse bool) *image.Gray {
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	am := gocv.AdaptiveThresholdMean
	if method == vision.AdaptiveGaussian {
		am = gocv.AdaptiveThresholdGaussian
	}
	typ := gocv.ThresholdBinary
	if inverse {
		typ = gocv.ThresholdBinaryInv
	}
	out, ok := apply(g, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.AdaptiveThreshold(src, dst, 255, am, typ, block, float32(c))
	})
	if !ok {
		return native.Adaptive(g, method, block, c, inverse)
	}
	return out
}

func (Filters) Equalize(g *image.Gray, clip float64, tiles int) *image.Gray {
	if tiles < 1 {
		tiles = 1
	}
	out, ok := apply(g, func(src gocv.Mat, dst *gocv.Mat) {
		clahe := gocv.NewCLAHEWithParams(clip, image.Pt(tiles, tiles))
		defer clahe.Close()
		clahe.Apply(src, dst)
	})
	if !ok {
		return native.Equalize(g, clip, tiles)
	}
	return out
}

var morphTypes = map[vision.MorphOp]gocv.MorphType{
	vision.MorphErode:  gocv.MorphErode,
	vision.MorphDilate: gocv.MorphDilate,
	vision.MorphOpen:   gocv.MorphOpen,
	vision.MorphClose:  gocv.MorphClose,
}

func (Filters) Morph(g *image.Gray, op vision.MorphOp, k vision.Kernel) *image.Gray {
	kernel := gocv.NewMatWithSize(k.H, k.W, gocv.MatTypeCV8U)
	defer kernel.Close()
	for y := 0; y < k.H; y++ {
		for x := 0; x < k.W; x++ {
			if k.On(x, y) {
				kernel.SetUCharAt(y, x, 1)
			}
		}
	}
	out, ok := apply(g, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.MorphologyEx(src, dst, morphTypes[op], kernel)
	})
	if !ok {
		return native.Morph(g, op, k)
	}
	return out
}

func (Filters) InRange(img image.Image, lo, hi vision.HSV) *image.Gray {
	bgr, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return native.InRange(img, lo, hi)
	}
	defer bgr.Close()
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	lower := gocv.NewScalar(float64(lo.H), float64(lo.S), float64(lo.V), 0)
	upper := gocv.NewScalar(float64(hi.H), float64(hi.S), float64(hi.V), 0)
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)

	out, ok := toGray(mask)
	if !ok {
		return native.InRange(img, lo, hi)
	}
	return out
}

func (Filters) Canny(g *image.Gray, low, high float64) *image.Gray {
	out, ok := apply(g, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.Canny(src, dst, float32(low), float32(high))
	})
	if !ok {
		return native.Canny(g, low, high)
	}
	return out
}

// apply runs fn on a single-channel copy of g.
func apply(g *image.Gray, fn func(src gocv.Mat, dst *gocv.Mat)) (*image.Gray, bool) {
	src, err := gocv.ImageGrayToMatGray(g)
	if err != nil {
		return nil, false
	}
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	fn(src, &dst)
	return toGray(dst)
}

func toGray(m gocv.Mat) (*image.Gray, bool) {
	if m.Empty() {
		return nil, false
	}
	img, err := m.ToImage()
	if err != nil {
		return nil, false
	}
	if g, ok := img.(*image.Gray); ok {
		return g, true
	}
	return vision.ToGray(img), true
}
