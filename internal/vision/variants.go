package vision

import (
	"fmt"
	"image"
)

// Source is a captured region with a lazily computed grayscale copy.
type Source struct {
	Color image.Image
	gray  *image.Gray
}

// NewSource wraps a region image.
func NewSource(img image.Image) *Source {
	return &Source{Color: img}
}

// Gray returns the grayscale copy, computing it once.
func (s *Source) Gray() *image.Gray {
	if s.gray == nil {
		s.gray = ToGray(s.Color)
	}
	return s.gray
}

// Variant is one preprocessing recipe applied before text recognition.
// Scale is the upscale factor applied to the recipe's output; recognized
// coordinates must be divided by it.
type Variant struct {
	Name  string
	Scale float64
	Apply func(*Source) *image.Gray
}

// Prepare runs v on src and returns the image to recognize.
func (v Variant) Prepare(src *Source) image.Image {
	out := v.Apply(src)
	if v.Scale > 1 {
		return Scale(out, v.Scale)
	}
	return out
}

// BinaryVariants thresholds at each cutoff.
func BinaryVariants(scale float64, cutoffs ...uint8) []Variant {
	out := make([]Variant, 0, len(cutoffs))
	for _, t := range cutoffs {
		t := t
		out = append(out, Variant{
			Name:  fmt.Sprintf("binary_%d", t),
			Scale: scale,
			Apply: func(s *Source) *image.Gray { return Binary(s.Gray(), t) },
		})
	}
	return out
}

// InvertedBinaryVariants thresholds inverted at each cutoff.
func InvertedBinaryVariants(scale float64, cutoffs ...uint8) []Variant {
	out := make([]Variant, 0, len(cutoffs))
	for _, t := range cutoffs {
		t := t
		out = append(out, Variant{
			Name:  fmt.Sprintf("binary_inv_%d", t),
			Scale: scale,
			Apply: func(s *Source) *image.Gray { return BinaryInv(s.Gray(), t) },
		})
	}
	return out
}

// AdaptiveVariants covers gaussian and mean methods, blocks 11 and 15,
// offsets 2 and 5, each normal and inverted.
func AdaptiveVariants(scale float64) []Variant {
	var out []Variant
	for _, m := range []AdaptiveMethod{AdaptiveGaussian, AdaptiveMean} {
		for _, block := range []int{11, 15} {
			for _, c := range []float64{2, 5} {
				for _, inv := range []bool{false, true} {
					m, block, c, inv := m, block, c, inv
					name := fmt.Sprintf("adaptive_%s_%d_%g", m, block, c)
					if inv {
						name += "_inv"
					}
					out = append(out, Variant{
						Name:  name,
						Scale: scale,
						Apply: func(s *Source) *image.Gray { return Adaptive(s.Gray(), m, block, c, inv) },
					})
				}
			}
		}
	}
	return out
}

// MultiThresholdVariants ORs the 120/150/180 masks, plain and inverted.
func MultiThresholdVariants(scale float64) []Variant {
	combined := func(s *Source) *image.Gray {
		g := s.Gray()
		return Or(Binary(g, 120), Binary(g, 150), Binary(g, 180))
	}
	return []Variant{
		{Name: "multi_threshold", Scale: scale, Apply: combined},
		{Name: "multi_threshold_inv", Scale: scale, Apply: func(s *Source) *image.Gray { return Invert(combined(s)) }},
	}
}

// ContrastVariants equalises locally and then thresholds.
func ContrastVariants(scale float64) []Variant {
	var out []Variant
	for _, clip := range []float64{2, 3, 4} {
		for _, tiles := range []int{8, 16} {
			for _, t := range []uint8{130, 160, 190} {
				clip, tiles, t := clip, tiles, t
				name := fmt.Sprintf("contrast_%g_%d_%d", clip, tiles, t)
				out = append(out,
					Variant{Name: name, Scale: scale, Apply: func(s *Source) *image.Gray {
						return Binary(Equalize(s.Gray(), clip, tiles), t)
					}},
					Variant{Name: name + "_inv", Scale: scale, Apply: func(s *Source) *image.Gray {
						return BinaryInv(Equalize(s.Gray(), clip, tiles), t)
					}},
				)
			}
		}
	}
	return out
}

// MorphVariants thresholds at 150 and then closes or opens with rectangular
// and elliptical 2x2 and 3x3 kernels.
func MorphVariants(scale float64) []Variant {
	kernels := []struct {
		name string
		k    Kernel
	}{
		{"rect2", RectKernel(2, 2)},
		{"rect3", RectKernel(3, 3)},
		{"ellipse2", EllipseKernel(2, 2)},
		{"ellipse3", EllipseKernel(3, 3)},
	}
	var out []Variant
	for _, kk := range kernels {
		kk := kk
		out = append(out,
			Variant{Name: "close_" + kk.name, Scale: scale, Apply: func(s *Source) *image.Gray {
				return Close(Binary(s.Gray(), 150), kk.k)
			}},
			Variant{Name: "open_" + kk.name, Scale: scale, Apply: func(s *Source) *image.Gray {
				return Open(Binary(s.Gray(), 150), kk.k)
			}},
		)
	}
	return out
}

// WhiteVariants isolates near-white text in HSV space and by brightness.
func WhiteVariants(scale float64) []Variant {
	ranges := [][2]HSV{
		{{0, 0, 180}, {255, 30, 255}},
		{{0, 0, 200}, {255, 50, 255}},
		{{0, 0, 150}, {255, 40, 255}},
	}
	var out []Variant
	for i, r := range ranges {
		r := r
		out = append(out, Variant{
			Name:  fmt.Sprintf("white_hsv_%d", i+1),
			Scale: scale,
			Apply: func(s *Source) *image.Gray { return InRange(s.Color, r[0], r[1]) },
		})
	}
	out = append(out, Variant{
		Name:  "white_gray_180",
		Scale: scale,
		Apply: func(s *Source) *image.Gray { return Above(s.Gray(), 180) },
	})
	return out
}

// EdgeVariants runs Canny at three hysteresis pairs and thickens the result.
func EdgeVariants(scale float64) []Variant {
	var out []Variant
	for _, p := range [][2]float64{{50, 150}, {30, 100}, {100, 200}} {
		p := p
		out = append(out, Variant{
			Name:  fmt.Sprintf("canny_%g_%g", p[0], p[1]),
			Scale: scale,
			Apply: func(s *Source) *image.Gray { return Dilate(Canny(s.Gray(), p[0], p[1]), RectKernel(2, 2)) },
		})
	}
	return out
}

// QuickSkipVariants is the cheap pass: inverted then standard thresholds.
func QuickSkipVariants() []Variant {
	return append(InvertedBinaryVariants(2, 120, 150, 180), BinaryVariants(2, 120, 150, 180, 200)...)
}

// AdvancedSkipVariants is every preprocessing family in escalating cost.
func AdvancedSkipVariants() []Variant {
	var out []Variant
	out = append(out, BinaryVariants(2, 100, 120, 150, 180, 200)...)
	out = append(out, InvertedBinaryVariants(2, 100, 120, 150, 180, 200)...)
	out = append(out, AdaptiveVariants(2)...)
	out = append(out, MultiThresholdVariants(2)...)
	out = append(out, ContrastVariants(2)...)
	out = append(out, MorphVariants(2)...)
	out = append(out, WhiteVariants(2)...)
	out = append(out, EdgeVariants(2)...)
	return out
}

// TargetListVariants prepares the numbered target list for digit
// recognition.
func TargetListVariants() []Variant {
	return []Variant{
		{Name: "blur_binary_inv_150", Scale: 1, Apply: func(s *Source) *image.Gray {
			return BinaryInv(GaussianBlur(s.Gray(), 3, 0), 150)
		}},
		{Name: "adaptive_gaussian_inv", Scale: 1, Apply: func(s *Source) *image.Gray {
			return Adaptive(GaussianBlur(s.Gray(), 3, 0), AdaptiveGaussian, 11, 2, true)
		}},
		{Name: "scaled_binary_inv_150", Scale: 2, Apply: func(s *Source) *image.Gray {
			return BinaryInv(GaussianBlur(s.Gray(), 3, 0), 150)
		}},
	}
}

// TextVariants prepares a region for free-text search.
func TextVariants() []Variant {
	return []Variant{
		{Name: "binary_inv_150", Scale: 1, Apply: func(s *Source) *image.Gray { return BinaryInv(s.Gray(), 150) }},
		{Name: "adaptive_gaussian_inv", Scale: 1, Apply: func(s *Source) *image.Gray {
			return Adaptive(s.Gray(), AdaptiveGaussian, 11, 2, true)
		}},
	}
}
