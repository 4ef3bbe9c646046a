package vision

import (
	"image"
	"math"
	"sort"

	"github.com/mj1618/onboard-cli/internal/platform"
)

// TemplateMatcher is a pure-Go platform.Matcher. It locates candidates with
// a sum-of-absolute-differences scan on a downsampled pyramid level and
// scores them at full resolution with zero-mean normalised
// cross-correlation, so thresholds behave like TM_CCOEFF_NORMED.
type TemplateMatcher struct {
	// Factor is the pyramid downsampling factor (default 4).
	Factor int
	// Candidates is how many coarse positions are refined (default 5).
	Candidates int
}

type candidate struct {
	x, y int
	sad  int
}

func (m TemplateMatcher) Find(frame, tmpl image.Image, threshold float64) (platform.Match, bool) {
	fg := ToGray(frame)
	tg := ToGray(tmpl)
	fw, fh := fg.Rect.Dx(), fg.Rect.Dy()
	tw, th := tg.Rect.Dx(), tg.Rect.Dy()
	if tw == 0 || th == 0 || tw > fw || th > fh {
		return platform.Match{}, false
	}

	factor := m.Factor
	if factor <= 0 {
		factor = 4
	}
	for factor > 1 && (tw/factor < 4 || th/factor < 4) {
		factor /= 2
	}
	nCand := m.Candidates
	if nCand <= 0 {
		nCand = 5
	}

	var coarse []candidate
	if factor > 1 {
		coarse = scanSAD(Shrink(fg, factor), Shrink(tg, factor), nCand)
	} else {
		coarse = scanSAD(fg, tg, nCand)
	}

	stats := newTemplateStats(tg)
	best := platform.Match{Score: -1}
	radius := factor
	for _, c := range coarse {
		cx, cy := c.x*factor, c.y*factor
		for y := max(0, cy-radius); y <= min(fh-th, cy+radius); y++ {
			for x := max(0, cx-radius); x <= min(fw-tw, cx+radius); x++ {
				s := stats.score(fg, x, y)
				if s > best.Score {
					best = platform.Match{X: x + tw/2, Y: y + th/2, Width: tw, Height: th, Score: s}
				}
			}
		}
	}
	if best.Score < threshold {
		return platform.Match{}, false
	}
	return best, true
}

// scanSAD returns the n positions with the lowest SAD, best first.
func scanSAD(f, t *image.Gray, n int) []candidate {
	fw, fh := f.Rect.Dx(), f.Rect.Dy()
	tw, th := t.Rect.Dx(), t.Rect.Dy()
	if tw > fw || th > fh {
		return nil
	}
	best := make([]candidate, 0, n+1)
	worst := math.MaxInt
	for y := 0; y <= fh-th; y++ {
		for x := 0; x <= fw-tw; x++ {
			sad := 0
		rows:
			for ty := 0; ty < th; ty++ {
				frow := f.Pix[(y+ty)*f.Stride+x:]
				trow := t.Pix[ty*t.Stride:]
				for tx := 0; tx < tw; tx++ {
					d := int(frow[tx]) - int(trow[tx])
					if d < 0 {
						d = -d
					}
					sad += d
				}
				if len(best) == n && sad >= worst {
					break rows
				}
			}
			if len(best) < n || sad < worst {
				best = append(best, candidate{x: x, y: y, sad: sad})
				sort.Slice(best, func(i, j int) bool { return best[i].sad < best[j].sad })
				if len(best) > n {
					best = best[:n]
				}
				if len(best) == n {
					worst = best[n-1].sad
				}
			}
		}
	}
	return best
}

type templateStats struct {
	t     *image.Gray
	mean  float64
	norm  float64 // sqrt(sum((t-mean)^2))
	count float64
}

func newTemplateStats(t *image.Gray) templateStats {
	tw, th := t.Rect.Dx(), t.Rect.Dy()
	n := float64(tw * th)
	var sum float64
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			sum += float64(t.Pix[y*t.Stride+x])
		}
	}
	mean := sum / n
	var ss float64
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			d := float64(t.Pix[y*t.Stride+x]) - mean
			ss += d * d
		}
	}
	return templateStats{t: t, mean: mean, norm: math.Sqrt(ss), count: n}
}

// score is the zero-mean normalised correlation of the template with the
// frame window at (x,y). A flat template falls back to
// 1 - mean absolute difference / 255; a flat window scores 0.
func (s templateStats) score(f *image.Gray, x, y int) float64 {
	tw, th := s.t.Rect.Dx(), s.t.Rect.Dy()
	var fsum float64
	for ty := 0; ty < th; ty++ {
		row := f.Pix[(y+ty)*f.Stride+x:]
		for tx := 0; tx < tw; tx++ {
			fsum += float64(row[tx])
		}
	}
	fmean := fsum / s.count

	var cross, fss, sad float64
	for ty := 0; ty < th; ty++ {
		row := f.Pix[(y+ty)*f.Stride+x:]
		trow := s.t.Pix[ty*s.t.Stride:]
		for tx := 0; tx < tw; tx++ {
			fd := float64(row[tx]) - fmean
			td := float64(trow[tx]) - s.mean
			cross += fd * td
			fss += fd * fd
			sad += math.Abs(float64(row[tx]) - float64(trow[tx]))
		}
	}
	if s.norm < 1e-6 {
		return 1 - sad/(255*s.count)
	}
	den := s.norm * math.Sqrt(fss)
	if den < 1e-6 {
		return 0
	}
	return cross / den
}

var _ platform.Matcher = TemplateMatcher{}
