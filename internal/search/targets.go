package search

import (
	"fmt"
	"regexp"
	"strconv"
)

// VisibleElement is a target id recognized on screen with its tap point.
type VisibleElement struct {
	Label      int     `yaml:"label" json:"label"`
	X          int     `yaml:"x" json:"x"`
	Y          int     `yaml:"y" json:"y"`
	Confidence float64 `yaml:"confidence" json:"confidence"`
}

func (e VisibleElement) String() string {
	return fmt.Sprintf("%d@(%d,%d)", e.Label, e.X, e.Y)
}

var (
	labelNoise    = regexp.MustCompile(`[^\p{L}\p{N}_\s#№:]`)
	labelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Море\s*[#№]\s*(\d{3})`),
		regexp.MustCompile(`[#№]\s*(\d{3})`),
		regexp.MustCompile(`\b(\d{3})\b`),
	}
)

// ParseLabels extracts three-digit target ids in [minID, maxID] from one
// recognized item, most specific pattern first, without duplicates.
func ParseLabels(text string, minID, maxID int) []int {
	clean := labelNoise.ReplaceAllString(text, " ")
	var out []int
	seen := map[int]bool{}
	for _, re := range labelPatterns {
		for _, m := range re.FindAllStringSubmatch(clean, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < minID || n > maxID || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// labelSpan returns the lowest and highest label in els.
func labelSpan(els []VisibleElement) (lo, hi int) {
	for i, e := range els {
		if i == 0 || e.Label < lo {
			lo = e.Label
		}
		if i == 0 || e.Label > hi {
			hi = e.Label
		}
	}
	return lo, hi
}

func findLabel(els []VisibleElement, id int) (VisibleElement, bool) {
	for _, e := range els {
		if e.Label == id {
			return e, true
		}
	}
	return VisibleElement{}, false
}
