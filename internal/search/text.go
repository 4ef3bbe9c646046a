package search

import (
	"image"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mj1618/onboard-cli/internal/platform"
)

var nonAlnum = regexp.MustCompile(`[^А-ЯЁA-Z0-9]`)

// Normalize trims and uppercases recognized text.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Clean keeps only uppercase Cyrillic, Latin and digits of s.
func Clean(s string) string {
	return nonAlnum.ReplaceAllString(Normalize(s), "")
}

func arrowCount(s string) int {
	return strings.Count(s, ">") + strings.Count(s, "»")
}

// Tier records which rule of the match policy accepted an item.
type Tier int

const (
	TierExact Tier = iota + 1
	TierFuzzy
	TierArrows
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierFuzzy:
		return "fuzzy"
	case TierArrows:
		return "arrows"
	}
	return "none"
}

// MatchPolicy holds the thresholds for MatchVariant.
type MatchPolicy struct {
	Variants []string
	// MinConfidence drops items before any rule runs.
	MinConfidence float64
	// FuzzyConfidence gates the substring rule.
	FuzzyConfidence float64
}

// Hit is an accepted item.
type Hit struct {
	Item platform.TextItem
	Tier Tier
}

// MatchVariant picks the item that best names one of the policy variants.
// Items below MinConfidence or shorter than two characters are ignored.
// Rules are tried in order across all items: exact uppercase match, then a
// substring match either way on cleaned text (confidence >= FuzzyConfidence
// and at least three cleaned characters; variants that clean to nothing are
// skipped), then any item with two or more arrow glyphs.
func MatchVariant(items []platform.TextItem, p MatchPolicy) (Hit, bool) {
	type candidate struct {
		item  platform.TextItem
		text  string
		clean string
	}
	var kept []candidate
	for _, it := range items {
		text := Normalize(it.Text)
		if it.Confidence < p.MinConfidence || utf8.RuneCountInString(text) < 2 {
			continue
		}
		kept = append(kept, candidate{item: it, text: text, clean: Clean(text)})
	}
	if len(kept) == 0 {
		return Hit{}, false
	}

	for _, v := range p.Variants {
		want := Normalize(v)
		for _, c := range kept {
			if c.text == want {
				return Hit{Item: c.item, Tier: TierExact}, true
			}
		}
	}

	for _, v := range p.Variants {
		want := Clean(v)
		if want == "" {
			continue
		}
		for _, c := range kept {
			if c.item.Confidence < p.FuzzyConfidence || utf8.RuneCountInString(c.clean) < 3 {
				continue
			}
			if strings.Contains(c.clean, want) || strings.Contains(want, c.clean) {
				return Hit{Item: c.item, Tier: TierFuzzy}, true
			}
		}
	}

	for _, c := range kept {
		if arrowCount(c.text) >= 2 {
			return Hit{Item: c.item, Tier: TierArrows}, true
		}
	}
	return Hit{}, false
}

// clipRegion intersects region with the frame. It returns the rectangle to
// crop and the same area as screen bounds, or false when nothing is left.
func clipRegion(region platform.Bounds, frame image.Image) (image.Rectangle, platform.Bounds, bool) {
	r := region.Rect().Intersect(frame.Bounds())
	if r.Empty() {
		return r, platform.Bounds{}, false
	}
	return r, platform.Bounds{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}, true
}

// toScreen maps the centre of a box recognized on a region image scaled by
// scale back to screen coordinates.
func toScreen(box image.Rectangle, scale float64, region platform.Bounds) platform.Point {
	if scale <= 0 {
		scale = 1
	}
	left := int(float64(box.Min.X) / scale)
	top := int(float64(box.Min.Y) / scale)
	w := int(float64(box.Dx()) / scale)
	h := int(float64(box.Dy()) / scale)
	return platform.Point{X: region.X + left + w/2, Y: region.Y + top + h/2}
}
