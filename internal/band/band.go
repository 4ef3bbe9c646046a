// Package band partitions the target id space into the bands ("seasons") of
// the target picker. Each band owns a descending id range and a tap point
// on the band list.
package band

import (
	"errors"
	"fmt"

	"github.com/mj1618/onboard-cli/internal/platform"
)

// MaxTarget is the highest target id the picker offers.
const MaxTarget = 619

// ErrNoBand is returned when no band covers a target.
var ErrNoBand = errors.New("no band covers target")

// Band is one entry of the band list. Low is the highest id in the band and
// High the lowest, matching the order the picker displays them.
type Band struct {
	ID          string         `yaml:"id" json:"id"`
	Low         int            `yaml:"low" json:"low"`
	High        int            `yaml:"high" json:"high"`
	Tap         platform.Point `yaml:"tap" json:"tap"`
	ScrollFirst bool           `yaml:"scroll_first,omitempty" json:"scroll_first,omitempty"`
}

// Contains reports whether t lies in [High, Low].
func (b Band) Contains(t int) bool {
	return t <= b.Low && t >= b.High
}

func (b Band) String() string {
	return fmt.Sprintf("%s(%d-%d)", b.ID, b.Low, b.High)
}

// Table is an ordered band list. Lookups use the first band that matches.
type Table []Band

// Default returns the band list of the current game build. S3 and S4
// overlap on 541..564 and ids 361..362 and 94..96 belong to no band; both
// are reported by Overlaps and Gaps rather than corrected.
func Default() Table {
	return Table{
		{ID: "S1", Low: 619, High: 598, Tap: platform.Point{X: 250, Y: 180}},
		{ID: "S2", Low: 597, High: 571, Tap: platform.Point{X: 250, Y: 230}},
		{ID: "S3", Low: 564, High: 541, Tap: platform.Point{X: 250, Y: 280}},
		{ID: "S4", Low: 570, High: 505, Tap: platform.Point{X: 250, Y: 380}},
		{ID: "S5", Low: 504, High: 457, Tap: platform.Point{X: 250, Y: 470}},
		{ID: "X1", Low: 456, High: 433, Tap: platform.Point{X: 250, Y: 520}},
		{ID: "X2", Low: 432, High: 363, Tap: platform.Point{X: 250, Y: 230}, ScrollFirst: true},
		{ID: "X3", Low: 360, High: 97, Tap: platform.Point{X: 250, Y: 280}, ScrollFirst: true},
		{ID: "X4", Low: 93, High: 1, Tap: platform.Point{X: 250, Y: 330}, ScrollFirst: true},
	}
}

// Resolve returns the first band containing t.
func (t Table) Resolve(target int) (Band, error) {
	for _, b := range t {
		if b.Contains(target) {
			return b, nil
		}
	}
	return Band{}, fmt.Errorf("%w: %d", ErrNoBand, target)
}

// Get returns the band with the given id.
func (t Table) Get(id string) (Band, bool) {
	for _, b := range t {
		if b.ID == id {
			return b, true
		}
	}
	return Band{}, false
}

// Validate checks that every band is well formed and ids are unique.
func (t Table) Validate() error {
	if len(t) == 0 {
		return errors.New("band table is empty")
	}
	seen := make(map[string]bool, len(t))
	for i, b := range t {
		if b.ID == "" {
			return fmt.Errorf("band %d: missing id", i)
		}
		if seen[b.ID] {
			return fmt.Errorf("band %s: duplicate id", b.ID)
		}
		seen[b.ID] = true
		if b.Low < b.High {
			return fmt.Errorf("band %s: low %d is below high %d", b.ID, b.Low, b.High)
		}
		if b.High < 1 || b.Low > MaxTarget {
			return fmt.Errorf("band %s: range %d-%d outside 1-%d", b.ID, b.Low, b.High, MaxTarget)
		}
	}
	return nil
}

// Overlap names two bands that share ids.
type Overlap struct {
	First  string `yaml:"first" json:"first"`
	Second string `yaml:"second" json:"second"`
	Low    int    `yaml:"low" json:"low"`
	High   int    `yaml:"high" json:"high"`
}

// Overlaps lists every pair of bands with a shared id range. The first of
// each pair wins lookups.
func (t Table) Overlaps() []Overlap {
	var out []Overlap
	for i := 0; i < len(t); i++ {
		for j := i + 1; j < len(t); j++ {
			lo := min(t[i].Low, t[j].Low)
			hi := max(t[i].High, t[j].High)
			if lo >= hi {
				out = append(out, Overlap{First: t[i].ID, Second: t[j].ID, Low: lo, High: hi})
			}
		}
	}
	return out
}

// Span is an inclusive descending id range.
type Span struct {
	Low  int `yaml:"low" json:"low"`
	High int `yaml:"high" json:"high"`
}

// Gaps lists the ids in 1..MaxTarget no band covers, highest first.
func (t Table) Gaps() []Span {
	var out []Span
	open := false
	for id := MaxTarget; id >= 1; id-- {
		_, err := t.Resolve(id)
		switch {
		case err != nil && !open:
			out = append(out, Span{Low: id, High: id})
			open = true
		case err != nil:
			out[len(out)-1].High = id
		default:
			open = false
		}
	}
	return out
}
