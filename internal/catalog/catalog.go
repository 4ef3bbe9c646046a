// Package catalog holds the ordered onboarding steps and the action types
// they carry.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// ErrDuplicateStep is returned when two steps share a number.
var ErrDuplicateStep = errors.New("duplicate step number")

// Catalog is an immutable, number-ordered step list.
type Catalog struct {
	steps []Step
	index map[int]int
}

// New builds a catalog. Steps may arrive in any order; gaps are allowed.
func New(steps []Step) (*Catalog, error) {
	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	index := make(map[int]int, len(sorted))
	for i, s := range sorted {
		if s.Number < 1 {
			return nil, fmt.Errorf("step %d: numbers start at 1", s.Number)
		}
		if s.Action == nil {
			return nil, fmt.Errorf("step %d: no action", s.Number)
		}
		if _, dup := index[s.Number]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateStep, s.Number)
		}
		index[s.Number] = i
	}
	return &Catalog{steps: sorted, index: index}, nil
}

// Get returns step n.
func (c *Catalog) Get(n int) (Step, bool) {
	i, ok := c.index[n]
	if !ok {
		return Step{}, false
	}
	return c.steps[i], true
}

// Range returns the steps numbered start..end inclusive, ascending.
func (c *Catalog) Range(start, end int) []Step {
	lo := sort.Search(len(c.steps), func(i int) bool { return c.steps[i].Number >= start })
	var out []Step
	for _, s := range c.steps[lo:] {
		if s.Number > end {
			break
		}
		out = append(out, s)
	}
	return out
}

// Steps returns every step in order.
func (c *Catalog) Steps() []Step {
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// Max returns the highest step number, or 0 for an empty catalog.
func (c *Catalog) Max() int {
	if len(c.steps) == 0 {
		return 0
	}
	return c.steps[len(c.steps)-1].Number
}

// Numbers returns the step numbers in order.
func (c *Catalog) Numbers() []int {
	out := make([]int, len(c.steps))
	for i, s := range c.steps {
		out[i] = s.Number
	}
	return out
}

// Len returns the number of steps.
func (c *Catalog) Len() int { return len(c.steps) }

// Gaps returns the numbers in 1..Max with no step.
func (c *Catalog) Gaps() []int {
	var out []int
	for n := 1; n <= c.Max(); n++ {
		if _, ok := c.index[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// Validate re-checks uniqueness and warns about gaps.
func (c *Catalog) Validate(logger *zap.Logger) error {
	seen := make(map[int]bool, len(c.steps))
	for _, s := range c.steps {
		if seen[s.Number] {
			return fmt.Errorf("%w: %d", ErrDuplicateStep, s.Number)
		}
		seen[s.Number] = true
	}
	if gaps := c.Gaps(); len(gaps) > 0 {
		logger.Warn("step numbering has gaps", zap.Ints("missing", gaps))
	}
	return nil
}

// Images returns every template key the catalog references, sorted.
func (c *Catalog) Images() []string {
	set := map[string]bool{}
	for _, s := range c.steps {
		for _, k := range Images(s.Action) {
			set[k] = true
		}
		if s.When != nil {
			set[s.When.Image()] = true
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
