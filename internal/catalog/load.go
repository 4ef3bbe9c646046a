package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed steps.yaml
var defaultSteps []byte

// Default returns the built-in onboarding flow.
func Default() (*Catalog, error) {
	c, err := Parse(defaultSteps)
	if err != nil {
		return nil, fmt.Errorf("built-in steps: %w", err)
	}
	return c, nil
}

// LoadFile parses a step file from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read steps: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

type entry struct {
	Number      int        `yaml:"number"`
	Description string     `yaml:"description"`
	Action      string     `yaml:"action"`
	Params      yaml.Node  `yaml:"params"`
	When        *Condition `yaml:"when"`
}

// Parse decodes a YAML step list. Unknown action kinds and unknown
// parameters are errors; omitted parameters take the kind's defaults.
func Parse(data []byte) (*Catalog, error) {
	var entries []entry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	steps := make([]Step, 0, len(entries))
	for _, e := range entries {
		a, err := decodeAction(e.Action, &e.Params)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", e.Number, err)
		}
		if e.When != nil {
			if (e.When.ImageVisible == "") == (e.When.ImageAbsent == "") {
				return nil, fmt.Errorf("step %d: when needs exactly one of image_visible or image_absent", e.Number)
			}
		}
		steps = append(steps, Step{Number: e.Number, Description: e.Description, Action: a, When: e.When})
	}
	return New(steps)
}

// defaults returns a kind's action pre-filled with its default parameters.
func defaults(kind string) (Action, bool) {
	switch kind {
	case KindTap:
		return &Tap{}, true
	case KindTapDelay:
		return &TapDelay{}, true
	case KindTapDelaySettle:
		return &TapDelaySettle{}, true
	case KindSelectTarget:
		return &SelectTarget{}, true
	case KindDismiss:
		return &Dismiss{}, true
	case KindTapAfterCheck:
		return &TapAfterCheck{Timeout: 15 * time.Second}, true
	case KindTapAfterCheckSettle:
		return &TapAfterCheckSettle{Timeout: 15 * time.Second}, true
	case KindWaitThenDismiss:
		return &WaitThenDismiss{Timeout: 15 * time.Second}, true
	case KindWaitTapSettle:
		return &WaitTapSettle{Timeout: 15 * time.Second}, true
	case KindCombatReady:
		return &CombatReady{MaxAttempts: 20}, true
	case KindAwaitVessel:
		return &AwaitVessel{MaxAttempts: 20, X: 93, Y: 285}, true
	case KindFindText:
		return &FindText{Timeout: 5 * time.Second}, true
	case KindTapImageOrCoord:
		return &TapImageOrCoord{Timeout: 25 * time.Second}, true
	case KindFinalActivation:
		return &FinalActivation{PreWait: 6 * time.Second, SkipTimeout: 5 * time.Second, PostSkipWait: 4 * time.Second}, true
	}
	return nil, false
}

func decodeAction(kind string, params *yaml.Node) (Action, error) {
	ptr, ok := defaults(kind)
	if !ok {
		return nil, fmt.Errorf("unknown action %q", kind)
	}
	if params.Kind != 0 {
		raw, err := yaml.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("%s params: %w", kind, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(ptr); err != nil {
			return nil, fmt.Errorf("%s params: %w", kind, err)
		}
	}
	a := deref(ptr)
	if err := check(a); err != nil {
		return nil, fmt.Errorf("%s params: %w", kind, err)
	}
	return a, nil
}

func deref(a Action) Action {
	switch a := a.(type) {
	case *Tap:
		return *a
	case *TapDelay:
		return *a
	case *TapDelaySettle:
		return *a
	case *SelectTarget:
		return *a
	case *Dismiss:
		return *a
	case *TapAfterCheck:
		return *a
	case *TapAfterCheckSettle:
		return *a
	case *WaitThenDismiss:
		return *a
	case *WaitTapSettle:
		return *a
	case *CombatReady:
		return *a
	case *AwaitVessel:
		return *a
	case *FindText:
		return *a
	case *TapImageOrCoord:
		return *a
	case *FinalActivation:
		return *a
	}
	return a
}

var errMissingImage = errors.New("image is required")

func check(a Action) error {
	var pts [][2]int
	switch a := a.(type) {
	case Tap:
		pts = append(pts, [2]int{a.X, a.Y})
	case TapDelay:
		pts = append(pts, [2]int{a.X, a.Y})
	case TapDelaySettle:
		pts = append(pts, [2]int{a.X, a.Y})
	case TapAfterCheck:
		pts = append(pts, [2]int{a.X, a.Y})
	case TapAfterCheckSettle:
		pts = append(pts, [2]int{a.X, a.Y})
	case WaitTapSettle:
		pts = append(pts, [2]int{a.X, a.Y})
	case CombatReady:
		if a.MaxAttempts < 1 {
			return errors.New("max_attempts must be at least 1")
		}
	case AwaitVessel:
		if a.MaxAttempts < 1 {
			return errors.New("max_attempts must be at least 1")
		}
		pts = append(pts, [2]int{a.X, a.Y})
	case FindText:
		if a.Text == "" {
			return errors.New("text is required")
		}
		if a.Region.Width <= 0 || a.Region.Height <= 0 {
			return errors.New("region must have a positive size")
		}
	case TapImageOrCoord:
		pts = append(pts, [2]int{a.X, a.Y})
	case FinalActivation:
		pts = append(pts, [2]int{a.X, a.Y})
	}
	for _, k := range Images(a) {
		if k == "" {
			return errMissingImage
		}
	}
	for _, p := range pts {
		if p[0] < 0 || p[1] < 0 {
			return fmt.Errorf("negative coordinate (%d,%d)", p[0], p[1])
		}
	}
	return nil
}
