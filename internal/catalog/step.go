package catalog

import (
	"fmt"
	"time"

	"github.com/mj1618/onboard-cli/internal/platform"
)

// Step is one entry of the onboarding flow.
type Step struct {
	Number      int        `yaml:"number" json:"number"`
	Description string     `yaml:"description" json:"description"`
	Action      Action     `yaml:"-" json:"-"`
	When        *Condition `yaml:"when,omitempty" json:"when,omitempty"`
}

func (s Step) String() string {
	return fmt.Sprintf("%d %s (%s)", s.Number, s.Description, s.Action.Kind())
}

// Condition gates a step on a template being visible or absent. Exactly one
// field is set.
type Condition struct {
	ImageVisible string `yaml:"image_visible,omitempty" json:"image_visible,omitempty"`
	ImageAbsent  string `yaml:"image_absent,omitempty" json:"image_absent,omitempty"`
}

// Image returns the template key the condition checks.
func (c Condition) Image() string {
	if c.ImageVisible != "" {
		return c.ImageVisible
	}
	return c.ImageAbsent
}

func (c Condition) String() string {
	if c.ImageVisible != "" {
		return "image_visible:" + c.ImageVisible
	}
	return "image_absent:" + c.ImageAbsent
}

// Action is the closed set of step behaviours. Each implementation carries
// its own parameters.
type Action interface {
	Kind() string
	action()
}

// Action kinds as they appear in the step asset.
const (
	KindTap                 = "tap"
	KindTapDelay            = "tap_delay"
	KindTapDelaySettle      = "tap_delay_settle"
	KindSelectTarget        = "select_target"
	KindDismiss             = "dismiss"
	KindTapAfterCheck       = "tap_after_check"
	KindTapAfterCheckSettle = "tap_after_check_settle"
	KindWaitThenDismiss     = "wait_then_dismiss"
	KindWaitTapSettle       = "wait_tap_settle"
	KindCombatReady         = "combat_ready"
	KindAwaitVessel         = "await_vessel"
	KindFindText            = "find_text"
	KindTapImageOrCoord     = "tap_image_or_coord"
	KindFinalActivation     = "final_activation"
)

// Tap taps a fixed point.
type Tap struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// TapDelay waits Delay, then taps.
type TapDelay struct {
	X     int           `yaml:"x" json:"x"`
	Y     int           `yaml:"y" json:"y"`
	Delay time.Duration `yaml:"delay" json:"delay"`
}

// TapDelaySettle waits Delay, taps, then waits Settle.
type TapDelaySettle struct {
	X      int           `yaml:"x" json:"x"`
	Y      int           `yaml:"y" json:"y"`
	Delay  time.Duration `yaml:"delay" json:"delay"`
	Settle time.Duration `yaml:"settle" json:"settle"`
}

// SelectTarget picks the run's target in the target picker.
type SelectTarget struct{}

// Dismiss searches for the skip control until it is found and tapped.
type Dismiss struct {
	Settle time.Duration `yaml:"settle" json:"settle"`
}

// TapAfterCheck waits for a template, then taps the point either way.
type TapAfterCheck struct {
	Image      string        `yaml:"image" json:"image"`
	X          int           `yaml:"x" json:"x"`
	Y          int           `yaml:"y" json:"y"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	ClickDelay time.Duration `yaml:"click_delay" json:"click_delay"`
}

// TapAfterCheckSettle is TapAfterCheck followed by a settle pause.
type TapAfterCheckSettle struct {
	Image   string        `yaml:"image" json:"image"`
	X       int           `yaml:"x" json:"x"`
	Y       int           `yaml:"y" json:"y"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	Settle  time.Duration `yaml:"settle" json:"settle"`
}

// WaitThenDismiss waits for a template, then dismisses regardless.
type WaitThenDismiss struct {
	Image   string        `yaml:"image" json:"image"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// WaitTapSettle pauses, waits for a template, taps the point and settles.
type WaitTapSettle struct {
	Image   string        `yaml:"image" json:"image"`
	X       int           `yaml:"x" json:"x"`
	Y       int           `yaml:"y" json:"y"`
	PreWait time.Duration `yaml:"pre_wait" json:"pre_wait"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	Settle  time.Duration `yaml:"settle" json:"settle"`
}

// CombatReady taps a template when it shows up, nudging the screen centre
// between attempts.
type CombatReady struct {
	Image       string `yaml:"image" json:"image"`
	MaxAttempts int    `yaml:"max_attempts" json:"max_attempts"`
}

// AwaitVessel waits for a template, nudging the screen centre between
// attempts, then taps the point.
type AwaitVessel struct {
	Image       string `yaml:"image" json:"image"`
	MaxAttempts int    `yaml:"max_attempts" json:"max_attempts"`
	X           int    `yaml:"x" json:"x"`
	Y           int    `yaml:"y" json:"y"`
}

// FindText recognizes text in a region and taps it. A zero fallback means
// the step fails on a miss.
type FindText struct {
	Text      string          `yaml:"text" json:"text"`
	Region    platform.Bounds `yaml:"region" json:"region"`
	Timeout   time.Duration   `yaml:"timeout" json:"timeout"`
	FallbackX int             `yaml:"fallback_x" json:"fallback_x"`
	FallbackY int             `yaml:"fallback_y" json:"fallback_y"`
}

// HasFallback reports whether a fallback point is configured.
func (a FindText) HasFallback() bool {
	return a.FallbackX != 0 && a.FallbackY != 0
}

// TapImageOrCoord taps a template where it appears, else the point.
type TapImageOrCoord struct {
	Image   string        `yaml:"image" json:"image"`
	X       int           `yaml:"x" json:"x"`
	Y       int           `yaml:"y" json:"y"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// FinalActivation clears a pending skip control, if any, before tapping.
type FinalActivation struct {
	X            int           `yaml:"x" json:"x"`
	Y            int           `yaml:"y" json:"y"`
	PreWait      time.Duration `yaml:"pre_wait" json:"pre_wait"`
	SkipTimeout  time.Duration `yaml:"skip_timeout" json:"skip_timeout"`
	PostSkipWait time.Duration `yaml:"post_skip_wait" json:"post_skip_wait"`
}

func (Tap) Kind() string                 { return KindTap }
func (TapDelay) Kind() string            { return KindTapDelay }
func (TapDelaySettle) Kind() string      { return KindTapDelaySettle }
func (SelectTarget) Kind() string        { return KindSelectTarget }
func (Dismiss) Kind() string             { return KindDismiss }
func (TapAfterCheck) Kind() string       { return KindTapAfterCheck }
func (TapAfterCheckSettle) Kind() string { return KindTapAfterCheckSettle }
func (WaitThenDismiss) Kind() string     { return KindWaitThenDismiss }
func (WaitTapSettle) Kind() string       { return KindWaitTapSettle }
func (CombatReady) Kind() string         { return KindCombatReady }
func (AwaitVessel) Kind() string         { return KindAwaitVessel }
func (FindText) Kind() string            { return KindFindText }
func (TapImageOrCoord) Kind() string     { return KindTapImageOrCoord }
func (FinalActivation) Kind() string     { return KindFinalActivation }

func (Tap) action()                 {}
func (TapDelay) action()            {}
func (TapDelaySettle) action()      {}
func (SelectTarget) action()        {}
func (Dismiss) action()             {}
func (TapAfterCheck) action()       {}
func (TapAfterCheckSettle) action() {}
func (WaitThenDismiss) action()     {}
func (WaitTapSettle) action()       {}
func (CombatReady) action()         {}
func (AwaitVessel) action()         {}
func (FindText) action()            {}
func (TapImageOrCoord) action()     {}
func (FinalActivation) action()     {}

// Images returns the template keys an action depends on.
func Images(a Action) []string {
	switch a := a.(type) {
	case TapAfterCheck:
		return []string{a.Image}
	case TapAfterCheckSettle:
		return []string{a.Image}
	case WaitThenDismiss:
		return []string{a.Image}
	case WaitTapSettle:
		return []string{a.Image}
	case CombatReady:
		return []string{a.Image}
	case AwaitVessel:
		return []string{a.Image}
	case TapImageOrCoord:
		return []string{a.Image}
	}
	return nil
}
