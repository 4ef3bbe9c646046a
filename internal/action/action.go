// Package action turns catalog steps into device gestures, consulting the
// visual search strategies where a step depends on what is on screen.
package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/catalog"
	"github.com/mj1618/onboard-cli/internal/config"
	"github.com/mj1618/onboard-cli/internal/platform"
)

var (
	// ErrNoTarget is returned by select_target when the run has no target.
	ErrNoTarget = errors.New("no target in run context")
	// ErrTextNotFound is returned by find_text on a miss without fallback.
	ErrTextNotFound = errors.New("text not found")
)

// Images waits for reference templates.
type Images interface {
	Wait(ctx context.Context, key string, timeout time.Duration) (platform.Match, bool)
	TapImage(ctx context.Context, key string, timeout time.Duration) bool
	Visible(ctx context.Context, key string) bool
}

// Skipper finds and taps the skip control.
type Skipper interface {
	Dismiss(ctx context.Context, timeout time.Duration) (bool, error)
	DismissUnbounded(ctx context.Context) error
}

// Texts finds a caption in a region.
type Texts interface {
	Find(ctx context.Context, text string, region platform.Bounds, timeout time.Duration) (platform.Point, bool)
}

// Targets selects a target in the target picker.
type Targets interface {
	Select(ctx context.Context, id int) (matched, nearest bool, err error)
}

// RunContext carries per-run values into a step.
type RunContext struct {
	Target int
}

// Outcome reports how a step went. Matched means the step's perception
// check succeeded; UsedFallback means a coordinate or degraded path was
// taken instead.
type Outcome struct {
	Matched      bool `yaml:"matched" json:"matched"`
	UsedFallback bool `yaml:"used_fallback" json:"used_fallback"`
}

// Deps are the collaborators a Dispatcher drives.
type Deps struct {
	Device  platform.Device
	Clock   platform.Clock
	Images  Images
	Skip    Skipper
	Text    Texts
	Targets Targets
}

// Dispatcher executes steps.
type Dispatcher struct {
	deps   Deps
	pauses config.Pauses
	logger *zap.Logger
}

// New creates a dispatcher. pauses supplies the nudge point and interval
// used by the retrying actions.
func New(deps Deps, pauses config.Pauses, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{deps: deps, pauses: pauses, logger: logger.Named("action")}
}

// Check evaluates a step precondition. A nil condition holds.
func (d *Dispatcher) Check(ctx context.Context, cond *catalog.Condition) bool {
	if cond == nil {
		return true
	}
	visible := d.deps.Images.Visible(ctx, cond.Image())
	if cond.ImageVisible != "" {
		return visible
	}
	return !visible
}

// Execute runs step's action.
func (d *Dispatcher) Execute(ctx context.Context, step catalog.Step, rc RunContext) (Outcome, error) {
	log := d.logger.With(zap.Int("step", step.Number), zap.String("action", step.Action.Kind()))
	log.Info("step started", zap.String("description", step.Description))

	out, err := d.execute(ctx, step.Action, rc)
	switch {
	case err != nil:
		log.Error("step failed", zap.Error(err))
	case out.UsedFallback:
		log.Warn("step completed with fallback", zap.Bool("matched", out.Matched))
	default:
		log.Info("step completed", zap.Bool("matched", out.Matched))
	}
	return out, err
}

func (d *Dispatcher) execute(ctx context.Context, a catalog.Action, rc RunContext) (Outcome, error) {
	switch a := a.(type) {
	case catalog.Tap:
		return matched(d.tap(ctx, a.X, a.Y))

	case catalog.TapDelay:
		if err := d.sleep(ctx, a.Delay); err != nil {
			return Outcome{}, err
		}
		return matched(d.tap(ctx, a.X, a.Y))

	case catalog.TapDelaySettle:
		if err := d.sleep(ctx, a.Delay); err != nil {
			return Outcome{}, err
		}
		if err := d.tap(ctx, a.X, a.Y); err != nil {
			return Outcome{}, err
		}
		return matched(d.sleep(ctx, a.Settle))

	case catalog.SelectTarget:
		return d.selectTarget(ctx, rc)

	case catalog.Dismiss:
		if err := d.deps.Skip.DismissUnbounded(ctx); err != nil {
			return Outcome{}, fmt.Errorf("dismiss: %w", err)
		}
		return matched(d.sleep(ctx, a.Settle))

	case catalog.TapAfterCheck:
		_, found := d.deps.Images.Wait(ctx, a.Image, a.Timeout)
		if err := d.sleep(ctx, a.ClickDelay); err != nil {
			return Outcome{}, err
		}
		return checked(found, d.tap(ctx, a.X, a.Y))

	case catalog.TapAfterCheckSettle:
		_, found := d.deps.Images.Wait(ctx, a.Image, a.Timeout)
		if err := d.tap(ctx, a.X, a.Y); err != nil {
			return Outcome{}, err
		}
		return checked(found, d.sleep(ctx, a.Settle))

	case catalog.WaitThenDismiss:
		_, found := d.deps.Images.Wait(ctx, a.Image, a.Timeout)
		if err := d.deps.Skip.DismissUnbounded(ctx); err != nil {
			return Outcome{}, fmt.Errorf("dismiss: %w", err)
		}
		return checked(found, nil)

	case catalog.WaitTapSettle:
		if err := d.sleep(ctx, a.PreWait); err != nil {
			return Outcome{}, err
		}
		_, found := d.deps.Images.Wait(ctx, a.Image, a.Timeout)
		if err := d.tap(ctx, a.X, a.Y); err != nil {
			return Outcome{}, err
		}
		return checked(found, d.sleep(ctx, a.Settle))

	case catalog.CombatReady:
		return d.combatReady(ctx, a)

	case catalog.AwaitVessel:
		return d.awaitVessel(ctx, a)

	case catalog.FindText:
		return d.findText(ctx, a)

	case catalog.TapImageOrCoord:
		if d.deps.Images.TapImage(ctx, a.Image, a.Timeout) {
			return Outcome{Matched: true}, nil
		}
		return checked(false, d.tap(ctx, a.X, a.Y))

	case catalog.FinalActivation:
		return d.finalActivation(ctx, a)

	default:
		return Outcome{}, fmt.Errorf("unsupported action %q", a.Kind())
	}
}

func (d *Dispatcher) selectTarget(ctx context.Context, rc RunContext) (Outcome, error) {
	if rc.Target <= 0 {
		return Outcome{}, ErrNoTarget
	}
	if d.deps.Targets == nil {
		return Outcome{}, fmt.Errorf("select target %d: %w", rc.Target, platform.ErrNoRecognizer)
	}
	ok, nearest, err := d.deps.Targets.Select(ctx, rc.Target)
	if err != nil {
		return Outcome{}, fmt.Errorf("select target %d: %w", rc.Target, err)
	}
	return Outcome{Matched: ok, UsedFallback: nearest}, nil
}

// combatReady taps the template as soon as it shows, nudging the screen
// between attempts. Exhausting the attempts is not a failure.
func (d *Dispatcher) combatReady(ctx context.Context, a catalog.CombatReady) (Outcome, error) {
	for attempt := 1; attempt <= a.MaxAttempts; attempt++ {
		if d.deps.Images.TapImage(ctx, a.Image, time.Second) {
			d.logger.Debug("template tapped", zap.String("image", a.Image), zap.Int("attempt", attempt))
			return Outcome{Matched: true}, nil
		}
		if err := d.nudge(ctx); err != nil {
			return Outcome{}, err
		}
	}
	d.logger.Warn("template never appeared, continuing", zap.String("image", a.Image), zap.Int("attempts", a.MaxAttempts))
	return Outcome{UsedFallback: true}, nil
}

func (d *Dispatcher) awaitVessel(ctx context.Context, a catalog.AwaitVessel) (Outcome, error) {
	found := false
	for attempt := 1; attempt <= a.MaxAttempts; attempt++ {
		if _, found = d.deps.Images.Wait(ctx, a.Image, time.Second); found {
			break
		}
		if err := d.nudge(ctx); err != nil {
			return Outcome{}, err
		}
	}
	if !found {
		d.logger.Warn("template never appeared, tapping anyway", zap.String("image", a.Image), zap.Int("attempts", a.MaxAttempts))
	}
	return checked(found, d.tap(ctx, a.X, a.Y))
}

func (d *Dispatcher) findText(ctx context.Context, a catalog.FindText) (Outcome, error) {
	var (
		p     platform.Point
		found bool
	)
	if d.deps.Text != nil {
		p, found = d.deps.Text.Find(ctx, a.Text, a.Region, a.Timeout)
	} else {
		d.logger.Warn("text search unavailable", zap.String("text", a.Text), zap.Error(platform.ErrNoRecognizer))
	}
	if found {
		return matched(d.tap(ctx, p.X, p.Y))
	}
	if !a.HasFallback() {
		return Outcome{}, fmt.Errorf("%w: %q in %s", ErrTextNotFound, a.Text, a.Region)
	}
	return checked(false, d.tap(ctx, a.FallbackX, a.FallbackY))
}

func (d *Dispatcher) finalActivation(ctx context.Context, a catalog.FinalActivation) (Outcome, error) {
	if err := d.sleep(ctx, a.PreWait); err != nil {
		return Outcome{}, err
	}
	dismissed, err := d.deps.Skip.Dismiss(ctx, a.SkipTimeout)
	if err != nil && !errors.Is(err, platform.ErrNoRecognizer) {
		return Outcome{}, fmt.Errorf("dismiss: %w", err)
	}
	if dismissed {
		if err := d.sleep(ctx, a.PostSkipWait); err != nil {
			return Outcome{}, err
		}
	}
	return checked(dismissed, d.tap(ctx, a.X, a.Y))
}

// nudge taps the neutral screen point and pauses.
func (d *Dispatcher) nudge(ctx context.Context) error {
	p := d.pauses.NudgePoint
	if err := d.tap(ctx, p.X, p.Y); err != nil {
		return err
	}
	return d.sleep(ctx, d.pauses.Nudge)
}

func (d *Dispatcher) tap(ctx context.Context, x, y int) error {
	if err := d.deps.Device.Tap(ctx, x, y); err != nil {
		return fmt.Errorf("tap (%d,%d): %w", x, y, err)
	}
	return nil
}

func (d *Dispatcher) sleep(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return ctx.Err()
	}
	return d.deps.Clock.Sleep(ctx, dur)
}

func matched(err error) (Outcome, error) {
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Matched: true}, nil
}

// checked reports a coordinate action whose perception check may have
// missed.
func checked(found bool, err error) (Outcome, error) {
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Matched: found, UsedFallback: !found}, nil
}
