package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mj1618/onboard-cli/internal/catalog"
	"github.com/mj1618/onboard-cli/internal/config"
	"github.com/mj1618/onboard-cli/internal/platform"
	"github.com/mj1618/onboard-cli/internal/platform/platformtest"
)

// fakeImages reports templates in visible as present. appearAfter delays a
// template until it has been waited for that many times.
type fakeImages struct {
	visible     map[string]platform.Point
	appearAfter map[string]int
	waits       map[string]int
	dev         *platformtest.Device
}

func (f *fakeImages) Wait(_ context.Context, key string, _ time.Duration) (platform.Match, bool) {
	if f.waits == nil {
		f.waits = map[string]int{}
	}
	f.waits[key]++
	p, ok := f.visible[key]
	if !ok || f.waits[key] <= f.appearAfter[key] {
		return platform.Match{}, false
	}
	return platform.Match{X: p.X, Y: p.Y, Score: 1}, true
}

func (f *fakeImages) TapImage(ctx context.Context, key string, timeout time.Duration) bool {
	m, ok := f.Wait(ctx, key, timeout)
	if ok {
		_ = f.dev.Tap(ctx, m.X, m.Y)
	}
	return ok
}

func (f *fakeImages) Visible(ctx context.Context, key string) bool {
	_, ok := f.visible[key]
	return ok
}

type fakeSkip struct {
	at        platform.Point
	found     bool
	err       error
	dev       *platformtest.Device
	unbounded int
}

func (f *fakeSkip) Dismiss(ctx context.Context, _ time.Duration) (bool, error) {
	if f.err != nil || !f.found {
		return false, f.err
	}
	return true, f.dev.Tap(ctx, f.at.X, f.at.Y)
}

func (f *fakeSkip) DismissUnbounded(ctx context.Context) error {
	f.unbounded++
	if f.err != nil {
		return f.err
	}
	return f.dev.Tap(ctx, f.at.X, f.at.Y)
}

type fakeText struct {
	at    platform.Point
	found bool
}

func (f fakeText) Find(context.Context, string, platform.Bounds, time.Duration) (platform.Point, bool) {
	return f.at, f.found
}

type fakeTargets struct {
	matched, nearest bool
	err              error
	selected         []int
}

func (f *fakeTargets) Select(_ context.Context, id int) (bool, bool, error) {
	f.selected = append(f.selected, id)
	return f.matched, f.nearest, f.err
}

type fixture struct {
	dev     *platformtest.Device
	clock   *platformtest.Clock
	images  *fakeImages
	skip    *fakeSkip
	targets *fakeTargets
	d       *Dispatcher
}

func newFixture(text Texts) *fixture {
	dev := platformtest.NewDevice()
	f := &fixture{
		dev:     dev,
		clock:   platformtest.NewClock(),
		images:  &fakeImages{visible: map[string]platform.Point{}, appearAfter: map[string]int{}, dev: dev},
		skip:    &fakeSkip{at: platform.Point{X: 1180, Y: 50}, found: true, dev: dev},
		targets: &fakeTargets{matched: true},
	}
	f.d = New(Deps{
		Device:  dev,
		Clock:   f.clock,
		Images:  f.images,
		Skip:    f.skip,
		Text:    text,
		Targets: f.targets,
	}, config.Default().Pauses, zap.NewNop())
	return f
}

func step(n int, a catalog.Action) catalog.Step {
	return catalog.Step{Number: n, Description: "test", Action: a}
}

var nudge = platform.Point{X: 642, Y: 334}

func TestExecute_Taps(t *testing.T) {
	tests := []struct {
		name   string
		action catalog.Action
		taps   []platform.Point
		sleeps []time.Duration
	}{
		{"tap", catalog.Tap{X: 10, Y: 20}, []platform.Point{{X: 10, Y: 20}}, nil},
		{"tap_delay", catalog.TapDelay{X: 1, Y: 2, Delay: 2 * time.Second},
			[]platform.Point{{X: 1, Y: 2}}, []time.Duration{2 * time.Second}},
		{"tap_delay zero delay", catalog.TapDelay{X: 1, Y: 2},
			[]platform.Point{{X: 1, Y: 2}}, nil},
		{"tap_delay_settle", catalog.TapDelaySettle{X: 787, Y: 499, Delay: 2500 * time.Millisecond, Settle: 17 * time.Second},
			[]platform.Point{{X: 787, Y: 499}}, []time.Duration{2500 * time.Millisecond, 17 * time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)
			out, err := f.d.Execute(context.Background(), step(1, tt.action), RunContext{})
			require.NoError(t, err)
			assert.Equal(t, Outcome{Matched: true}, out)
			assert.Equal(t, tt.taps, f.dev.Taps())
			assert.Equal(t, tt.sleeps, f.clock.Sleeps)
		})
	}
}

func TestExecute_TapAfterCheck(t *testing.T) {
	a := catalog.TapAfterCheck{Image: "molly", X: 700, Y: 400, Timeout: 15 * time.Second}

	t.Run("never appears", func(t *testing.T) {
		f := newFixture(nil)
		out, err := f.d.Execute(context.Background(), step(6, a), RunContext{})
		require.NoError(t, err)
		assert.Equal(t, Outcome{UsedFallback: true}, out)
		assert.Equal(t, []platform.Point{{X: 700, Y: 400}}, f.dev.Taps())
	})

	t.Run("appears", func(t *testing.T) {
		f := newFixture(nil)
		f.images.visible["molly"] = platform.Point{X: 1, Y: 1}
		a := a
		a.ClickDelay = time.Second
		out, err := f.d.Execute(context.Background(), step(6, a), RunContext{})
		require.NoError(t, err)
		assert.Equal(t, Outcome{Matched: true}, out)
		assert.Equal(t, []platform.Point{{X: 700, Y: 400}}, f.dev.Taps())
		assert.Equal(t, []time.Duration{time.Second}, f.clock.Sleeps)
	})
}

func TestExecute_SettleVariants(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	out, err := f.d.Execute(ctx, step(1, catalog.TapAfterCheckSettle{Image: "a", X: 5, Y: 6, Settle: 3 * time.Second}), RunContext{})
	require.NoError(t, err)
	assert.True(t, out.UsedFallback)

	out, err = f.d.Execute(ctx, step(2, catalog.WaitTapSettle{Image: "a", X: 7, Y: 8, PreWait: time.Second, Settle: 4 * time.Second}), RunContext{})
	require.NoError(t, err)
	assert.True(t, out.UsedFallback)

	assert.Equal(t, []platform.Point{{X: 5, Y: 6}, {X: 7, Y: 8}}, f.dev.Taps())
	assert.Equal(t, []time.Duration{3 * time.Second, time.Second, 4 * time.Second}, f.clock.Sleeps)
}

func TestExecute_Dismiss(t *testing.T) {
	t.Run("unbounded", func(t *testing.T) {
		f := newFixture(nil)
		out, err := f.d.Execute(context.Background(), step(1, catalog.Dismiss{Settle: 2 * time.Second}), RunContext{})
		require.NoError(t, err)
		assert.True(t, out.Matched)
		assert.Equal(t, []platform.Point{{X: 1180, Y: 50}}, f.dev.Taps())
		assert.Equal(t, []time.Duration{2 * time.Second}, f.clock.Sleeps)
	})

	t.Run("without recognizer", func(t *testing.T) {
		f := newFixture(nil)
		f.skip.err = platform.ErrNoRecognizer
		_, err := f.d.Execute(context.Background(), step(1, catalog.Dismiss{}), RunContext{})
		assert.ErrorIs(t, err, platform.ErrNoRecognizer)
	})

	t.Run("wait then dismiss always dismisses", func(t *testing.T) {
		f := newFixture(nil)
		out, err := f.d.Execute(context.Background(), step(1, catalog.WaitThenDismiss{Image: "bonus", Timeout: 15 * time.Second}), RunContext{})
		require.NoError(t, err)
		assert.Equal(t, Outcome{UsedFallback: true}, out)
		assert.Equal(t, 1, f.skip.unbounded)
	})
}

func TestExecute_SelectTarget(t *testing.T) {
	t.Run("no target", func(t *testing.T) {
		f := newFixture(nil)
		_, err := f.d.Execute(context.Background(), step(5, catalog.SelectTarget{}), RunContext{})
		assert.ErrorIs(t, err, ErrNoTarget)
	})

	t.Run("nearest", func(t *testing.T) {
		f := newFixture(nil)
		f.targets.matched, f.targets.nearest = false, true
		out, err := f.d.Execute(context.Background(), step(5, catalog.SelectTarget{}), RunContext{Target: 608})
		require.NoError(t, err)
		assert.Equal(t, Outcome{UsedFallback: true}, out)
		assert.Equal(t, []int{608}, f.targets.selected)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(nil)
		notFound := errors.New("target not found")
		f.targets.err = notFound
		_, err := f.d.Execute(context.Background(), step(5, catalog.SelectTarget{}), RunContext{Target: 600})
		assert.ErrorIs(t, err, notFound)
	})
}

func TestExecute_CombatReady(t *testing.T) {
	t.Run("appears on third attempt", func(t *testing.T) {
		f := newFixture(nil)
		f.images.visible["start_battle"] = platform.Point{X: 1100, Y: 600}
		f.images.appearAfter["start_battle"] = 2
		out, err := f.d.Execute(context.Background(), step(1, catalog.CombatReady{Image: "start_battle", MaxAttempts: 20}), RunContext{})
		require.NoError(t, err)
		assert.Equal(t, Outcome{Matched: true}, out)
		assert.Equal(t, []platform.Point{nudge, nudge, {X: 1100, Y: 600}}, f.dev.Taps())
		assert.Equal(t, []time.Duration{1500 * time.Millisecond, 1500 * time.Millisecond}, f.clock.Sleeps)
	})

	t.Run("exhausted", func(t *testing.T) {
		f := newFixture(nil)
		out, err := f.d.Execute(context.Background(), step(1, catalog.CombatReady{Image: "start_battle", MaxAttempts: 3}), RunContext{})
		require.NoError(t, err)
		assert.Equal(t, Outcome{UsedFallback: true}, out)
		assert.Equal(t, []platform.Point{nudge, nudge, nudge}, f.dev.Taps())
	})
}

func TestExecute_AwaitVessel(t *testing.T) {
	a := catalog.AwaitVessel{Image: "vessel", MaxAttempts: 2, X: 93, Y: 285}

	f := newFixture(nil)
	out, err := f.d.Execute(context.Background(), step(1, a), RunContext{})
	require.NoError(t, err)
	assert.Equal(t, Outcome{UsedFallback: true}, out)
	assert.Equal(t, []platform.Point{nudge, nudge, {X: 93, Y: 285}}, f.dev.Taps())

	f = newFixture(nil)
	f.images.visible["vessel"] = platform.Point{X: 1, Y: 1}
	out, err = f.d.Execute(context.Background(), step(1, a), RunContext{})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Matched: true}, out)
	assert.Equal(t, []platform.Point{{X: 93, Y: 285}}, f.dev.Taps())
}

func TestExecute_FindText(t *testing.T) {
	region := platform.Bounds{X: 983, Y: 588, Width: 200, Height: 100}
	withFallback := catalog.FindText{Text: "УЛУЧШИТЬ", Region: region, Timeout: 5 * time.Second, FallbackX: 1083, FallbackY: 638}

	t.Run("hit", func(t *testing.T) {
		f := newFixture(fakeText{at: platform.Point{X: 1083, Y: 628}, found: true})
		out, err := f.d.Execute(context.Background(), step(63, withFallback), RunContext{})
		require.NoError(t, err)
		assert.Equal(t, Outcome{Matched: true}, out)
		assert.Equal(t, []platform.Point{{X: 1083, Y: 628}}, f.dev.Taps())
	})

	t.Run("miss uses fallback", func(t *testing.T) {
		f := newFixture(fakeText{})
		out, err := f.d.Execute(context.Background(), step(63, withFallback), RunContext{})
		require.NoError(t, err)
		assert.Equal(t, Outcome{UsedFallback: true}, out)
		assert.Equal(t, []platform.Point{{X: 1083, Y: 638}}, f.dev.Taps())
	})

	t.Run("no recognizer uses fallback", func(t *testing.T) {
		f := newFixture(nil)
		out, err := f.d.Execute(context.Background(), step(63, withFallback), RunContext{})
		require.NoError(t, err)
		assert.True(t, out.UsedFallback)
	})

	t.Run("miss without fallback fails", func(t *testing.T) {
		f := newFixture(fakeText{})
		a := withFallback
		a.FallbackX, a.FallbackY = 0, 0
		_, err := f.d.Execute(context.Background(), step(63, a), RunContext{})
		assert.ErrorIs(t, err, ErrTextNotFound)
		assert.Empty(t, f.dev.Taps())
	})
}

func TestExecute_TapImageOrCoord(t *testing.T) {
	a := catalog.TapImageOrCoord{Image: "coins", X: 931, Y: 620, Timeout: 25 * time.Second}

	f := newFixture(nil)
	f.images.visible["coins"] = platform.Point{X: 930, Y: 615}
	out, err := f.d.Execute(context.Background(), step(1, a), RunContext{})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Matched: true}, out)
	assert.Equal(t, []platform.Point{{X: 930, Y: 615}}, f.dev.Taps())

	f = newFixture(nil)
	out, err = f.d.Execute(context.Background(), step(1, a), RunContext{})
	require.NoError(t, err)
	assert.Equal(t, Outcome{UsedFallback: true}, out)
	assert.Equal(t, []platform.Point{{X: 931, Y: 620}}, f.dev.Taps())
}

func TestExecute_FinalActivation(t *testing.T) {
	a := catalog.FinalActivation{X: 640, Y: 600, PreWait: 6 * time.Second, SkipTimeout: 5 * time.Second, PostSkipWait: 4 * time.Second}

	t.Run("skip present", func(t *testing.T) {
		f := newFixture(nil)
		out, err := f.d.Execute(context.Background(), step(97, a), RunContext{})
		require.NoError(t, err)
		assert.Equal(t, Outcome{Matched: true}, out)
		assert.Equal(t, []platform.Point{{X: 1180, Y: 50}, {X: 640, Y: 600}}, f.dev.Taps())
		assert.Equal(t, []time.Duration{6 * time.Second, 4 * time.Second}, f.clock.Sleeps)
	})

	t.Run("no skip", func(t *testing.T) {
		f := newFixture(nil)
		f.skip.found = false
		out, err := f.d.Execute(context.Background(), step(97, a), RunContext{})
		require.NoError(t, err)
		assert.Equal(t, Outcome{UsedFallback: true}, out)
		assert.Equal(t, []platform.Point{{X: 640, Y: 600}}, f.dev.Taps())
		assert.Equal(t, []time.Duration{6 * time.Second}, f.clock.Sleeps)
	})

	t.Run("no recognizer", func(t *testing.T) {
		f := newFixture(nil)
		f.skip.err = platform.ErrNoRecognizer
		out, err := f.d.Execute(context.Background(), step(97, a), RunContext{})
		require.NoError(t, err)
		assert.True(t, out.UsedFallback)
	})
}

func TestExecute_Cancelled(t *testing.T) {
	f := newFixture(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.d.Execute(ctx, step(1, catalog.TapDelay{X: 1, Y: 1, Delay: time.Second}), RunContext{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.dev.Taps())
}

func TestCheck(t *testing.T) {
	f := newFixture(nil)
	f.images.visible["shop"] = platform.Point{}
	ctx := context.Background()

	assert.True(t, f.d.Check(ctx, nil))
	assert.True(t, f.d.Check(ctx, &catalog.Condition{ImageVisible: "shop"}))
	assert.False(t, f.d.Check(ctx, &catalog.Condition{ImageVisible: "bonus"}))
	assert.False(t, f.d.Check(ctx, &catalog.Condition{ImageAbsent: "shop"}))
	assert.True(t, f.d.Check(ctx, &catalog.Condition{ImageAbsent: "bonus"}))
}

func TestExecute_LogsFallback(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newFixture(nil)
	f.d = New(Deps{Device: f.dev, Clock: f.clock, Images: f.images, Skip: f.skip, Targets: f.targets},
		config.Default().Pauses, zap.New(core))

	_, err := f.d.Execute(context.Background(), step(6, catalog.TapAfterCheck{Image: "molly", X: 1, Y: 1}), RunContext{})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("step started").Len())
	entries := logs.FilterMessage("step completed with fallback").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(6), entries[0].ContextMap()["step"])
	assert.Equal(t, "tap_after_check", entries[0].ContextMap()["action"])
}
