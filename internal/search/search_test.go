package search

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/config"
	"github.com/mj1618/onboard-cli/internal/platform"
	"github.com/mj1618/onboard-cli/internal/platform/platformtest"
)

// quickCalls is the number of recognitions in one quick pass: seven
// threshold variants times four segmentation modes.
const quickCalls = 7 * 4

func newSkipFinder(dev *platformtest.Device, rec platform.Recognizer, clock *platformtest.Clock) *SkipFinder {
	return NewSkipFinder(dev, rec, clock, config.Default().Skip, zap.NewNop())
}

func skipItem() platform.TextItem {
	// On the x2 image; maps to (1000,30) in the primary region.
	return platform.TextItem{Text: "ПРОПУСТИТЬ", Confidence: 88, Box: image.Rect(100, 40, 300, 80)}
}

func TestSkipFinder_ZeroTimeoutDoesNotCapture(t *testing.T) {
	dev := platformtest.NewDevice()
	rec := &platformtest.Recognizer{}
	f := newSkipFinder(dev, rec, platformtest.NewClock())

	_, ok, err := f.Find(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, dev.Shots)
	assert.Equal(t, 0, rec.CallCount())
}

func TestSkipFinder_NoRecognizer(t *testing.T) {
	f := newSkipFinder(platformtest.NewDevice(), nil, platformtest.NewClock())
	_, _, err := f.Find(context.Background(), time.Second)
	assert.ErrorIs(t, err, platform.ErrNoRecognizer)
	assert.ErrorIs(t, f.DismissUnbounded(context.Background()), platform.ErrNoRecognizer)
}

func TestSkipFinder_BoundedTimesOut(t *testing.T) {
	dev := platformtest.NewDevice()
	rec := &platformtest.Recognizer{}
	clock := platformtest.NewClock()
	f := newSkipFinder(dev, rec, clock)

	_, ok, err := f.Find(context.Background(), time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	// Polls at 0, 0.3, 0.6 and 0.9s; none is an advanced poll.
	assert.Equal(t, 4, dev.Shots)
	assert.Equal(t, 4*quickCalls, rec.CallCount())
}

func TestSkipFinder_AdvancedEveryFifthPoll(t *testing.T) {
	dev := platformtest.NewDevice()
	rec := &platformtest.Recognizer{}
	f := newSkipFinder(dev, rec, platformtest.NewClock())

	_, ok, err := f.Find(context.Background(), 1500*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	// Five quick passes plus one advanced pass on the fifth poll.
	assert.Equal(t, 6, dev.Shots)
	assert.Greater(t, rec.CallCount(), 5*quickCalls)
}

func TestSkipFinder_DismissTapsMatch(t *testing.T) {
	dev := platformtest.NewDevice()
	rec := &platformtest.Recognizer{Script: [][]platform.TextItem{nil, {skipItem()}}}
	f := newSkipFinder(dev, rec, platformtest.NewClock())

	ok, err := f.Dismiss(context.Background(), 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []platform.Point{{X: 1000, Y: 30}}, dev.Taps())
	assert.Equal(t, 1, dev.Shots)
}

func TestSkipFinder_UnboundedUsesAdvancedPass(t *testing.T) {
	dev := platformtest.NewDevice()
	script := make([][]platform.TextItem, 4*quickCalls)
	script = append(script, []platform.TextItem{skipItem()})
	rec := &platformtest.Recognizer{Script: script}
	clock := platformtest.NewClock()
	f := newSkipFinder(dev, rec, clock)

	require.NoError(t, f.DismissUnbounded(context.Background()))
	assert.Equal(t, []platform.Point{{X: 1000, Y: 30}}, dev.Taps())
	assert.Equal(t, 5, dev.Shots)
	assert.Equal(t, 4*quickCalls+1, rec.CallCount())
	assert.Equal(t, 4, len(clock.Sleeps))
}

func TestSkipFinder_UnboundedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := platformtest.NewClock()
	clock.OnSleep = func(time.Duration) {
		if len(clock.Sleeps) >= 3 {
			cancel()
		}
	}
	f := newSkipFinder(platformtest.NewDevice(), &platformtest.Recognizer{}, clock)

	err := f.DismissUnbounded(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSkipFinder_CaptureErrorsAreRetried(t *testing.T) {
	dev := platformtest.NewDevice()
	dev.ShotErr = platformtest.ErrCapture
	f := newSkipFinder(dev, &platformtest.Recognizer{}, platformtest.NewClock())

	_, ok, err := f.Find(context.Background(), time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 4, dev.Shots)
}

type templateMap map[string]image.Image

func (m templateMap) Load(key string) (image.Image, error) {
	img, ok := m[key]
	if !ok {
		return nil, errors.New("unknown template " + key)
	}
	return img, nil
}

func newWaiter(dev *platformtest.Device, matcher *platformtest.Matcher, clock *platformtest.Clock, tpl templateMap) *ImageWaiter {
	return NewImageWaiter(dev, matcher, tpl, clock, 0.7, 500*time.Millisecond, time.Second, zap.NewNop())
}

func TestImageWaiter(t *testing.T) {
	coins := platformtest.Blank(4, 4, image.White.C)
	molly := platformtest.Blank(4, 4, image.Black.C)
	tpl := templateMap{"coins": coins, "molly": molly}
	matcher := &platformtest.Matcher{Hits: map[image.Image]platform.Match{
		coins: {X: 931, Y: 620, Score: 0.9},
	}}

	t.Run("found", func(t *testing.T) {
		dev := platformtest.NewDevice()
		w := newWaiter(dev, matcher, platformtest.NewClock(), tpl)
		assert.True(t, w.TapImage(context.Background(), "coins", 25*time.Second))
		assert.Equal(t, []platform.Point{{X: 931, Y: 620}}, dev.Taps())
		assert.Equal(t, 1, dev.Shots)
	})

	t.Run("timeout", func(t *testing.T) {
		dev := platformtest.NewDevice()
		clock := platformtest.NewClock()
		w := newWaiter(dev, matcher, clock, tpl)
		_, ok := w.Wait(context.Background(), "molly", 2*time.Second)
		assert.False(t, ok)
		assert.Equal(t, 4, dev.Shots)
		assert.Equal(t, 2*time.Second, clock.Total())
	})

	t.Run("visible checks once", func(t *testing.T) {
		dev := platformtest.NewDevice()
		clock := platformtest.NewClock()
		w := newWaiter(dev, matcher, clock, tpl)
		assert.False(t, w.Visible(context.Background(), "molly"))
		assert.True(t, w.Visible(context.Background(), "coins"))
		assert.Equal(t, 2, dev.Shots)
		assert.Zero(t, clock.Total())
	})

	t.Run("unknown key", func(t *testing.T) {
		dev := platformtest.NewDevice()
		w := newWaiter(dev, matcher, platformtest.NewClock(), tpl)
		_, ok := w.Wait(context.Background(), "griffin", 10*time.Second)
		assert.False(t, ok)
		assert.Equal(t, 0, dev.Shots)
	})

	t.Run("capture error retries", func(t *testing.T) {
		dev := platformtest.NewDevice()
		dev.ShotErr = platformtest.ErrCapture
		clock := platformtest.NewClock()
		w := newWaiter(dev, matcher, clock, tpl)
		_, ok := w.Wait(context.Background(), "coins", 3*time.Second)
		assert.False(t, ok)
		assert.Equal(t, 3, dev.Shots)
		assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, clock.Sleeps)
	})
}

func TestTextFinder(t *testing.T) {
	region := platform.Bounds{X: 983, Y: 588, Width: 200, Height: 100}

	t.Run("word hit", func(t *testing.T) {
		rec := &platformtest.Recognizer{Default: []platform.TextItem{
			{Text: "Улучшить", Confidence: 70, Box: image.Rect(50, 20, 150, 60)},
		}}
		f := NewTextFinder(platformtest.NewDevice(), rec, platformtest.NewClock(), []string{"rus"}, 500*time.Millisecond, zap.NewNop())
		p, ok := f.Find(context.Background(), "УЛУЧШИТЬ", region, 5*time.Second)
		assert.True(t, ok)
		assert.Equal(t, platform.Point{X: 1083, Y: 628}, p)
	})

	t.Run("phrase across words", func(t *testing.T) {
		rec := &platformtest.Recognizer{Default: []platform.TextItem{
			{Text: "Улучшить", Box: image.Rect(0, 0, 10, 10)},
			{Text: "корабль", Box: image.Rect(20, 0, 30, 10)},
		}}
		f := NewTextFinder(platformtest.NewDevice(), rec, platformtest.NewClock(), nil, 500*time.Millisecond, zap.NewNop())
		p, ok := f.Find(context.Background(), "улучшить корабль", region, 5*time.Second)
		assert.True(t, ok)
		assert.Equal(t, region.Center(), p)
	})

	t.Run("timeout", func(t *testing.T) {
		dev := platformtest.NewDevice()
		clock := platformtest.NewClock()
		f := NewTextFinder(dev, &platformtest.Recognizer{}, clock, nil, 500*time.Millisecond, zap.NewNop())
		_, ok := f.Find(context.Background(), "УЛУЧШИТЬ", region, 5*time.Second)
		assert.False(t, ok)
		assert.Equal(t, 10, dev.Shots)
	})

	t.Run("region clipped to frame", func(t *testing.T) {
		rec := &platformtest.Recognizer{Default: []platform.TextItem{
			{Text: "Улучшить", Confidence: 70, Box: image.Rect(10, 10, 30, 20)},
		}}
		f := NewTextFinder(platformtest.NewDevice(), rec, platformtest.NewClock(), nil, 500*time.Millisecond, zap.NewNop())
		wide := platform.Bounds{X: -20, Y: 700, Width: 100, Height: 50}
		p, ok := f.Find(context.Background(), "улучшить", wide, time.Second)
		assert.True(t, ok)
		// The crop starts at (0,700), so that is the offset applied.
		assert.Equal(t, platform.Point{X: 20, Y: 715}, p)
	})

	t.Run("region outside frame", func(t *testing.T) {
		rec := &platformtest.Recognizer{Default: []platform.TextItem{{Text: "Улучшить"}}}
		f := NewTextFinder(platformtest.NewDevice(), rec, platformtest.NewClock(), nil, 500*time.Millisecond, zap.NewNop())
		_, ok := f.Find(context.Background(), "улучшить", platform.Bounds{X: 1300, Y: 0, Width: 50, Height: 50}, 0)
		assert.False(t, ok)
		assert.Equal(t, 0, rec.CallCount())
	})

	t.Run("no recognizer", func(t *testing.T) {
		dev := platformtest.NewDevice()
		f := NewTextFinder(dev, nil, platformtest.NewClock(), nil, 500*time.Millisecond, zap.NewNop())
		_, ok := f.Find(context.Background(), "УЛУЧШИТЬ", region, 5*time.Second)
		assert.False(t, ok)
		assert.Equal(t, 0, dev.Shots)
	})
}
