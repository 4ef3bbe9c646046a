// Package platformtest provides in-memory Device, Matcher, Recognizer and
// Clock implementations for tests.
package platformtest

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/mj1618/onboard-cli/internal/platform"
)

// Gesture is one recorded input event.
type Gesture struct {
	Kind     string // "tap", "swipe", "key"
	X, Y     int
	X1, Y1   int
	Duration time.Duration
	Key      platform.KeyCode
}

// Device records every gesture and serves a fixed frame.
type Device struct {
	mu       sync.Mutex
	Frame    image.Image
	ShotErr  error
	Gestures []Gesture
	Shots    int
	Started  []string
	Stopped  []string

	// OnSwipe, when set, runs after each swipe is recorded.
	OnSwipe func(g Gesture)
}

// NewDevice returns a Device serving a blank 1280x720 frame.
func NewDevice() *Device {
	return &Device{Frame: Blank(1280, 720, color.Black)}
}

func (d *Device) Tap(_ context.Context, x, y int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Gestures = append(d.Gestures, Gesture{Kind: "tap", X: x, Y: y})
	return nil
}

func (d *Device) Swipe(_ context.Context, x0, y0, x1, y1 int, dur time.Duration) error {
	d.mu.Lock()
	g := Gesture{Kind: "swipe", X: x0, Y: y0, X1: x1, Y1: y1, Duration: dur}
	d.Gestures = append(d.Gestures, g)
	hook := d.OnSwipe
	d.mu.Unlock()
	if hook != nil {
		hook(g)
	}
	return nil
}

func (d *Device) KeyEvent(_ context.Context, code platform.KeyCode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Gestures = append(d.Gestures, Gesture{Kind: "key", Key: code})
	return nil
}

func (d *Device) Screenshot(_ context.Context) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Shots++
	if d.ShotErr != nil {
		return nil, d.ShotErr
	}
	return d.Frame, nil
}

func (d *Device) StartApp(_ context.Context, pkg, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Started = append(d.Started, pkg)
	return nil
}

func (d *Device) StopApp(_ context.Context, pkg string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Stopped = append(d.Stopped, pkg)
	return nil
}

// Taps returns the recorded taps in order.
func (d *Device) Taps() []platform.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []platform.Point
	for _, g := range d.Gestures {
		if g.Kind == "tap" {
			out = append(out, platform.Point{X: g.X, Y: g.Y})
		}
	}
	return out
}

// Swipes returns the recorded swipes in order.
func (d *Device) Swipes() []Gesture {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Gesture
	for _, g := range d.Gestures {
		if g.Kind == "swipe" {
			out = append(out, g)
		}
	}
	return out
}

// Matcher reports a match for templates whose pointer identity is listed in
// Hits, and counts calls.
type Matcher struct {
	mu    sync.Mutex
	Hits  map[image.Image]platform.Match
	Calls int
}

func (m *Matcher) Find(_, tmpl image.Image, _ float64) (platform.Match, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	match, ok := m.Hits[tmpl]
	return match, ok
}

// Recognizer replays scripted results. Each call to Recognize pops the next
// entry from Script; once the script is drained it returns Default.
type Recognizer struct {
	mu      sync.Mutex
	Script  [][]platform.TextItem
	Default []platform.TextItem
	Err     error
	Calls   []platform.RecognizeOptions
	Sizes   []image.Point
}

func (r *Recognizer) Recognize(img image.Image, opts platform.RecognizeOptions) ([]platform.TextItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, opts)
	r.Sizes = append(r.Sizes, img.Bounds().Size())
	if r.Err != nil {
		return nil, r.Err
	}
	if len(r.Script) > 0 {
		next := r.Script[0]
		r.Script = r.Script[1:]
		return next, nil
	}
	return r.Default, nil
}

func (r *Recognizer) Close() error { return nil }

// CallCount returns how many times Recognize ran.
func (r *Recognizer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Calls)
}

// Clock is a manual clock: Sleep advances Now instantly and records the
// requested durations.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	Sleeps []time.Duration

	// OnSleep, when set, runs after each sleep is recorded.
	OnSleep func(d time.Duration)
}

// NewClock returns a Clock starting at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.Sleeps = append(c.Sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	hook := c.OnSleep
	c.mu.Unlock()
	if hook != nil {
		hook(d)
	}
	return ctx.Err()
}

// Advance moves the clock forward without recording a sleep.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Total returns the sum of all recorded sleeps.
func (c *Clock) Total() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum time.Duration
	for _, d := range c.Sleeps {
		sum += d
	}
	return sum
}

// Blank returns a uniformly coloured RGBA image.
func Blank(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// ErrCapture is a canned screenshot failure.
var ErrCapture = errors.New("screencap failed")

var (
	_ platform.Device     = (*Device)(nil)
	_ platform.Matcher    = (*Matcher)(nil)
	_ platform.Recognizer = (*Recognizer)(nil)
	_ platform.Clock      = (*Clock)(nil)
)
