package platform

import (
	"context"
	"image"
	"time"
)

// Device issues input events and captures the screen of an attached
// Android device.
type Device interface {
	Tap(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x0, y0, x1, y1 int, duration time.Duration) error
	KeyEvent(ctx context.Context, code KeyCode) error

	// Screenshot returns the current frame. Implementations must never
	// return a nil image with a nil error.
	Screenshot(ctx context.Context) (image.Image, error)

	StartApp(ctx context.Context, pkg, activity string) error
	StopApp(ctx context.Context, pkg string) error
}

// Matcher locates a reference template on a frame.
type Matcher interface {
	// Find returns the best match whose score is >= threshold (0..1).
	Find(frame, template image.Image, threshold float64) (Match, bool)
}

// Recognizer extracts text with per-item confidence (0..100) and boxes.
type Recognizer interface {
	Recognize(img image.Image, opts RecognizeOptions) ([]TextItem, error)
	Close() error
}

// Clock provides wall time and context-aware sleeping. All pauses in the
// executor go through it so they can be observed in tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Seconds converts fractional seconds to a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
