package search

import (
	"context"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/platform"
)

// Templates resolves image keys to decoded templates.
type Templates interface {
	Load(key string) (image.Image, error)
}

// ImageWaiter polls the screen for reference templates.
type ImageWaiter struct {
	dev       platform.Device
	matcher   platform.Matcher
	templates Templates
	clock     platform.Clock
	threshold float64
	poll      time.Duration
	retry     time.Duration
	logger    *zap.Logger
}

// NewImageWaiter creates a waiter that accepts matches scoring at least
// threshold, capturing every poll and pausing retry after a failed capture.
func NewImageWaiter(dev platform.Device, matcher platform.Matcher, templates Templates, clock platform.Clock,
	threshold float64, poll, retry time.Duration, logger *zap.Logger) *ImageWaiter {
	return &ImageWaiter{
		dev:       dev,
		matcher:   matcher,
		templates: templates,
		clock:     clock,
		threshold: threshold,
		poll:      poll,
		retry:     retry,
		logger:    logger.Named("image"),
	}
}

// Wait polls for key until it appears or timeout passes. A timeout <= 0
// checks once. Unknown keys are a miss.
func (w *ImageWaiter) Wait(ctx context.Context, key string, timeout time.Duration) (platform.Match, bool) {
	tmpl, err := w.templates.Load(key)
	if err != nil {
		w.logger.Error("template unavailable", zap.String("image", key), zap.Error(err))
		return platform.Match{}, false
	}

	start := w.clock.Now()
	for {
		frame, err := w.dev.Screenshot(ctx)
		if err != nil {
			w.logger.Warn("capture failed, retrying", zap.String("image", key), zap.Error(err))
			if w.clock.Sleep(ctx, w.retry) != nil {
				return platform.Match{}, false
			}
		} else if m, ok := w.matcher.Find(frame, tmpl, w.threshold); ok {
			w.logger.Debug("template found", zap.String("image", key), zap.Int("x", m.X), zap.Int("y", m.Y), zap.Float64("score", m.Score))
			return m, true
		} else if timeout > 0 {
			if w.clock.Sleep(ctx, w.poll) != nil {
				return platform.Match{}, false
			}
		}
		if w.clock.Now().Sub(start) >= timeout {
			w.logger.Debug("template not found", zap.String("image", key), zap.Duration("timeout", timeout))
			return platform.Match{}, false
		}
	}
}

// TapImage waits for key and taps its centre.
func (w *ImageWaiter) TapImage(ctx context.Context, key string, timeout time.Duration) bool {
	m, ok := w.Wait(ctx, key, timeout)
	if !ok {
		return false
	}
	if err := w.dev.Tap(ctx, m.X, m.Y); err != nil {
		w.logger.Warn("tap failed", zap.String("image", key), zap.Error(err))
		return false
	}
	return true
}

// Visible checks the current screen for key once.
func (w *ImageWaiter) Visible(ctx context.Context, key string) bool {
	_, ok := w.Wait(ctx, key, 0)
	return ok
}
