package search

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/platform"
	"github.com/mj1618/onboard-cli/internal/vision"
)

// TextFinder looks for a caption inside a screen region.
type TextFinder struct {
	dev       platform.Device
	rec       platform.Recognizer
	clock     platform.Clock
	languages []string
	poll      time.Duration
	logger    *zap.Logger
	variants  []vision.Variant
}

// NewTextFinder creates a finder. rec may be nil; every search then misses.
func NewTextFinder(dev platform.Device, rec platform.Recognizer, clock platform.Clock, languages []string, poll time.Duration, logger *zap.Logger) *TextFinder {
	return &TextFinder{
		dev:       dev,
		rec:       rec,
		clock:     clock,
		languages: languages,
		poll:      poll,
		logger:    logger.Named("text"),
		variants:  vision.TextVariants(),
	}
}

// Find polls region for text (case-insensitive containment) until timeout.
// It returns the centre of the matching word, or the region centre when the
// text only appears across several words.
func (f *TextFinder) Find(ctx context.Context, text string, region platform.Bounds, timeout time.Duration) (platform.Point, bool) {
	if f.rec == nil {
		f.logger.Warn("text search skipped", zap.String("text", text), zap.Error(platform.ErrNoRecognizer))
		return platform.Point{}, false
	}
	want := strings.ToLower(strings.TrimSpace(text))
	start := f.clock.Now()
	for {
		if p, ok := f.scan(ctx, want, region); ok {
			f.logger.Info("text found", zap.String("text", text), zap.Stringer("at", p))
			return p, true
		}
		if f.clock.Sleep(ctx, f.poll) != nil {
			return platform.Point{}, false
		}
		if f.clock.Now().Sub(start) >= timeout {
			f.logger.Warn("text not found", zap.String("text", text), zap.Duration("timeout", timeout))
			return platform.Point{}, false
		}
	}
}

func (f *TextFinder) scan(ctx context.Context, want string, region platform.Bounds) (platform.Point, bool) {
	frame, err := f.dev.Screenshot(ctx)
	if err != nil {
		f.logger.Debug("capture failed", zap.Error(err))
		return platform.Point{}, false
	}
	r, region, ok := clipRegion(region, frame)
	if !ok {
		return platform.Point{}, false
	}
	src := vision.NewSource(vision.Crop(frame, r))
	for _, v := range f.variants {
		items, err := f.rec.Recognize(v.Prepare(src), platform.RecognizeOptions{
			Languages:   f.languages,
			PageSegMode: platform.PSMSingleBlock,
		})
		if err != nil {
			f.logger.Debug("recognition failed", zap.String("variant", v.Name), zap.Error(err))
			continue
		}
		var words []string
		for _, it := range items {
			if strings.Contains(strings.ToLower(it.Text), want) {
				return toScreen(it.Box, v.Scale, region), true
			}
			words = append(words, it.Text)
		}
		if strings.Contains(strings.ToLower(strings.Join(words, " ")), want) {
			return region.Center(), true
		}
	}
	return platform.Point{}, false
}
