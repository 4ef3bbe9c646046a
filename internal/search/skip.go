package search

import (
	"context"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/config"
	"github.com/mj1618/onboard-cli/internal/platform"
	"github.com/mj1618/onboard-cli/internal/vision"
)

// skipModes are the page segmentation modes tried for every variant.
var skipModes = []platform.PageSegMode{
	platform.PSMSingleBlock,
	platform.PSMSingleWord,
	platform.PSMSingleLine,
	platform.PSMRawLine,
}

// SkipFinder locates and taps the tutorial's skip control. A quick pass
// reads the primary region with threshold variants; an advanced pass reads
// three regions with every preprocessing family.
type SkipFinder struct {
	dev    platform.Device
	rec    platform.Recognizer
	clock  platform.Clock
	cfg    config.Skip
	policy MatchPolicy
	logger *zap.Logger

	quick    []vision.Variant
	advanced []vision.Variant
}

// NewSkipFinder creates a finder. rec may be nil, in which case every
// search reports platform.ErrNoRecognizer.
func NewSkipFinder(dev platform.Device, rec platform.Recognizer, clock platform.Clock, cfg config.Skip, logger *zap.Logger) *SkipFinder {
	return &SkipFinder{
		dev:   dev,
		rec:   rec,
		clock: clock,
		cfg:   cfg,
		policy: MatchPolicy{
			Variants:        cfg.Variants,
			MinConfidence:   cfg.MinConfidence,
			FuzzyConfidence: cfg.FuzzyConfidence,
		},
		logger:   logger.Named("skip"),
		quick:    vision.QuickSkipVariants(),
		advanced: vision.AdvancedSkipVariants(),
	}
}

// Find searches for up to timeout. Every poll runs the quick pass and every
// AdvancedEvery-th poll also runs the advanced pass. A timeout <= 0 returns
// immediately without capturing.
func (f *SkipFinder) Find(ctx context.Context, timeout time.Duration) (platform.Point, bool, error) {
	if timeout <= 0 {
		return platform.Point{}, false, nil
	}
	if f.rec == nil {
		return platform.Point{}, false, platform.ErrNoRecognizer
	}
	f.logger.Info("searching for skip control", zap.Duration("timeout", timeout))

	start := f.clock.Now()
	for attempt := 1; f.clock.Now().Sub(start) < timeout; attempt++ {
		if p, ok := f.quickPass(ctx); ok {
			f.logger.Info("skip control found", zap.Int("attempt", attempt), zap.Stringer("at", p))
			return p, true, nil
		}
		if attempt%f.cfg.AdvancedEvery == 0 {
			if p, ok := f.advancedPass(ctx); ok {
				f.logger.Info("skip control found by advanced pass", zap.Int("attempt", attempt), zap.Stringer("at", p))
				return p, true, nil
			}
		}
		if err := f.clock.Sleep(ctx, f.cfg.Interval); err != nil {
			return platform.Point{}, false, err
		}
	}
	f.logger.Warn("skip control not found", zap.Duration("timeout", timeout))
	return platform.Point{}, false, nil
}

// FindUnbounded searches until the control is found or ctx is done.
// Every AdvancedEvery-th attempt runs the advanced pass instead of the
// quick one.
func (f *SkipFinder) FindUnbounded(ctx context.Context) (platform.Point, error) {
	if f.rec == nil {
		return platform.Point{}, platform.ErrNoRecognizer
	}
	f.logger.Info("searching for skip control until found")

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return platform.Point{}, err
		}
		if f.cfg.LogEvery > 0 && attempt%f.cfg.LogEvery == 1 {
			f.logger.Info("skip search attempt", zap.Int("attempt", attempt))
		}

		var (
			p  platform.Point
			ok bool
		)
		if attempt%f.cfg.AdvancedEvery == 0 {
			p, ok = f.advancedPass(ctx)
		} else {
			p, ok = f.quickPass(ctx)
		}
		if ok {
			f.logger.Info("skip control found", zap.Int("attempt", attempt), zap.Stringer("at", p))
			return p, nil
		}
		if err := f.clock.Sleep(ctx, f.cfg.Interval); err != nil {
			return platform.Point{}, err
		}
	}
}

// Dismiss runs Find and taps the control when found.
func (f *SkipFinder) Dismiss(ctx context.Context, timeout time.Duration) (bool, error) {
	p, ok, err := f.Find(ctx, timeout)
	if err != nil || !ok {
		return false, err
	}
	if err := f.dev.Tap(ctx, p.X, p.Y); err != nil {
		return false, err
	}
	return true, nil
}

// DismissUnbounded runs FindUnbounded and taps the control.
func (f *SkipFinder) DismissUnbounded(ctx context.Context) error {
	p, err := f.FindUnbounded(ctx)
	if err != nil {
		return err
	}
	return f.dev.Tap(ctx, p.X, p.Y)
}

func (f *SkipFinder) quickPass(ctx context.Context) (platform.Point, bool) {
	frame, ok := f.capture(ctx)
	if !ok {
		return platform.Point{}, false
	}
	return f.scan(frame, []platform.Bounds{f.cfg.Primary}, f.quick)
}

func (f *SkipFinder) advancedPass(ctx context.Context) (platform.Point, bool) {
	frame, ok := f.capture(ctx)
	if !ok {
		return platform.Point{}, false
	}
	return f.scan(frame, []platform.Bounds{f.cfg.Primary, f.cfg.Extended, f.cfg.Wide}, f.advanced)
}

func (f *SkipFinder) capture(ctx context.Context) (image.Image, bool) {
	frame, err := f.dev.Screenshot(ctx)
	if err != nil {
		f.logger.Debug("capture failed", zap.Error(err))
		return nil, false
	}
	return frame, true
}

// scan tries every region, variant and segmentation mode in order and
// returns the first hit in screen coordinates.
func (f *SkipFinder) scan(frame image.Image, regions []platform.Bounds, variants []vision.Variant) (platform.Point, bool) {
	for _, region := range regions {
		r, clipped, ok := clipRegion(region, frame)
		if !ok {
			continue
		}
		src := vision.NewSource(vision.Crop(frame, r))
		for _, v := range variants {
			img := v.Prepare(src)
			for _, mode := range skipModes {
				items, err := f.rec.Recognize(img, platform.RecognizeOptions{
					Languages:   f.cfg.Languages,
					Whitelist:   f.cfg.Whitelist,
					PageSegMode: mode,
				})
				if err != nil {
					f.logger.Debug("recognition failed", zap.String("variant", v.Name), zap.Error(err))
					continue
				}
				hit, ok := MatchVariant(items, f.policy)
				if !ok {
					continue
				}
				p := toScreen(hit.Item.Box, v.Scale, clipped)
				f.logger.Debug("skip candidate",
					zap.String("text", hit.Item.Text),
					zap.Stringer("tier", hit.Tier),
					zap.String("variant", v.Name),
					zap.Int("psm", int(mode)))
				return p, true
			}
		}
	}
	return platform.Point{}, false
}
