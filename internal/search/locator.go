package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/band"
	"github.com/mj1618/onboard-cli/internal/config"
	"github.com/mj1618/onboard-cli/internal/platform"
	"github.com/mj1618/onboard-cli/internal/vision"
)

// ErrTargetNotFound is returned when the target cannot be located, even
// approximately.
var ErrTargetNotFound = errors.New("target not found")

// Locator finds and taps a target in the target picker: it activates the
// target's band, reads visible ids and scrolls until the target shows up.
type Locator struct {
	dev    platform.Device
	rec    platform.Recognizer
	clock  platform.Clock
	bands  band.Table
	cfg    config.Locator
	pauses config.Pauses
	logger *zap.Logger

	variants []vision.Variant

	mu       sync.Mutex
	cache    *VisibleCache
	current  *band.Band
	lastSeen []VisibleElement
}

// NewLocator creates a locator. rec may be nil, in which case nothing is
// ever visible.
func NewLocator(dev platform.Device, rec platform.Recognizer, clock platform.Clock, bands band.Table,
	cfg config.Locator, pauses config.Pauses, logger *zap.Logger) *Locator {
	return &Locator{
		dev:      dev,
		rec:      rec,
		clock:    clock,
		bands:    bands,
		cfg:      cfg,
		pauses:   pauses,
		logger:   logger.Named("locator"),
		variants: vision.TargetListVariants(),
		cache:    NewVisibleCache(cfg.CacheTTL, clock),
	}
}

// Band returns the active band, if any.
func (l *Locator) Band() (band.Band, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return band.Band{}, false
	}
	return *l.current, true
}

// SelectBand activates b in the band list.
func (l *Locator) SelectBand(ctx context.Context, b band.Band) error {
	l.mu.Lock()
	l.current = &b
	l.lastSeen = nil
	l.mu.Unlock()
	l.cache.InvalidateAll()

	l.logger.Info("selecting band", zap.String("band", b.ID), zap.Int("low", b.Low), zap.Int("high", b.High))
	if b.ScrollFirst {
		s := l.cfg.BandScroll
		if err := l.dev.Swipe(ctx, s.From.X, s.From.Y, s.To.X, s.To.Y, s.Duration); err != nil {
			return fmt.Errorf("scroll band list: %w", err)
		}
		if err := l.clock.Sleep(ctx, l.pauses.AfterBandScroll); err != nil {
			return err
		}
	}
	if err := l.clock.Sleep(ctx, l.pauses.BeforeBandTap); err != nil {
		return err
	}
	if err := l.dev.Tap(ctx, b.Tap.X, b.Tap.Y); err != nil {
		return fmt.Errorf("tap band %s: %w", b.ID, err)
	}
	return l.clock.Sleep(ctx, l.pauses.AfterBandTap)
}

func (l *Locator) cacheKey() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return ""
	}
	return l.current.ID
}

// Visible returns the ids currently on screen, highest first. Results are
// served from the cache unless force is set or the entry expired.
func (l *Locator) Visible(ctx context.Context, force bool) []VisibleElement {
	key := l.cacheKey()
	if !force {
		if els, ok := l.cache.Get(key); ok {
			return els
		}
	}
	if l.rec == nil {
		l.logger.Warn("cannot read targets", zap.Error(platform.ErrNoRecognizer))
		return nil
	}
	frame, err := l.dev.Screenshot(ctx)
	if err != nil {
		l.logger.Warn("capture failed", zap.Error(err))
		return nil
	}

	r, region, ok := clipRegion(l.cfg.Region, frame)
	if !ok {
		l.logger.Warn("target list region is outside the frame", zap.Stringer("region", l.cfg.Region))
		return nil
	}
	src := vision.NewSource(vision.Crop(frame, r))
	found := map[int]VisibleElement{}
	for _, v := range l.variants {
		items, err := l.rec.Recognize(v.Prepare(src), platform.RecognizeOptions{
			Languages:   l.cfg.Languages,
			Whitelist:   l.cfg.Whitelist,
			PageSegMode: platform.PSMSingleBlock,
		})
		if err != nil {
			l.logger.Debug("recognition failed", zap.String("variant", v.Name), zap.Error(err))
			continue
		}
		for _, it := range items {
			if it.Confidence < l.cfg.MinConfidence {
				continue
			}
			for _, id := range ParseLabels(it.Text, l.cfg.MinID, l.cfg.MaxID) {
				if _, dup := found[id]; dup {
					continue
				}
				p := toScreen(it.Box, v.Scale, region)
				found[id] = VisibleElement{Label: id, X: p.X, Y: p.Y, Confidence: it.Confidence}
			}
		}
	}

	els := l.validate(found)
	if len(els) > 0 {
		l.mu.Lock()
		changed := !sameLabels(els, l.lastSeen)
		l.lastSeen = els
		l.mu.Unlock()
		if changed {
			l.logger.Info("visible targets", zap.Ints("ids", labels(els)))
		}
	} else {
		l.logger.Warn("no valid targets visible")
	}
	l.cache.Put(key, els)
	return els
}

// validate keeps ids inside the active band and the capture region, and
// within Window of the last non-empty read.
func (l *Locator) validate(found map[int]VisibleElement) []VisibleElement {
	l.mu.Lock()
	cur := l.current
	last := l.lastSeen
	l.mu.Unlock()

	lastLo, lastHi := labelSpan(last)
	region := l.cfg.Region
	var out []VisibleElement
	for id, e := range found {
		if cur != nil && !cur.Contains(id) {
			l.logger.Debug("target outside band", zap.Int("id", id), zap.String("band", cur.ID))
			continue
		}
		if e.X < region.X || e.X > region.X+region.Width || e.Y < region.Y || e.Y > region.Y+region.Height {
			continue
		}
		if len(last) > 0 && (id < lastLo-l.cfg.Window || id > lastHi+l.cfg.Window) {
			l.logger.Debug("target far from previous read", zap.Int("id", id), zap.Int("low", lastLo), zap.Int("high", lastHi))
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label > out[j].Label })
	return out
}

// ScrollToward scrolls the list one step toward target. It reports found
// without scrolling when target is among visible.
func (l *Locator) ScrollToward(ctx context.Context, target int, visible []VisibleElement) (bool, error) {
	if _, ok := findLabel(visible, target); ok {
		return true, nil
	}

	var (
		swipe config.Swipe
		down  bool
	)
	if len(visible) == 0 {
		swipe = l.cfg.CoarseScroll
		down = target < l.cfg.DefaultMin
	} else {
		lo, hi := labelSpan(visible)
		dist := min(abs(target-lo), abs(target-hi))
		switch {
		case dist <= l.cfg.FineDistance:
			swipe = l.cfg.FineScroll
			switch {
			case target < lo:
				down = true
			case target > hi:
				down = false
			default:
				down = abs(target-lo) < abs(target-hi)
			}
		default:
			swipe = l.cfg.CoarseScroll
			down = target < lo
		}
	}

	from, to := swipe.From, swipe.To
	if !down {
		from, to = to, from
	}
	l.logger.Debug("scrolling target list", zap.Int("target", target), zap.Bool("down", down), zap.Duration("duration", swipe.Duration))
	if err := l.dev.Swipe(ctx, from.X, from.Y, to.X, to.Y, swipe.Duration); err != nil {
		return false, fmt.Errorf("scroll target list: %w", err)
	}
	if err := l.clock.Sleep(ctx, l.pauses.AfterScroll); err != nil {
		return false, err
	}
	l.cache.InvalidateAll()
	return false, nil
}

// Locate finds id on screen, scrolling up to MaxScrolls times. When the
// exact id never shows up, the closest visible id within Tolerance is
// returned instead.
func (l *Locator) Locate(ctx context.Context, id int) (VisibleElement, error) {
	visible := l.Visible(ctx, true)
	if e, ok := findLabel(visible, id); ok {
		return e, nil
	}

	for attempt := 1; attempt <= l.cfg.MaxScrolls; attempt++ {
		l.logger.Info("scrolling for target", zap.Int("target", id), zap.Int("attempt", attempt), zap.Int("max", l.cfg.MaxScrolls))
		if _, err := l.ScrollToward(ctx, id, visible); err != nil {
			return VisibleElement{}, err
		}
		if err := l.clock.Sleep(ctx, l.pauses.LocateAttempt); err != nil {
			return VisibleElement{}, err
		}
		if fresh := l.Visible(ctx, true); len(fresh) > 0 {
			visible = fresh
			if e, ok := findLabel(visible, id); ok {
				return e, nil
			}
		}
	}

	if len(visible) > 0 {
		closest := visible[0]
		for _, e := range visible[1:] {
			if abs(e.Label-id) < abs(closest.Label-id) {
				closest = e
			}
		}
		if abs(closest.Label-id) <= l.cfg.Tolerance {
			l.logger.Warn("using nearest target", zap.Int("target", id), zap.Int("nearest", closest.Label))
			return closest, nil
		}
	}
	return VisibleElement{}, fmt.Errorf("%w: %d", ErrTargetNotFound, id)
}

// Select resolves id's band, activates it, locates id and taps it. nearest
// reports that a neighbouring id within tolerance was tapped instead.
func (l *Locator) Select(ctx context.Context, id int) (matched, nearest bool, err error) {
	b, err := l.bands.Resolve(id)
	if err != nil {
		return false, false, err
	}
	if err := l.SelectBand(ctx, b); err != nil {
		return false, false, err
	}
	e, err := l.Locate(ctx, id)
	if err != nil {
		return false, false, err
	}
	if err := l.clock.Sleep(ctx, l.pauses.BeforeTargetTap); err != nil {
		return false, false, err
	}
	if err := l.dev.Tap(ctx, e.X, e.Y); err != nil {
		return false, false, fmt.Errorf("tap target %d: %w", e.Label, err)
	}
	if err := l.clock.Sleep(ctx, l.pauses.AfterTargetTap); err != nil {
		return false, false, err
	}
	l.logger.Info("target selected", zap.Int("target", id), zap.Int("tapped", e.Label), zap.String("band", b.ID))
	return e.Label == id, e.Label != id, nil
}

func labels(els []VisibleElement) []int {
	out := make([]int, len(els))
	for i, e := range els {
		out[i] = e.Label
	}
	return out
}

func sameLabels(a, b []VisibleElement) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Label != b[i].Label {
			return false
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
